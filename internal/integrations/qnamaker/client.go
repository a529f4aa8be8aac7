package qnamaker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"shop-bot/internal/domain"
	"shop-bot/internal/integrations/apiclient"
)

const (
	defaultTop            = 1
	defaultScoreThreshold = 30 // QnA Maker scores are 0-100
	noMatchID             = -1
)

type generateAnswerRequest struct {
	Question string `json:"question"`
	Top      int    `json:"top"`
}

type generateAnswerResponse struct {
	Answers []struct {
		ID        int      `json:"id"`
		Answer    string   `json:"answer"`
		Score     float64  `json:"score"`
		Questions []string `json:"questions"`
	} `json:"answers"`
}

// Client queries a QnA Maker knowledge base.
type Client struct {
	host           string
	kbID           string
	top            int
	scoreThreshold float64
	key            *apiclient.CachedKey
	api            *apiclient.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.api = apiclient.New(httpClient)
	}
}

func WithTop(top int) Option {
	return func(c *Client) {
		if top > 0 {
			c.top = top
		}
	}
}

// WithScoreThreshold drops answers scoring below threshold (0-100).
func WithScoreThreshold(threshold float64) Option {
	return func(c *Client) {
		if threshold >= 0 {
			c.scoreThreshold = threshold
		}
	}
}

// NewClient creates a knowledge base client. The endpoint key is read from
// keys under keyName on first use.
func NewClient(keys apiclient.KeySource, host, kbID, keyName string, opts ...Option) (*Client, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, errors.New("qnamaker: host must not be empty")
	}
	kbID = strings.TrimSpace(kbID)
	if kbID == "" {
		return nil, errors.New("qnamaker: knowledge base id must not be empty")
	}
	key, err := apiclient.NewCachedKey(keys, keyName)
	if err != nil {
		return nil, fmt.Errorf("qnamaker: %w", err)
	}
	c := &Client{
		host:           host,
		kbID:           kbID,
		top:            defaultTop,
		scoreThreshold: defaultScoreThreshold,
		key:            key,
		api:            apiclient.New(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) generateAnswerURL() string {
	return apiclient.JoinURL(c.host, "knowledgebases/"+url.PathEscape(c.kbID)+"/generateAnswer")
}

// GetAnswers returns answers at or above the score threshold, best first.
// An empty slice means the knowledge base had nothing to say.
func (c *Client) GetAnswers(ctx context.Context, question string) ([]domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, nil
	}
	endpointKey, err := c.key.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("qnamaker: resolve endpoint key: %w", err)
	}

	var payload generateAnswerResponse
	err = c.api.Do(ctx, http.MethodPost, c.generateAnswerURL(),
		map[string]string{"Authorization": "EndpointKey " + endpointKey},
		generateAnswerRequest{Question: question, Top: c.top},
		&payload,
	)
	if err != nil {
		return nil, fmt.Errorf("qnamaker: generate answer: %w", err)
	}

	answers := make([]domain.Answer, 0, len(payload.Answers))
	for _, a := range payload.Answers {
		if a.ID == noMatchID || a.Score < c.scoreThreshold || strings.TrimSpace(a.Answer) == "" {
			continue
		}
		answers = append(answers, domain.Answer{Text: a.Answer, Score: a.Score})
	}
	sort.SliceStable(answers, func(i, j int) bool { return answers[i].Score > answers[j].Score })
	return answers, nil
}
