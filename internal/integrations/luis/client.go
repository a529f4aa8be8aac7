package luis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"shop-bot/internal/domain"
	"shop-bot/internal/integrations/apiclient"
)

type predictionResponse struct {
	Query            string `json:"query"`
	TopScoringIntent *struct {
		Intent string  `json:"intent"`
		Score  float64 `json:"score"`
	} `json:"topScoringIntent"`
	Entities []struct {
		Entity     string  `json:"entity"`
		Type       string  `json:"type"`
		StartIndex int     `json:"startIndex"`
		EndIndex   int     `json:"endIndex"`
		Score      float64 `json:"score"`
	} `json:"entities"`
}

// Client calls the LUIS v2 prediction endpoint.
type Client struct {
	endpoint string
	appID    string
	key      *apiclient.CachedKey
	api      *apiclient.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.api = apiclient.New(httpClient)
	}
}

// NewClient creates a recognizer for appID. The subscription key is read from
// keys under keyName on first use.
func NewClient(keys apiclient.KeySource, endpoint, appID, keyName string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("luis: endpoint must not be empty")
	}
	appID = strings.TrimSpace(appID)
	if appID == "" {
		return nil, errors.New("luis: app id must not be empty")
	}
	key, err := apiclient.NewCachedKey(keys, keyName)
	if err != nil {
		return nil, fmt.Errorf("luis: %w", err)
	}
	c := &Client{
		endpoint: endpoint,
		appID:    appID,
		key:      key,
		api:      apiclient.New(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) predictionURL(text string) string {
	q := url.Values{}
	q.Set("q", text)
	q.Set("verbose", "true")
	q.Set("timezoneOffset", "0")
	return apiclient.JoinURL(c.endpoint, "luis/v2.0/apps/"+url.PathEscape(c.appID)) + "?" + q.Encode()
}

// Recognize returns the top intent and the entities grouped by entity type,
// in the order LUIS reported them.
func (c *Client) Recognize(ctx context.Context, text string) (domain.RecognizerResult, error) {
	result := domain.RecognizerResult{TopIntent: domain.IntentNone, Entities: map[string][]string{}}
	if strings.TrimSpace(text) == "" {
		return result, nil
	}
	subscriptionKey, err := c.key.Get(ctx)
	if err != nil {
		return domain.RecognizerResult{}, fmt.Errorf("luis: resolve subscription key: %w", err)
	}

	var payload predictionResponse
	err = c.api.Do(ctx, http.MethodGet, c.predictionURL(text),
		map[string]string{"Ocp-Apim-Subscription-Key": subscriptionKey},
		nil, &payload,
	)
	if err != nil {
		return domain.RecognizerResult{}, fmt.Errorf("luis: predict: %w", err)
	}

	if payload.TopScoringIntent != nil && payload.TopScoringIntent.Intent != "" {
		result.TopIntent = payload.TopScoringIntent.Intent
		result.TopScore = payload.TopScoringIntent.Score
	}
	for _, e := range payload.Entities {
		if e.Type == "" {
			continue
		}
		result.Entities[e.Type] = append(result.Entities[e.Type], e.Entity)
	}
	return result, nil
}
