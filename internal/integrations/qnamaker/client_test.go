package qnamaker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"shop-bot/internal/integrations/apiclient"
)

type fakeKeys struct {
	key string
	err error
}

func (f *fakeKeys) GetToken(_ context.Context, _ string) (string, error) {
	return f.key, f.err
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient(&fakeKeys{key: "kb-key"}, srv.URL+"/qnamaker", "kb-1", "/shop-bot/qna-endpoint-key", opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_Validates(t *testing.T) {
	_, err := NewClient(&fakeKeys{}, "", "kb", "/k")
	require.ErrorContains(t, err, "host")
	_, err = NewClient(&fakeKeys{}, "https://kb", " ", "/k")
	require.ErrorContains(t, err, "knowledge base id")
	_, err = NewClient(nil, "https://kb", "kb", "/k")
	require.ErrorContains(t, err, "key source")
}

func TestGetAnswers_FiltersAndRanks(t *testing.T) {
	var gotReq generateAnswerRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/qnamaker/knowledgebases/kb-1/generateAnswer", r.URL.Path)
		require.Equal(t, "EndpointKey kb-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = io.WriteString(w, `{"answers":[
			{"id":3,"answer":"We ship worldwide.","score":55.5},
			{"id":4,"answer":"Returns are free.","score":81},
			{"id":5,"answer":"Low confidence.","score":12}
		]}`)
	}))
	defer srv.Close()

	answers, err := newTestClient(t, srv, WithTop(3)).GetAnswers(context.Background(), "do you ship?")
	require.NoError(t, err)
	require.Len(t, answers, 2)
	require.Equal(t, "Returns are free.", answers[0].Text)
	require.Equal(t, "We ship worldwide.", answers[1].Text)
	require.Equal(t, "do you ship?", gotReq.Question)
	require.Equal(t, 3, gotReq.Top)
}

func TestGetAnswers_NoMatchAnswerIsDropped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"answers":[{"id":-1,"answer":"No good match found in KB.","score":0}]}`)
	}))
	defer srv.Close()

	answers, err := newTestClient(t, srv, WithScoreThreshold(0)).GetAnswers(context.Background(), "shoes")
	require.NoError(t, err)
	require.Empty(t, answers)
}

func TestGetAnswers_EmptyQuestionSkipsCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) { called = true }))
	defer srv.Close()

	answers, err := newTestClient(t, srv).GetAnswers(context.Background(), "  ")
	require.NoError(t, err)
	require.Empty(t, answers)
	require.False(t, called)
}

func TestGetAnswers_UpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).GetAnswers(context.Background(), "hello")
	var statusErr *apiclient.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

func TestGetAnswers_KeyError(t *testing.T) {
	c, err := NewClient(&fakeKeys{err: errors.New("ssm unavailable")}, "https://kb.invalid", "kb-1", "/k")
	require.NoError(t, err)
	_, err = c.GetAnswers(context.Background(), "hello")
	require.ErrorContains(t, err, "ssm unavailable")
}
