package chatgpt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/ml-services/internal/domain/summarizer"
)

func TestSummarizerRequestsDeterministicCompletion(t *testing.T) {
	var got ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  the gist  "}}]}`))
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient("sk-test", srv.URL, time.Second)
	require.NoError(t, err)
	model := NewSummarizer(client, "gpt-4o-mini")
	require.NoError(t, model.Load(context.Background()))

	summary, err := model.Summarize(context.Background(), "a long article", summarizer.GenerateOptions{MaxLength: 150})
	require.NoError(t, err)
	require.Equal(t, "the gist", summary)
	require.Equal(t, "gpt-4o-mini", got.Model)
	require.Equal(t, 150, got.MaxTokens)
	require.Zero(t, got.Temperature)
	require.Len(t, got.Messages, 2)
	require.Equal(t, "a long article", got.Messages[1].Content)
}

func TestSummarizerReportsAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient("sk-test", srv.URL, time.Second)
	require.NoError(t, err)

	_, err = NewSummarizer(client, "gpt-4o-mini").Summarize(context.Background(), "x", summarizer.GenerateOptions{})
	require.ErrorContains(t, err, "status=429")
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(" ", "", 0)
	require.Error(t, err)
}
