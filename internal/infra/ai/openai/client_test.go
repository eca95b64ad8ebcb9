package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/cyberveli/internal/domain/report"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Options{APIKey: "test-key", BaseURL: srv.URL, Model: "test/model"})
}

func TestGenerate_ReturnsFirstChoice(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test/model", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Contains(t, body.Messages[1].Content, "JMiPOD")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  ## Summary\nHidden data.  "},"finish_reason":"stop"}]}`))
	})

	out, err := c.Generate(context.Background(), "JMiPOD", 0.91)
	require.NoError(t, err)
	assert.Equal(t, "## Summary\nHidden data.", out)
}

func TestGenerate_EmptyChoicesIsError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	})

	_, err := c.Generate(context.Background(), "clean", 0.5)
	assert.Error(t, err)
}

func TestGenerate_QuotaMapsToSentinel(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit","code":"429"}}`))
	})

	_, err := c.Generate(context.Background(), "clean", 0.5)
	require.Error(t, err)
	assert.ErrorIs(t, err, report.ErrQuotaExceeded)
}
