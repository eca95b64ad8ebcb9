package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/cyberveli/internal/domain/report"
	"github.com/bryanwahyu/cyberveli/internal/infra/ai/prompt"
)

const (
	maxTokens      = 1024
	defaultModel   = "openai/gpt-4o-mini"
	defaultBaseURL = "https://openrouter.ai/api/v1"
)

type Client struct {
	*openai.Client
	Model     string
	MaxTokens int
}

// Options untuk NewClient. BaseURL kosong berarti OpenRouter.
type Options struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

func NewClient(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = defaultBaseURL
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: opts.Model, MaxTokens: opts.MaxTokens}
}

// Generate implements report.Reporter.
func (c *Client) Generate(ctx context.Context, label string, iqaScore float64) (string, error) {
	model := c.Model
	if model == "" {
		model = defaultModel
	}
	limit := c.MaxTokens
	if limit <= 0 {
		limit = maxTokens
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(label, iqaScore)},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	bare := model[strings.LastIndex(model, "/")+1:]
	if strings.HasPrefix(bare, "o1") || strings.HasPrefix(bare, "o3") || strings.HasPrefix(bare, "o4") || strings.HasPrefix(bare, "gpt-5") {
		req.MaxCompletionTokens = limit
	} else {
		req.MaxTokens = limit
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		if isQuota(err) {
			return "", fmt.Errorf("%w: %v", report.ErrQuotaExceeded, err)
		}
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("chat completion returned empty content")
	}
	return text, nil
}

func isQuota(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
