package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/faq-assistant/backend/internal/storage/models"
	"github.com/faq-assistant/backend/pkg/circuitbreaker"
	"github.com/faq-assistant/backend/pkg/logger"
)

var ErrEmptyResponse = errors.New("completion returned no choices")

// Client is the Answer Generator. It is created once at startup and shared;
// the underlying openai client is safe for concurrent use.
type Client struct {
	client  *openai.Client
	breaker *circuitbreaker.CircuitBreaker
}

// NewClient builds a client for the OpenAI chat API. baseURL may be empty to
// use the public endpoint, or point at any compatible server.
func NewClient(apiKey, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	logger.Info("LLM client initialized", zap.String("base_url", cfg.BaseURL))

	return &Client{client: openai.NewClientWithConfig(cfg)}
}

// WithBreaker makes Generate fail fast with circuitbreaker.ErrCircuitOpen
// while the service keeps failing.
func (c *Client) WithBreaker(cb *circuitbreaker.CircuitBreaker) *Client {
	c.breaker = cb
	return c
}

// Generate sends prompt as a single user message to model and returns the
// reply text with its token usage. It makes exactly one request and does not
// retry; errors are returned to the caller unchanged apart from wrapping.
func (c *Client) Generate(ctx context.Context, prompt, model string) (string, models.TokenUsage, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}

	var resp openai.ChatCompletionResponse
	call := func() error {
		var err error
		resp, err = c.client.CreateChatCompletion(ctx, req)
		return err
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(ctx, call)
	} else {
		err = call()
	}
	if err != nil {
		return "", models.TokenUsage{}, fmt.Errorf("failed to create completion: %w", err)
	}

	usage := models.NewTokenUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return "", usage, ErrEmptyResponse
	}

	logger.Debug("LLM completion generated",
		zap.String("model", model),
		zap.Int("prompt_tokens", usage.PromptTokens),
		zap.Int("completion_tokens", usage.CompletionTokens),
	)

	return resp.Choices[0].Message.Content, usage, nil
}
