// Package llm adapts context windows into generation provider calls.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vmakris/syntrofos/internal/prompt"
)

// Generator produces a reply for an assembled context window. Implementations
// issue at most one provider call per invocation and never retry internally;
// retry and fallback policy belong to the caller.
type Generator interface {
	Generate(ctx context.Context, window []prompt.Message) (string, error)
}

// GenerationError wraps a provider failure or timeout. The detail is for
// logs only; callers must map it to a generic user-facing reply.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "generation provider: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ClientConfig configures the OpenAI generation client.
type ClientConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration

	// BaseURL overrides the provider endpoint, for tests.
	BaseURL string
}

// Defaults matching the original deployment.
const (
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 30 * time.Second
)

// OpenAIClient issues exactly one chat completion per Generate call, with
// bounded output length, fixed sampling temperature, and a bounded timeout.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

// NewOpenAIClient creates a generation client for the given provider key.
func NewOpenAIClient(cfg ClientConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("generation provider key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}, nil
}

// Generate sends the window as one chat completion request. A timeout is
// reported the same way as any other provider error.
func (c *OpenAIClient) Generate(ctx context.Context, window []prompt.Message) (string, error) {
	messages := make([]openai.ChatCompletionMessage, len(window))
	for i, m := range window {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("chat completion: %w", err)}
	}
	if len(resp.Choices) == 0 {
		return "", &GenerationError{Err: errors.New("chat completion returned no choices")}
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", &GenerationError{Err: errors.New("chat completion returned empty content")}
	}
	return reply, nil
}
