// Package llm wraps chat completions with a bounded timeout.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
)

const (
	// DefaultModel is the completion model used when none is configured.
	DefaultModel = "gpt-3.5-turbo-16k"

	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 30 * time.Second

	// DefaultTemperature matches the service's answer-generation setting.
	DefaultTemperature = 0.7
)

// ErrEmptyCompletion indicates the model returned no usable choices.
var ErrEmptyCompletion = errors.New("completion returned no choices")

// Client generates chat completions with a fixed model, temperature and
// per-call timeout.
type Client struct {
	client      *openai.Client
	model       string
	temperature float64
	timeout     time.Duration
}

// NewClient creates a completion client around an existing OpenAI client.
// Zero values fall back to the package defaults.
func NewClient(client *openai.Client, model string, temperature float64, timeout time.Duration) *Client {
	if model == "" {
		model = DefaultModel
	}
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		client:      client,
		model:       model,
		temperature: temperature,
		timeout:     timeout,
	}
}

// Complete sends a system+user prompt pair and returns the generated text.
// The call is bounded by the configured timeout.
func (c *Client) Complete(ctx context.Context, systemMessage, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemMessage),
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}
