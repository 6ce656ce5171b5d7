package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	maxRetries  = 3
	baseBackoff = 2 * time.Second
	maxBackoff  = 16 * time.Second
)

// Completer sends an assembled prompt to a chat model and returns the
// completion. Single request/response, no streaming.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAIClient implements Completer with the OpenAI chat completions API.
// Temperature and max output tokens are fixed per deployment.
type OpenAIClient struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

func NewOpenAIClient(apiKey, model string, temperature float64, maxTokens int) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key not set", ErrAuth)
	}

	return &OpenAIClient{
		client:      openai.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Complete retries rate-limit responses with exponential backoff; any other
// provider error surfaces immediately.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * baseBackoff
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		params := openai.ChatCompletionNewParams{
			Model: shared.ChatModel(c.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Temperature: openai.Float(c.temperature),
			MaxTokens:   openai.Int(int64(c.maxTokens)),
		}

		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				continue
			}
			if isAuthError(err) {
				return "", fmt.Errorf("%w: %v", ErrAuth, err)
			}
			return "", fmt.Errorf("%w: %v", ErrGeneration, err)
		}

		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("%w: no completion choices returned", ErrGeneration)
		}

		answer := strings.TrimSpace(completion.Choices[0].Message.Content)
		if answer == "" {
			return "", fmt.Errorf("%w: empty completion", ErrGeneration)
		}
		return answer, nil
	}

	return "", fmt.Errorf("%w: %v", ErrRateLimited, lastErr)
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

var _ Completer = (*OpenAIClient)(nil)
