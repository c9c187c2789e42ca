// Copyright 2024 Office Hours Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package llm wraps the OpenAI chat completion API used for every
// generation step: conversation summarization, manual document selection,
// and answer generation.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	// DefaultModel is the completion model used when none is configured.
	DefaultModel = "gpt-4o"
	// MaxRetries defines the maximum number of retry attempts.
	MaxRetries = 3
	// BaseRetryDelay defines the base delay for exponential backoff.
	BaseRetryDelay = time.Second
)

// RetryableError represents an API error that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, e.Message)
}

// Client wraps the go-openai client for prompt-in, text-out generation.
type Client struct {
	client      *openai.Client
	logger      *zap.Logger
	model       string
	maxTokens   int
	temperature float32
}

// Options configures the generation client.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

// NewClient creates a generation client.
func NewClient(apiKey string, opts Options, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if !strings.HasPrefix(apiKey, "sk-") {
		return nil, fmt.Errorf("invalid API key format")
	}

	model := opts.Model
	if model == "" {
		model = DefaultModel
	}

	client := &Client{
		client:      openai.NewClient(apiKey),
		logger:      logger,
		model:       model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}

	client.logger.Info("Generation client initialized",
		zap.String("model", model),
		zap.Int("max_tokens", opts.MaxTokens),
		zap.Float64("temperature", float64(opts.Temperature)),
	)

	return client, nil
}

// Generate runs one chat completion for the given prompt and returns the
// model's text. Retries with exponential backoff on rate limits and server
// errors.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	c.logger.Debug("Creating chat completion",
		zap.String("model", c.model),
		zap.Int("prompt_length", len(prompt)),
	)

	var lastErr error
	delay := BaseRetryDelay

	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying chat completion request",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			lastErr = c.handleAPIError(err)

			if retryErr, ok := lastErr.(*RetryableError); ok {
				if retryErr.RetryAfter > 0 {
					delay = retryErr.RetryAfter
				} else {
					delay = BaseRetryDelay * time.Duration(1<<uint(attempt))
				}
				continue
			}

			return "", lastErr
		}

		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no choices returned from OpenAI")
		}

		c.logger.Debug("Chat completion successful",
			zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		)

		return resp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("exhausted all retry attempts: %w", lastErr)
}

// handleAPIError classifies OpenAI API errors into retryable and terminal.
func (c *Client) handleAPIError(err error) error {
	if apiErr, ok := err.(*openai.APIError); ok {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("invalid API key or unauthorized access: %w", err)
		case http.StatusTooManyRequests:
			retryAfter := BaseRetryDelay
			if apiErr.RetryAfter != nil {
				retryAfter = time.Duration(*apiErr.RetryAfter) * time.Second
			}
			return &RetryableError{
				StatusCode: apiErr.HTTPStatusCode,
				Message:    apiErr.Message,
				RetryAfter: retryAfter,
			}
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return &RetryableError{
				StatusCode: apiErr.HTTPStatusCode,
				Message:    apiErr.Message,
			}
		default:
			return fmt.Errorf("OpenAI API error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
	}

	return fmt.Errorf("OpenAI client error: %w", err)
}
