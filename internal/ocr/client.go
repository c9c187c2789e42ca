// Package ocr wraps the conversation expansion service's REST API. The
// service rewrites turn text where needed (expanding attached images to
// text) and returns the conversation the pipeline works with.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/your-org/oh-assistant/internal/conversation"
	"go.uber.org/zap"
)

// Client talks to the expansion service. It implements
// conversation.Expander.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an expansion client.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// ExpandError is an error body returned by the expansion service.
type ExpandError struct {
	StatusCode int    `json:"-"`
	Detail     string `json:"detail"`
}

func (e ExpandError) Error() string {
	return fmt.Sprintf("expansion service error (status %d): %s", e.StatusCode, e.Detail)
}

type expandRequest struct {
	ThreadTitle  string                    `json:"thread_title"`
	Conversation conversation.Conversation `json:"conversation_history"`
}

type expandResponse struct {
	Conversation conversation.Conversation `json:"conversation_history"`
}

// Expand sends the draft conversation and thread title to the expansion
// service and returns its rewritten conversation.
func (c *Client) Expand(ctx context.Context, threadTitle string, draft conversation.Conversation) (conversation.Conversation, error) {
	payload, err := json.Marshal(expandRequest{
		ThreadTitle:  threadTitle,
		Conversation: draft,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal expansion request: %w", err)
	}

	url := fmt.Sprintf("%s/expand", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create expansion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("expansion request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		expandErr := ExpandError{StatusCode: resp.StatusCode}
		if json.Unmarshal(body, &expandErr) == nil && expandErr.Detail != "" {
			return nil, expandErr
		}
		return nil, ExpandError{StatusCode: resp.StatusCode, Detail: string(body)}
	}

	var expanded expandResponse
	if err := json.NewDecoder(resp.Body).Decode(&expanded); err != nil {
		return nil, fmt.Errorf("failed to decode expansion response: %w", err)
	}

	c.logger.Debug("Conversation expansion completed",
		zap.String("thread_title", threadTitle),
		zap.Int("draft_turns", len(draft)),
		zap.Int("expanded_turns", len(expanded.Conversation)),
	)

	return expanded.Conversation, nil
}
