// Package search wraps the retrieval backend's REST API: hybrid
// (lexical+semantic) search over named content indexes and lookup of
// previously answered question/answer pairs.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// QAPair is one previously answered question with its answer, best-match
// first in results.
type QAPair struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
}

// HybridDoc is one document returned by hybrid search.
type HybridDoc struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// HybridResult is the ranked document set from one hybrid search call.
type HybridResult struct {
	Index string      `json:"index"`
	Docs  []HybridDoc `json:"docs"`
}

// SearchError is an error body returned by the search backend.
type SearchError struct {
	StatusCode int    `json:"-"`
	Detail     string `json:"detail"`
}

func (e SearchError) Error() string {
	return fmt.Sprintf("search backend error (status %d): %s", e.StatusCode, e.Detail)
}

// Client talks to the search backend.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	logger         *zap.Logger
	maxRetries     int
	baseRetryDelay time.Duration
}

// NewClient creates a search client with default retry settings.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return NewClientWithOptions(baseURL, logger, 3, time.Second)
}

// NewClientWithOptions creates a search client with custom retry settings.
func NewClientWithOptions(baseURL string, logger *zap.Logger, maxRetries int, baseRetryDelay time.Duration) *Client {
	return &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		logger:         logger,
		maxRetries:     maxRetries,
		baseRetryDelay: baseRetryDelay,
	}
}

type qaSearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type qaSearchResponse struct {
	Pairs []QAPair `json:"pairs"`
}

type hybridSearchRequest struct {
	Text              string `json:"text"`
	TopK              int    `json:"top_k"`
	SemanticReranking bool   `json:"semantic_reranking"`
}

type hybridSearchResponse struct {
	Docs []HybridDoc `json:"documents"`
}

// SearchQA returns up to topK answered QA pairs matching the query, best
// match first. An empty query returns an empty result without calling the
// backend.
func (c *Client) SearchQA(ctx context.Context, query string, topK int) ([]QAPair, error) {
	if strings.TrimSpace(query) == "" {
		c.logger.Debug("Skipping QA search for empty query")
		return []QAPair{}, nil
	}

	payload, err := json.Marshal(qaSearchRequest{Query: query, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal QA search request: %w", err)
	}

	var pairs []QAPair
	operation := func() error {
		url := fmt.Sprintf("%s/qa/search", c.baseURL)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
		if err != nil {
			return fmt.Errorf("failed to create QA search request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.makeRequest(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		var searchResp qaSearchResponse
		if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
			return fmt.Errorf("failed to decode QA search response: %w", err)
		}

		pairs = searchResp.Pairs
		if pairs == nil {
			pairs = []QAPair{}
		}
		if len(pairs) > topK {
			pairs = pairs[:topK]
		}
		return nil
	}

	if err := c.retryWithBackoff(ctx, operation, "SearchQA"); err != nil {
		return nil, err
	}

	c.logger.Info("QA search completed",
		zap.Int("top_k", topK),
		zap.Int("pairs_returned", len(pairs)),
	)

	return pairs, nil
}

// SearchHybrid runs one hybrid search against the named index. The
// semanticReranking flag only changes the backend's scoring; the result
// shape is the same either way.
func (c *Client) SearchHybrid(ctx context.Context, text, index string, topK int, semanticReranking bool) (*HybridResult, error) {
	payload, err := json.Marshal(hybridSearchRequest{
		Text:              text,
		TopK:              topK,
		SemanticReranking: semanticReranking,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal hybrid search request: %w", err)
	}

	var result *HybridResult
	operation := func() error {
		url := fmt.Sprintf("%s/indexes/%s/search", c.baseURL, index)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
		if err != nil {
			return fmt.Errorf("failed to create hybrid search request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.makeRequest(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		var searchResp hybridSearchResponse
		if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
			return fmt.Errorf("failed to decode hybrid search response: %w", err)
		}

		docs := searchResp.Docs
		if docs == nil {
			docs = []HybridDoc{}
		}
		result = &HybridResult{Index: index, Docs: docs}
		return nil
	}

	if err := c.retryWithBackoff(ctx, operation, "SearchHybrid"); err != nil {
		return nil, err
	}

	c.logger.Info("Hybrid search completed",
		zap.String("index", index),
		zap.Int("top_k", topK),
		zap.Bool("semantic_reranking", semanticReranking),
		zap.Int("docs_returned", len(result.Docs)),
	)

	return result, nil
}

// makeRequest performs an HTTP request with structured error handling.
func (c *Client) makeRequest(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(resp.Body)

		searchErr := SearchError{StatusCode: resp.StatusCode}
		if json.Unmarshal(body, &searchErr) == nil && searchErr.Detail != "" {
			return nil, searchErr
		}

		return nil, SearchError{StatusCode: resp.StatusCode, Detail: string(body)}
	}

	return resp, nil
}

// retryWithBackoff executes an operation with exponential backoff. Retry
// policy lives here in the collaborator client; the pipeline above never
// retries.
func (c *Client) retryWithBackoff(ctx context.Context, operation func() error, operationName string) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseRetryDelay
			c.logger.Warn("Retrying search operation",
				zap.String("operation", operationName),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := operation(); err != nil {
			if !isRetryableError(err) {
				c.logger.Error("Search operation failed with non-retryable status",
					zap.String("operation", operationName),
					zap.Error(err))
				return fmt.Errorf("%s failed: %w", operationName, err)
			}
			lastErr = err
			continue
		}

		if attempt > 0 {
			c.logger.Info("Search operation succeeded after retry",
				zap.String("operation", operationName),
				zap.Int("attempt", attempt))
		}
		return nil
	}

	c.logger.Error("Search operation failed after all retries",
		zap.String("operation", operationName),
		zap.Int("max_retries", c.maxRetries),
		zap.Error(lastErr))
	return fmt.Errorf("%s failed after %d retries: %w", operationName, c.maxRetries, lastErr)
}

// isRetryableError reports whether a failed attempt may succeed on retry.
// Backend 4xx responses other than rate limiting are terminal; rate limits,
// server errors, and transport failures are worth retrying.
func isRetryableError(err error) bool {
	var searchErr SearchError
	if errors.As(err, &searchErr) {
		return searchErr.StatusCode == http.StatusTooManyRequests || searchErr.StatusCode >= 500
	}
	return true
}
