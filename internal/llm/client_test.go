package llm

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNewClient_Validation(t *testing.T) {
	testCases := []struct {
		name      string
		apiKey    string
		expectErr bool
	}{
		{name: "empty key", apiKey: "", expectErr: true},
		{name: "wrong prefix", apiKey: "key-123", expectErr: true},
		{name: "valid format", apiKey: "sk-test123", expectErr: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(tc.apiKey, Options{}, zap.NewNop())
			if tc.expectErr {
				if err == nil {
					t.Error("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if client.model != DefaultModel {
				t.Errorf("Expected default model %q, got %q", DefaultModel, client.model)
			}
		})
	}
}

func TestNewClient_HonorsOptions(t *testing.T) {
	client, err := NewClient("sk-test123", Options{
		Model:       "gpt-4o-mini",
		MaxTokens:   500,
		Temperature: 0.2,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if client.model != "gpt-4o-mini" {
		t.Errorf("Expected configured model, got %q", client.model)
	}
	if client.maxTokens != 500 {
		t.Errorf("Expected max tokens 500, got %d", client.maxTokens)
	}
}

func TestRetryableError_Message(t *testing.T) {
	err := &RetryableError{StatusCode: 429, Message: "rate limited", RetryAfter: time.Second}
	if err.Error() != "retryable error (status 429): rate limited" {
		t.Errorf("Unexpected error string: %q", err.Error())
	}
}
