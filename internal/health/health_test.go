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

package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestManager_Check(t *testing.T) {
	logger := zap.NewNop()
	manager := NewManager("miloh", "1.0.0", logger)

	manager.AddCheckerFunc("docstore", func(ctx context.Context) CheckResult {
		return CheckResult{
			Status:    StatusHealthy,
			Timestamp: time.Now(),
		}
	})

	manager.AddCheckerFunc("search", func(ctx context.Context) CheckResult {
		return CheckResult{
			Status:    StatusUnhealthy,
			Error:     "service is down",
			Timestamp: time.Now(),
		}
	})

	ctx := context.Background()
	result := manager.Check(ctx)

	// Overall status should be unhealthy due to one unhealthy dependency
	if result.Status != StatusUnhealthy {
		t.Errorf("Expected status to be unhealthy, got %s", result.Status)
	}

	if result.Service != "miloh" {
		t.Errorf("Expected service to be miloh, got %s", result.Service)
	}

	if result.Version != "1.0.0" {
		t.Errorf("Expected version to be 1.0.0, got %s", result.Version)
	}

	if len(result.Dependencies) != 2 {
		t.Errorf("Expected 2 dependencies, got %d", len(result.Dependencies))
	}

	healthyResult := result.Dependencies["docstore"]
	if healthyResult.Status != StatusHealthy {
		t.Errorf("Expected docstore dependency to be healthy, got %s", healthyResult.Status)
	}

	unhealthyResult := result.Dependencies["search"]
	if unhealthyResult.Status != StatusUnhealthy {
		t.Errorf("Expected search dependency to be unhealthy, got %s", unhealthyResult.Status)
	}

	if unhealthyResult.Error != "service is down" {
		t.Errorf("Expected error message, got %s", unhealthyResult.Error)
	}
}

func TestManager_Check_AllHealthy(t *testing.T) {
	logger := zap.NewNop()
	manager := NewManager("miloh", "1.0.0", logger)

	manager.AddCheckerFunc("ocr", func(ctx context.Context) CheckResult {
		return CheckResult{
			Status:    StatusHealthy,
			Timestamp: time.Now(),
		}
	})

	manager.AddCheckerFunc("search", func(ctx context.Context) CheckResult {
		return CheckResult{
			Status:    StatusHealthy,
			Timestamp: time.Now(),
		}
	})

	ctx := context.Background()
	result := manager.Check(ctx)

	if result.Status != StatusHealthy {
		t.Errorf("Expected status to be healthy, got %s", result.Status)
	}

	if len(result.Dependencies) != 2 {
		t.Errorf("Expected 2 dependencies, got %d", len(result.Dependencies))
	}
}

func TestManager_Check_DegradedStatus(t *testing.T) {
	logger := zap.NewNop()
	manager := NewManager("miloh", "1.0.0", logger)

	manager.AddCheckerFunc("docstore", func(ctx context.Context) CheckResult {
		return CheckResult{
			Status:    StatusHealthy,
			Timestamp: time.Now(),
		}
	})

	manager.AddCheckerFunc("search", func(ctx context.Context) CheckResult {
		return CheckResult{
			Status:    StatusDegraded,
			Error:     "service is slow",
			Timestamp: time.Now(),
		}
	})

	ctx := context.Background()
	result := manager.Check(ctx)

	if result.Status != StatusDegraded {
		t.Errorf("Expected status to be degraded, got %s", result.Status)
	}
}

func TestManager_Check_Timeout(t *testing.T) {
	logger := zap.NewNop()
	manager := NewManager("miloh", "1.0.0", logger)
	manager.SetTimeout(100 * time.Millisecond)

	// Slow checker that takes longer than the manager timeout
	manager.AddCheckerFunc("slow", func(ctx context.Context) CheckResult {
		select {
		case <-time.After(200 * time.Millisecond):
			return CheckResult{
				Status:    StatusHealthy,
				Timestamp: time.Now(),
			}
		case <-ctx.Done():
			return CheckResult{
				Status:    StatusUnhealthy,
				Error:     "timeout",
				Timestamp: time.Now(),
			}
		}
	})

	ctx := context.Background()
	result := manager.Check(ctx)

	if result.Status != StatusUnhealthy {
		t.Errorf("Expected status to be unhealthy due to timeout, got %s", result.Status)
	}
}

func TestServiceHealthChecker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintln(w, `{"status": "healthy"}`)
	}))
	defer server.Close()

	checker := ServiceHealthChecker(server.URL, nil)
	result := checker.Check(context.Background())

	if result.Status != StatusHealthy {
		t.Errorf("Expected status to be healthy, got %s", result.Status)
	}

	if result.Metadata["url"] != server.URL {
		t.Errorf("Expected URL metadata to be %s, got %v", server.URL, result.Metadata["url"])
	}

	if result.Metadata["status_code"] != http.StatusOK {
		t.Errorf("Expected status code to be %d, got %v", http.StatusOK, result.Metadata["status_code"])
	}
}

func TestServiceHealthChecker_Unhealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = fmt.Fprintln(w, `{"error": "service unavailable"}`)
	}))
	defer server.Close()

	checker := ServiceHealthChecker(server.URL, nil)
	result := checker.Check(context.Background())

	if result.Status != StatusUnhealthy {
		t.Errorf("Expected status to be unhealthy, got %s", result.Status)
	}

	if result.Metadata["status_code"] != http.StatusInternalServerError {
		t.Errorf("Expected status code to be %d, got %v", http.StatusInternalServerError, result.Metadata["status_code"])
	}
}

func TestDatabaseHealthChecker(t *testing.T) {
	checker := DatabaseHealthChecker("documents", func(ctx context.Context) error {
		return nil
	})

	result := checker.Check(context.Background())

	if result.Status != StatusHealthy {
		t.Errorf("Expected status to be healthy, got %s", result.Status)
	}

	if result.Metadata["database"] != "documents" {
		t.Errorf("Expected database metadata to be documents, got %v", result.Metadata["database"])
	}
}

func TestDatabaseHealthChecker_Unhealthy(t *testing.T) {
	checker := DatabaseHealthChecker("documents", func(ctx context.Context) error {
		return errors.New("connection failed")
	})

	result := checker.Check(context.Background())

	if result.Status != StatusUnhealthy {
		t.Errorf("Expected status to be unhealthy, got %s", result.Status)
	}

	if result.Error == "" {
		t.Error("Expected error message to be set")
	}
}

func TestManager_HTTPHandler(t *testing.T) {
	logger := zap.NewNop()
	manager := NewManager("miloh", "1.0.0", logger)

	manager.AddCheckerFunc("docstore", func(ctx context.Context) CheckResult {
		return CheckResult{
			Status:    StatusHealthy,
			Timestamp: time.Now(),
		}
	})

	handler := manager.HTTPHandler()

	req, err := http.NewRequest("GET", "/health", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, status)
	}

	if contentType := rr.Header().Get("Content-Type"); contentType != "application/json" {
		t.Errorf("Expected content type application/json, got %s", contentType)
	}
}

func TestManager_HTTPHandler_MethodNotAllowed(t *testing.T) {
	logger := zap.NewNop()
	manager := NewManager("miloh", "1.0.0", logger)

	handler := manager.HTTPHandler()

	req, err := http.NewRequest("POST", "/health", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusMethodNotAllowed {
		t.Errorf("Expected status code %d, got %d", http.StatusMethodNotAllowed, status)
	}
}

func TestManager_HTTPHandler_ServiceUnavailable(t *testing.T) {
	logger := zap.NewNop()
	manager := NewManager("miloh", "1.0.0", logger)

	manager.AddCheckerFunc("docstore", func(ctx context.Context) CheckResult {
		return CheckResult{
			Status:    StatusUnhealthy,
			Error:     "service is down",
			Timestamp: time.Now(),
		}
	})

	handler := manager.HTTPHandler()

	req, err := http.NewRequest("GET", "/health", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusServiceUnavailable {
		t.Errorf("Expected status code %d, got %d", http.StatusServiceUnavailable, status)
	}
}
