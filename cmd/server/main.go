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

// Package main provides the Miloh service: the HTTP surface that answers
// student support requests during office hours.
package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/your-org/oh-assistant/internal/category"
	"github.com/your-org/oh-assistant/internal/config"
	"github.com/your-org/oh-assistant/internal/conversation"
	"github.com/your-org/oh-assistant/internal/docstore"
	"github.com/your-org/oh-assistant/internal/health"
	"github.com/your-org/oh-assistant/internal/llm"
	"github.com/your-org/oh-assistant/internal/manual"
	"github.com/your-org/oh-assistant/internal/ocr"
	"github.com/your-org/oh-assistant/internal/pipeline"
	"github.com/your-org/oh-assistant/internal/prompts"
	"github.com/your-org/oh-assistant/internal/search"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// ServiceVersion is reported by the health endpoint
	ServiceVersion = "1.0.0"
	// HealthCheckTimeout is the timeout for dependency health checks
	HealthCheckTimeout = 10 * time.Second
	// ConfigPath is the default configuration file location
	ConfigPath = "./configs/config.yaml"
)

// RequestProcessor runs one support request through the answering pipeline.
type RequestProcessor interface {
	Process(ctx context.Context, ticket conversation.Ticket, promptSet prompts.Set) (*pipeline.Record, error)
}

// Server holds the request handlers' dependencies.
type Server struct {
	mu            sync.RWMutex
	config        *config.Config
	logger        *zap.Logger
	processor     RequestProcessor
	healthManager *health.Manager
}

// applyConfig swaps in a reloaded configuration. Only request-time settings
// (the shared secret and the course) take effect; collaborator wiring is
// built once at startup.
func (s *Server) applyConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

func (s *Server) currentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

func main() {
	logger, _ := zap.NewProduction()

	cfg, err := config.Load(ConfigPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, err = buildLogger(cfg.Logging)
	if err != nil {
		logger.Fatal("Failed to build logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	maskedConfig := cfg.MaskSensitiveValues()
	logger.Info("Configuration loaded successfully",
		zap.String("service", "miloh"),
		zap.String("course", maskedConfig.Course),
		zap.String("auth_secret", maskedConfig.Auth.Secret),
		zap.String("openai_model", maskedConfig.OpenAI.Model),
		zap.String("openai_api_key", maskedConfig.OpenAI.APIKey),
		zap.String("ocr_url", maskedConfig.Services.OCRURL),
		zap.String("search_url", maskedConfig.Services.SearchURL),
		zap.String("docstore_db_path", maskedConfig.Docstore.DBPath),
	)

	store, err := docstore.NewStore(cfg.Docstore.DBPath)
	if err != nil {
		logger.Fatal("Failed to open document store", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	llmClient, err := llm.NewClient(cfg.OpenAI.APIKey, llm.Options{
		Model:       cfg.OpenAI.Model,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Temperature: float32(cfg.OpenAI.Temperature),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create OpenAI client", zap.Error(err))
	}

	ocrClient := ocr.NewClient(cfg.Services.OCRURL, logger)
	searchClient := search.NewClient(cfg.Services.SearchURL, logger)

	router := category.NewRouter(
		category.Sets{
			Assignment: cfg.Categories.Assignment,
			Content:    cfg.Categories.Content,
			Logistics:  cfg.Categories.Logistics,
			Worksheet:  cfg.Categories.Worksheet,
		},
		category.Indexes{
			Content:   category.IndexParams{Name: cfg.Indexes.Content.Name, TopK: cfg.Indexes.Content.TopK},
			Logistics: category.IndexParams{Name: cfg.Indexes.Logistics.Name, TopK: cfg.Indexes.Logistics.TopK},
			Worksheet: category.IndexParams{Name: cfg.Indexes.Worksheet.Name, TopK: cfg.Indexes.Worksheet.TopK},
		},
	)

	processor, err := pipeline.New(pipeline.Options{
		Builder:            conversation.NewBuilder(ocrClient, logger),
		Classifier:         buildClassifier(cfg.Classifier),
		Router:             router,
		Generator:          llmClient,
		QASearch:           searchClient,
		Hybrid:             searchClient,
		Manual:             manual.NewRetriever(llmClient, store, logger),
		QATopK:             cfg.QA.TopK,
		CategoryMapping:    cfg.Mappings.Problems,
		SubcategoryMapping: cfg.Mappings.Documents,
		Logger:             logger,
	})
	if err != nil {
		logger.Fatal("Failed to build pipeline", zap.Error(err))
	}

	healthManager := health.NewManager("miloh", ServiceVersion, logger)
	healthManager.SetTimeout(HealthCheckTimeout)
	healthManager.AddChecker("docstore", health.DatabaseHealthChecker("documents", func(ctx context.Context) error {
		return store.Ping()
	}))
	healthManager.AddChecker("ocr", health.ServiceHealthChecker(cfg.Services.OCRURL+"/health", nil))
	healthManager.AddChecker("search", health.ServiceHealthChecker(cfg.Services.SearchURL+"/health", nil))

	server := &Server{
		config:        cfg,
		logger:        logger,
		processor:     processor,
		healthManager: healthManager,
	}

	if err := config.WatchConfig(ConfigPath, func(newCfg *config.Config) {
		logger.Info("Configuration reloaded, applying request-time settings")
		server.applyConfig(newCfg)
	}); err != nil {
		logger.Warn("Configuration hot reload unavailable", zap.Error(err))
	}

	engine := setupRouter(server)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Starting Miloh server",
		zap.String("addr", addr),
		zap.String("course", cfg.Course),
		zap.String("service", "miloh"),
	)

	if err := engine.Run(addr); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

// setupRouter builds the Gin engine with the service routes.
func setupRouter(s *Server) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())

	engine.POST("/miloh", s.handleMiloh)
	engine.GET("/health", s.handleHealth)

	return engine
}

// handleMiloh answers one support request. The shared secret is checked
// before any collaborator work starts; an unreadable body is treated as an
// empty ticket rather than rejected.
func (s *Server) handleMiloh(c *gin.Context) {
	cfg := s.currentConfig()

	if c.GetHeader("Authorization") != cfg.Auth.Secret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var ticket conversation.Ticket
	if err := c.ShouldBindJSON(&ticket); err != nil {
		s.logger.Warn("Request body did not parse, proceeding with empty ticket", zap.Error(err))
		ticket = conversation.Ticket{}
	}

	promptSet, err := prompts.ForCourse(cfg.Course)
	if err != nil {
		s.logger.Error("Failed to resolve course prompts", zap.String("course", cfg.Course), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	record, err := s.processor.Process(c.Request.Context(), ticket, promptSet)
	if err != nil {
		s.logger.Error("Failed to process request",
			zap.String("assignment", ticket.Assignment),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"Miloh": record.Final})
}

// handleHealth returns the health status
func (s *Server) handleHealth(c *gin.Context) {
	s.healthManager.HTTPHandler().ServeHTTP(c.Writer, c.Request)
}

// buildClassifier constructs the configured classification strategy.
func buildClassifier(cfg config.ClassifierConfig) category.Classifier {
	if cfg.Mode == "keyword" {
		return category.KeywordClassifier{
			Keywords: cfg.Keywords,
			Fallback: cfg.StaticLabel,
		}
	}
	return category.StaticClassifier{Label: cfg.StaticLabel}
}

// buildLogger constructs the zap logger from the logging configuration.
func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.Format == "text" {
		zapCfg.Encoding = "console"
	}
	if cfg.Output != "" {
		zapCfg.OutputPaths = []string{cfg.Output}
	}

	return zapCfg.Build()
}
