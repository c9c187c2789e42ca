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

// Package main provides the curated-document ingestion tool. It walks a
// docs tree laid out as <category>/<subcategory>/<doc-id>.md and loads each
// file into the document store that manual retrieval serves from.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/your-org/oh-assistant/internal/config"
	"github.com/your-org/oh-assistant/internal/docstore"
	"go.uber.org/zap"
)

var (
	docsPath   string
	configPath string
	dbPath     string
	dryRun     bool
)

// IngestStats tracks the outcome of one ingestion run.
type IngestStats struct {
	ProcessedCount int
	SuccessCount   int
	FailureCount   int
	SkippedCount   int
}

// DocumentWriter stores one curated document.
type DocumentWriter interface {
	AddDocument(doc docstore.Document) error
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Office Hours Assistant curated document ingestion tool",
		RunE:  runIngest,
	}

	rootCmd.Flags().StringVarP(&docsPath, "docs-path", "d", "./docs", "Path to curated documents directory")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "./configs/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVar(&dbPath, "db-path", "", "Document database path (overrides config)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse documents without writing to the database")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIngest(_ *cobra.Command, _ []string) error {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("Failed to load configuration", zap.Error(err))
		return err
	}

	target := dbPath
	if target == "" {
		target = cfg.Docstore.DBPath
	}

	logger.Info("Starting document ingestion",
		zap.String("docs_path", docsPath),
		zap.String("db_path", target),
		zap.Bool("dry_run", dryRun),
	)

	var writer DocumentWriter = discardWriter{}
	if !dryRun {
		store, err := docstore.NewStore(target)
		if err != nil {
			logger.Error("Failed to open document store", zap.Error(err))
			return err
		}
		defer func() { _ = store.Close() }()
		writer = store
	}

	stats, err := loadDocuments(docsPath, writer, logger)
	if err != nil {
		return err
	}

	logger.Info("Ingestion complete",
		zap.Int("processed", stats.ProcessedCount),
		zap.Int("succeeded", stats.SuccessCount),
		zap.Int("failed", stats.FailureCount),
		zap.Int("skipped", stats.SkippedCount),
	)

	if stats.SuccessCount == 0 && stats.ProcessedCount > 0 {
		return fmt.Errorf("no documents were successfully ingested")
	}

	return nil
}

// loadDocuments walks the docs tree and writes every parseable document.
// Files outside the category/subcategory layout are skipped, not fatal.
func loadDocuments(root string, writer DocumentWriter, logger *zap.Logger) (*IngestStats, error) {
	stats := &IngestStats{}

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		if err := validateFilePath(root, path); err != nil {
			return fmt.Errorf("invalid file path %s: %w", path, err)
		}

		doc, err := docFromPath(root, path)
		if err != nil {
			logger.Debug("Skipping file outside the docs layout",
				zap.String("path", path),
				zap.Error(err),
			)
			stats.SkippedCount++
			return nil
		}

		stats.ProcessedCount++
		if err := writer.AddDocument(doc); err != nil {
			logger.Error("Failed to store document",
				zap.String("doc_id", doc.DocID),
				zap.Error(err),
			)
			stats.FailureCount++
			return nil
		}

		logger.Info("Ingested document",
			zap.String("doc_id", doc.DocID),
			zap.String("category", doc.Category),
			zap.String("subcategory", doc.Subcategory),
		)
		stats.SuccessCount++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk docs directory: %w", err)
	}

	return stats, nil
}

// docFromPath parses one file into a document. The tree layout encodes the
// category and subcategory; the doc id is the filename without extension.
func docFromPath(root, path string) (docstore.Document, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return docstore.Document{}, err
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return docstore.Document{}, fmt.Errorf("expected category/subcategory/file layout, got %s", rel)
	}

	content, err := os.ReadFile(path) // #nosec G304 - path validated by caller
	if err != nil {
		return docstore.Document{}, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	docID := strings.TrimSuffix(parts[2], filepath.Ext(parts[2]))

	return docstore.Document{
		DocID:       docID,
		Category:    parts[0],
		Subcategory: parts[1],
		Title:       documentTitle(string(content), docID),
		Content:     string(content),
	}, nil
}

// documentTitle takes the first markdown heading, falling back to the doc id.
func documentTitle(content, fallback string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return fallback
}

// validateFilePath ensures a file path stays under the base directory.
func validateFilePath(basePath, filePath string) error {
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return err
	}
	absFile, err := filepath.Abs(filePath)
	if err != nil {
		return err
	}

	if absFile != absBase && !strings.HasPrefix(absFile, absBase+string(filepath.Separator)) {
		return fmt.Errorf("directory traversal detected: %s escapes %s", filePath, basePath)
	}

	return nil
}

// discardWriter satisfies DocumentWriter for dry runs.
type discardWriter struct{}

func (discardWriter) AddDocument(docstore.Document) error { return nil }
