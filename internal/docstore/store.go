// Package docstore holds the curated course materials that manual retrieval
// serves: worksheet solutions, assignment walkthroughs, and similar
// documents keyed by a stable doc id.
package docstore

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when no document exists for a doc id.
var ErrNotFound = errors.New("document not found")

// Store handles queries to the SQLite document database.
type Store struct {
	db *sql.DB
}

// NewStore opens (and if needed initializes) the document database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping() error {
	return s.db.Ping()
}

func (s *Store) initSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS documents (
			doc_id TEXT PRIMARY KEY,
			category TEXT,
			subcategory TEXT,
			title TEXT,
			content TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`

	_, err := s.db.Exec(query)
	return err
}

// Document is one curated document.
type Document struct {
	DocID       string `json:"doc_id"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Title       string `json:"title"`
	Content     string `json:"content"`
}

// AddDocument inserts or replaces a document.
func (s *Store) AddDocument(doc Document) error {
	query := `
		INSERT OR REPLACE INTO documents (doc_id, category, subcategory, title, content)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query, doc.DocID, doc.Category, doc.Subcategory, doc.Title, doc.Content)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	return nil
}

// GetDocument returns the document with the given id, or ErrNotFound.
func (s *Store) GetDocument(docID string) (Document, error) {
	query := `
		SELECT doc_id, category, subcategory, title, content
		FROM documents WHERE doc_id = ?
	`

	var doc Document
	err := s.db.QueryRow(query, docID).Scan(&doc.DocID, &doc.Category, &doc.Subcategory, &doc.Title, &doc.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, docID)
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to query document: %w", err)
	}

	return doc, nil
}

// ListBySubcategory returns all documents for a subcategory, ordered by id.
func (s *Store) ListBySubcategory(subcategory string) ([]Document, error) {
	query := `
		SELECT doc_id, category, subcategory, title, content
		FROM documents WHERE subcategory = ? ORDER BY doc_id
	`

	rows, err := s.db.Query(query, subcategory)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.DocID, &doc.Category, &doc.Subcategory, &doc.Title, &doc.Content); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// CountDocuments returns the number of stored documents.
func (s *Store) CountDocuments() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}
