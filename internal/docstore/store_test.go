package docstore

import (
	"errors"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestNewStore_UnusablePathFailsCleanly(t *testing.T) {
	// A directory is not a valid database file; schema init must fail and
	// NewStore must return the error rather than a half-open store.
	_, err := NewStore(t.TempDir())
	if err == nil {
		t.Fatal("NewStore succeeded on a directory path")
	}
}

func TestAddAndGetDocument(t *testing.T) {
	store := testStore(t)

	doc := Document{
		DocID:       "doc-3",
		Category:    "Homeworks",
		Subcategory: "induction",
		Title:       "HW 3 walkthrough",
		Content:     "Start from the base case.",
	}
	if err := store.AddDocument(doc); err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}

	got, err := store.GetDocument("doc-3")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if got != doc {
		t.Errorf("Round trip mismatch:\n got: %+v\nwant: %+v", got, doc)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	store := testStore(t)

	_, err := store.GetDocument("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAddDocument_Replaces(t *testing.T) {
	store := testStore(t)

	if err := store.AddDocument(Document{DocID: "doc-1", Content: "v1"}); err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}
	if err := store.AddDocument(Document{DocID: "doc-1", Content: "v2"}); err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}

	got, err := store.GetDocument("doc-1")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if got.Content != "v2" {
		t.Errorf("Expected replaced content, got %q", got.Content)
	}

	count, err := store.CountDocuments()
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 document, got %d", count)
	}
}

func TestListBySubcategory(t *testing.T) {
	store := testStore(t)

	docs := []Document{
		{DocID: "doc-2", Subcategory: "induction"},
		{DocID: "doc-1", Subcategory: "induction"},
		{DocID: "doc-3", Subcategory: "recursion"},
	}
	for _, doc := range docs {
		if err := store.AddDocument(doc); err != nil {
			t.Fatalf("AddDocument failed: %v", err)
		}
	}

	got, err := store.ListBySubcategory("induction")
	if err != nil {
		t.Fatalf("ListBySubcategory failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 documents, got %d", len(got))
	}
	if got[0].DocID != "doc-1" || got[1].DocID != "doc-2" {
		t.Errorf("Expected ordered ids doc-1, doc-2; got %s, %s", got[0].DocID, got[1].DocID)
	}
}

func TestPing(t *testing.T) {
	store := testStore(t)

	if err := store.Ping(); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
