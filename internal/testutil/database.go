package testutil

import (
	"path/filepath"
	"testing"

	"github.com/Puumanamana/RAG-SRA/internal/database"
	"github.com/Puumanamana/RAG-SRA/internal/search"
)

// OpenBackends opens a temporary catalog and index seeded with the corpus.
// Both are closed when the test finishes.
func OpenBackends(t *testing.T) (*database.DB, *search.Index) {
	t.Helper()
	dir := t.TempDir()

	db, err := database.Initialize(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	index, err := search.Open(filepath.Join(dir, "test.bleve"))
	if err != nil {
		t.Fatalf("Failed to open index: %v", err)
	}
	t.Cleanup(func() { index.Close() })

	SeedCatalog(t, db)
	SeedIndex(t, index)
	return db, index
}

// SeedCatalog inserts the corpus into db.
func SeedCatalog(t *testing.T, db *database.DB) {
	t.Helper()
	if err := db.InsertStudies(Studies()); err != nil {
		t.Fatalf("Failed to seed catalog: %v", err)
	}
}

// SeedIndex indexes the corpus into index.
func SeedIndex(t *testing.T, index *search.Index) {
	t.Helper()
	if err := index.IndexBatch(Docs()); err != nil {
		t.Fatalf("Failed to seed index: %v", err)
	}
}
