package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/deckbridge/internal/validation"
)

// fixedDate is the run date used by tests that do not care about time.
var fixedDate = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestExample registers an example with minimal fields.
func createTestExample(t *testing.T, s *Store, name string) int64 {
	t.Helper()
	id, err := s.UpsertExample(context.Background(), Example{Name: name, CreatedAt: fixedDate})
	if err != nil {
		t.Fatalf("UpsertExample(%q) failed: %v", name, err)
	}
	return id
}

func ref(v float64) *float64 { return &v }

// sampleRecords returns one passing, one failing and one informational record.
func sampleRecords() []validation.Record {
	return []validation.Record{
		validation.Evaluate("frequency_mode_1", 10.1, ref(10), 0.05),
		validation.Evaluate("max_displacement", 0.8, ref(1), 0.05),
		validation.Evaluate("node_count", 4, nil, 0.05),
	}
}
