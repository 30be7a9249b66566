package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/appcore/internal/engine"
)

// createTestStore creates a new file-backed store in a temp dir.
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

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// createTestEntry creates a successful entry with minimal required fields.
func createTestEntry(id, method string, seq int64) Entry {
	return Entry{
		ID:         id,
		Seq:        seq,
		Command:    engine.CommandExecute,
		Method:     method,
		BundleHash: "hash-" + id,
		Outcome:    engine.OutcomeSuccess,
		StartedAt:  testStart.Add(time.Duration(seq) * time.Second),
		Duration:   1500 * time.Microsecond,
	}
}
