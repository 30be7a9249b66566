package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/appcore/internal/engine"
)

// Append inserts an entry into the journal.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
// A different ID reusing an existing seq is an error.
func (s *Store) Append(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return errors.New("append entry: empty id")
	}
	if e.Outcome != engine.OutcomeSuccess && e.Outcome != engine.OutcomeError {
		return fmt.Errorf("append entry %s: unknown outcome %q", e.ID, e.Outcome)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invocations
		(id, seq, command, method, bundle_hash, outcome, error_name, error_message, refreshed, requests, started_at, duration_us)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.ID,
		e.Seq,
		e.Command,
		e.Method,
		e.BundleHash,
		e.Outcome,
		e.ErrorName,
		e.ErrorMessage,
		boolToInt(e.Refreshed),
		e.Requests,
		marshalTime(e.StartedAt),
		e.Duration.Microseconds(),
	)
	if err != nil {
		return fmt.Errorf("append entry %s: %w", e.ID, err)
	}

	return nil
}
