package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const selectColumns = `
	SELECT id, seq, command, method, bundle_hash, outcome, error_name, error_message,
	       refreshed, requests, started_at, duration_us
	FROM invocations`

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Method     string
	Outcome    string
	BundleHash string
	// Limit keeps only the newest Limit entries. Zero means no limit.
	Limit int
}

// List returns journal entries matching f, ordered by seq ascending.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Method != "" {
		where = append(where, "method = ?")
		args = append(args, f.Method)
	}
	if f.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, f.Outcome)
	}
	if f.BundleHash != "" {
		where = append(where, "bundle_hash = ?")
		args = append(args, f.BundleHash)
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Limit > 0 {
		// Newest first for the limit, then flip back to ascending.
		query = "SELECT * FROM (" + query + " ORDER BY seq DESC LIMIT ?) ORDER BY seq ASC"
		args = append(args, f.Limit)
	} else {
		query += " ORDER BY seq ASC"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return entries, nil
}

// Get retrieves a single entry by invocation ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	return scanEntry(row)
}

// MaxSeq returns the highest recorded sequence number, or 0 for an empty
// journal.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(seq) FROM invocations").Scan(&seq); err != nil {
		return 0, fmt.Errorf("query max seq: %w", err)
	}
	return seq.Int64, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e          Entry
		refreshed  int
		startedAt  string
		durationUS int64
	)
	err := row.Scan(
		&e.ID,
		&e.Seq,
		&e.Command,
		&e.Method,
		&e.BundleHash,
		&e.Outcome,
		&e.ErrorName,
		&e.ErrorMessage,
		&refreshed,
		&e.Requests,
		&startedAt,
		&durationUS,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	e.Refreshed = refreshed != 0
	e.Duration = time.Duration(durationUS) * time.Microsecond
	if e.StartedAt, err = unmarshalTime(startedAt); err != nil {
		return Entry{}, err
	}
	return e, nil
}
