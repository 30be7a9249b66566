package store

import (
	"fmt"
	"time"

	"github.com/roach88/appcore/internal/engine"
)

// Entry is one journal row.
type Entry struct {
	ID           string        `json:"id"`
	Seq          int64         `json:"seq"`
	Command      string        `json:"command"`
	Method       string        `json:"method"`
	BundleHash   string        `json:"bundleHash"`
	Outcome      string        `json:"outcome"`
	ErrorName    string        `json:"errorName,omitempty"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	Refreshed    bool          `json:"refreshed"`
	Requests     int           `json:"requests"`
	StartedAt    time.Time     `json:"startedAt"`
	Duration     time.Duration `json:"durationNs"`
}

// EntryFromEvent converts an engine event into a journal entry.
func EntryFromEvent(ev engine.Event) Entry {
	return Entry{
		ID:           ev.InvocationID,
		Seq:          ev.Seq,
		Command:      ev.Command,
		Method:       ev.Method,
		BundleHash:   ev.BundleHash,
		Outcome:      ev.Outcome,
		ErrorName:    ev.ErrorName,
		ErrorMessage: ev.ErrorMessage,
		Refreshed:    ev.Refreshed,
		Requests:     ev.Requests,
		StartedAt:    ev.StartedAt,
		Duration:     ev.Duration,
	}
}

// Timestamps are stored as UTC RFC 3339 with nanoseconds so that string
// comparison matches chronological order.
func marshalTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func unmarshalTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unmarshal started_at: %w", err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
