package store

import (
	"context"
	"log/slog"

	"github.com/roach88/appcore/internal/engine"
)

// Journal records finished invocations into a Store.
type Journal struct {
	store  *Store
	logger *slog.Logger
}

// NewJournal creates an observer writing to s. A nil logger uses slog.Default().
func NewJournal(s *Store, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{store: s, logger: logger}
}

// InvocationCompleted implements engine.Observer. Write failures are
// logged; they never fail the invocation.
func (j *Journal) InvocationCompleted(ctx context.Context, ev engine.Event) {
	if err := j.store.Append(context.WithoutCancel(ctx), EntryFromEvent(ev)); err != nil {
		j.logger.Error("journal append failed",
			"invocation_id", ev.InvocationID,
			"method", ev.Method,
			"error", err,
		)
	}
}

var _ engine.Observer = (*Journal)(nil)
