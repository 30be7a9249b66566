package engine

import (
	"context"
	"time"
)

// Invocation outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Event summarizes one finished invocation.
type Event struct {
	InvocationID string
	Seq          int64
	Command      string
	Method       string
	BundleHash   string
	Outcome      string
	ErrorName    string
	ErrorMessage string
	Refreshed    bool
	Requests     int
	StartedAt    time.Time
	Duration     time.Duration
}

// Observer is told about every finished invocation, successful or not.
// Observers run synchronously on the invocation's goroutine and must not
// block for long.
type Observer interface {
	InvocationCompleted(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) InvocationCompleted(ctx context.Context, ev Event) { f(ctx, ev) }
