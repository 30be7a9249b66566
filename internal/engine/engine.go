package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/appcore/internal/compiler"
	"github.com/roach88/appcore/internal/hydrate"
	"github.com/roach88/appcore/internal/ir"
	"github.com/roach88/appcore/internal/middleware"
	"github.com/roach88/appcore/internal/resolver"
	"github.com/roach88/appcore/internal/transport"
)

// Commands accepted in Input.Command.
const (
	CommandExecute = "execute"
	CommandRequest = "request"
)

// Input is the invocation envelope.
type Input struct {
	Command string     `json:"command,omitempty" yaml:"command,omitempty"`
	Method  string     `json:"method" yaml:"method"`
	Bundle  *ir.Bundle `json:"bundle" yaml:"-"`
}

// Output is a successful invocation's result.
type Output struct {
	InvocationID string `json:"invocationId"`
	Results      any    `json:"results"`
}

// Transport sends a finalized request. Non-2xx responses are not errors at
// this level.
type Transport interface {
	Do(ctx context.Context, req *ir.Request) (*ir.Response, error)
}

// Engine executes invocations against one app definition.
type Engine struct {
	app       *ir.AppDefinition
	schema    *ir.CompiledSchema
	resolver  *resolver.Resolver
	pipeline  *middleware.Pipeline
	transport Transport
	logger    *slog.Logger
	ids       IDGenerator
	clock     *Clock
	time      TimeSource
	observers []Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the base logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithTransport replaces the default net/http transport.
func WithTransport(t Transport) Option {
	return func(e *Engine) {
		e.transport = t
	}
}

// WithObserver registers observers for finished invocations.
func WithObserver(obs ...Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, obs...)
	}
}

// WithIDGenerator sets the invocation ID source. Defaults to UUIDv7.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithClock sets the sequence clock, e.g. one resumed from a journal.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithTimeSource sets the wall clock used for timestamps and durations.
func WithTimeSource(ts TimeSource) Option {
	return func(e *Engine) {
		e.time = ts
	}
}

// New compiles app and builds its middleware pipeline. The definition is
// only read from here on; callers must not modify it afterwards.
func New(app *ir.AppDefinition, opts ...Option) (*Engine, error) {
	if app == nil {
		return nil, errors.New("engine: nil app definition")
	}
	schema, err := compiler.CompileApp(app)
	if err != nil {
		return nil, fmt.Errorf("engine: compile app: %w", err)
	}

	e := &Engine{
		app:      app,
		schema:   schema,
		resolver: resolver.New(app, schema),
		pipeline: middleware.ForApp(app),
		logger:   slog.Default(),
		ids:      UUIDv7Generator{},
		clock:    NewClock(),
		time:     systemTime{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.transport == nil {
		e.transport = transport.New(transport.WithLogger(e.logger))
	}
	return e, nil
}

// Schema returns the compiled schema. Callers must treat it as read-only.
func (e *Engine) Schema() *ir.CompiledSchema {
	return e.schema
}

// Execute runs one invocation. Failures are returned unchanged except for
// the auth refresh path, which reports *RefreshAuthError.
func (e *Engine) Execute(ctx context.Context, in Input) (*Output, error) {
	inv := e.newInvocation(in)
	started := e.time.Now()
	inv.logger.Debug("invocation starting", "command", inv.command)

	results, err := inv.run(ctx)
	if err == nil {
		results, err = hydrate.Encode(results)
	}

	ev := Event{
		InvocationID: inv.id,
		Seq:          e.clock.Next(),
		Command:      inv.command,
		Method:       in.Method,
		BundleHash:   inv.bundleHash(),
		Outcome:      OutcomeSuccess,
		Refreshed:    inv.refreshed,
		Requests:     int(inv.requests.Load()),
		StartedAt:    started,
		Duration:     e.time.Now().Sub(started),
	}
	if err != nil {
		ev.Outcome = OutcomeError
		ev.ErrorName = ErrorName(err)
		ev.ErrorMessage = err.Error()
		inv.logger.Error("invocation failed", "error_name", ev.ErrorName, "error", err, "duration_ms", ev.Duration.Milliseconds())
	} else {
		inv.logger.Info("invocation completed", "requests", ev.Requests, "refreshed", ev.Refreshed, "duration_ms", ev.Duration.Milliseconds())
	}
	for _, obs := range e.observers {
		obs.InvocationCompleted(ctx, ev)
	}

	if err != nil {
		return nil, err
	}
	return &Output{InvocationID: inv.id, Results: results}, nil
}
