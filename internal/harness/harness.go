package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/appcore/internal/compiler"
	"github.com/roach88/appcore/internal/engine"
	"github.com/roach88/appcore/internal/ir"
	"github.com/roach88/appcore/internal/store"
	"github.com/roach88/appcore/internal/testutil"
)

type options struct {
	registry *compiler.Registry
	logger   *slog.Logger
}

// Option configures a run.
type Option func(*options)

// WithRegistry supplies the Go handlers referenced by {handler: ...}
// entries of the app definition.
func WithRegistry(reg *compiler.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithLogger routes engine logs. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// A returned error means the scenario could not be executed at all (bad
// app, journal failure). Failed expectations are reported in Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	app, _, err := compiler.LoadDir(scenario.App, o.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to load app: %w", err)
	}

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer st.Close()

	ids := make([]string, len(scenario.Steps))
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%d", scenario.Name, i+1)
	}

	transport := newCannedTransport(scenario.Responses)
	eng, err := engine.New(app,
		engine.WithTransport(transport),
		engine.WithLogger(o.logger),
		engine.WithObserver(store.NewJournal(st, o.logger)),
		engine.WithIDGenerator(engine.NewFixedGenerator(ids...)),
		engine.WithTimeSource(testutil.NewStepClock(time.Millisecond)),
	)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		sr, err := executeStep(ctx, eng, i, step)
		if err != nil {
			return nil, err
		}
		result.Steps = append(result.Steps, sr)
		for _, msg := range checkStep(step, sr) {
			result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Method, msg))
		}
	}

	result.Requests = transport.recorded()
	if result.Journal, err = st.List(ctx, store.Filter{}); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

func executeStep(ctx context.Context, eng *engine.Engine, index int, step Step) (StepResult, error) {
	sr := StepResult{Index: index, Method: step.Method, Command: step.Command}

	bundle, err := ir.BundleFromMap(step.Bundle)
	if err != nil {
		return sr, fmt.Errorf("steps[%d]: invalid bundle: %w", index, err)
	}

	out, err := eng.Execute(ctx, engine.Input{
		Command: step.Command,
		Method:  step.Method,
		Bundle:  bundle,
	})
	if err != nil {
		sr.ErrorName = engine.ErrorName(err)
		sr.ErrorMessage = err.Error()
		return sr, nil
	}

	if sr.Results, err = normalize(out.Results); err != nil {
		return sr, fmt.Errorf("steps[%d]: results are not JSON: %w", index, err)
	}
	return sr, nil
}

// normalize round-trips v through JSON so YAML-decoded expectations and
// engine results compare on equal footing.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
