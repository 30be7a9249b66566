package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/appcore/internal/ir"
)

// Snapshot is the deterministic part of a run compared against golden
// files. Durations and timestamps are left out.
type Snapshot struct {
	ScenarioName string            `json:"scenario_name"`
	Steps        []StepResult      `json:"steps"`
	Requests     []SnapshotRequest `json:"requests"`
	Journal      []SnapshotEntry   `json:"journal"`
}

// SnapshotRequest is a recorded request without headers.
type SnapshotRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
	Body   any    `json:"body,omitempty"`
}

// SnapshotEntry is a journal entry without timing.
type SnapshotEntry struct {
	ID        string `json:"id"`
	Seq       int64  `json:"seq"`
	Method    string `json:"method"`
	Outcome   string `json:"outcome"`
	ErrorName string `json:"error_name,omitempty"`
	Refreshed bool   `json:"refreshed"`
	Requests  int    `json:"requests"`
}

// NewSnapshot extracts the snapshot of a result.
func NewSnapshot(name string, result *Result) Snapshot {
	s := Snapshot{
		ScenarioName: name,
		Steps:        result.Steps,
		Requests:     make([]SnapshotRequest, len(result.Requests)),
		Journal:      make([]SnapshotEntry, len(result.Journal)),
	}
	for i, r := range result.Requests {
		s.Requests[i] = SnapshotRequest{Method: r.Method, URL: r.URL, Body: r.Body}
	}
	for i, e := range result.Journal {
		s.Journal[i] = SnapshotEntry{
			ID:        e.ID,
			Seq:       e.Seq,
			Method:    e.Method,
			Outcome:   e.Outcome,
			ErrorName: e.ErrorName,
			Refreshed: e.Refreshed,
			Requests:  e.Requests,
		}
	}
	return s
}

// Marshal renders the snapshot as canonical JSON, indented for review.
func (s Snapshot) Marshal() ([]byte, error) {
	data, err := ir.MarshalCanonical(s)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its
// snapshot with testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return result, err
	}
	return result, nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(name, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
