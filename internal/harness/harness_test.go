package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/appcore/internal/compiler"
	"github.com/roach88/appcore/internal/ir"
)

func loadRepoScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("../../testdata/scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRunWithGolden_ContactsRefresh(t *testing.T) {
	scenario := loadRepoScenario(t, "contacts_refresh")

	// To regenerate:
	//   go test ./internal/harness -run TestRunWithGolden_ContactsRefresh -update
	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ContactsRefreshHeaders(t *testing.T) {
	result, err := Run(loadRepoScenario(t, "contacts_refresh"))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Requests, 4)

	assert.Equal(t, "Bearer stale", result.Requests[0].Headers["Authorization"])
	assert.Equal(t, "Bearer stale", result.Requests[1].Headers["Authorization"])
	assert.Equal(t, "Bearer fresh", result.Requests[2].Headers["Authorization"])
	assert.Equal(t, "application/json; charset=utf-8", result.Requests[3].Headers["Content-Type"])
}

func TestRun_ContactsErrors(t *testing.T) {
	result, err := Run(loadRepoScenario(t, "contacts_errors"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Steps, 4)
	assert.Equal(t, "ResponseError", result.Steps[0].ErrorName)
	assert.Contains(t, result.Steps[0].ErrorMessage, `Received content "boom"`)
	assert.Equal(t, "RefreshAuthError", result.Steps[1].ErrorName)
	assert.Equal(t, "MethodNotFoundError", result.Steps[2].ErrorName)
	assert.False(t, result.Steps[3].Failed())

	require.Len(t, result.Journal, 4)
	assert.Equal(t, "contacts_errors-2", result.Journal[1].ID)
	assert.True(t, result.Journal[1].Refreshed)
	assert.Equal(t, "error", result.Journal[1].Outcome)
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	scenario := loadRepoScenario(t, "contacts_refresh")
	scenario.Steps[1].Expect = &Expect{Results: map[string]any{"id": 4}}
	scenario.Assertions = append(scenario.Assertions, Assertion{Type: AssertJournalCount, Outcome: "error", Count: 1})

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "steps[1] creates.contactCreate.operation.perform: results: expected")
	assert.Contains(t, result.Errors[1], "assertions[3] journal_count")
}

func TestRun_UnansweredRequest(t *testing.T) {
	scenario := loadRepoScenario(t, "contacts_refresh")
	scenario.Responses = nil
	scenario.Assertions = nil
	scenario.Steps = scenario.Steps[1:]
	scenario.Steps[0].Expect = &Expect{ErrorPrefix: "no canned response for POST https://api.example.com/contacts"}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Requests, 1)
}

func TestRun_WithRegistry(t *testing.T) {
	dir := t.TempDir()
	appDir := filepath.Join(dir, "app")
	require.NoError(t, os.MkdirAll(appDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "app.cue"), []byte(`package app

app: {
	key: "greeter"
	version: "1.0.0"
	creates: greet: {
		noun: "Greeting"
		display: label: "Greet"
		operation: perform: handler: "greet"
	}
}
`), 0644))

	reg := compiler.NewRegistry().Perform("greet", ir.SyncFunc(func(_ context.Context, _ ir.Z, b *ir.Bundle) (any, error) {
		return map[string]any{"message": "hello " + b.InputData["name"].(string)}, nil
	}))

	scenario := &Scenario{
		Name:        "greeter",
		Description: "Go handlers run through the engine",
		App:         appDir,
		Steps: []Step{{
			Method: "creates.greet.operation.perform",
			Bundle: map[string]any{"inputData": map[string]any{"name": "Ada"}},
			Expect: &Expect{Results: map[string]any{"message": "hello Ada"}},
		}},
		Assertions: []Assertion{{Type: AssertRequestCount, Count: 0}},
	}

	result, err := Run(scenario, WithRegistry(reg))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Journal, 1)
	assert.Equal(t, "greeter-1", result.Journal[0].ID)
	assert.Equal(t, 0, result.Journal[0].Requests)
}

func TestRun_BadApp(t *testing.T) {
	scenario := &Scenario{
		Name:  "bad",
		App:   t.TempDir(),
		Steps: []Step{{Method: "creates.x.operation.perform"}},
	}
	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load app")
}

func TestCannedTransport(t *testing.T) {
	tr := newCannedTransport([]CannedResponse{
		{Method: "GET", URL: "https://a.example.com/x", Status: 404, Times: 1},
		{URLPrefix: "https://a.example.com/", Body: map[string]any{"ok": true}, Headers: map[string]string{"X-Id": "1"}},
		{URL: "https://b.example.com", Body: "plain"},
	})
	ctx := context.Background()

	resp, err := tr.Do(ctx, &ir.Request{URL: "https://a.example.com/x"})
	require.NoError(t, err)
	assert.Equal(t, 404, resp.Status)

	resp, err = tr.Do(ctx, &ir.Request{URL: "https://a.example.com/x"})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.JSONEq(t, `{"ok":true}`, resp.Content)
	assert.Equal(t, "1", resp.Headers["X-Id"])
	assert.Equal(t, "https://a.example.com/x", resp.Request.URL)

	resp, err = tr.Do(ctx, &ir.Request{Method: "POST", URL: "https://b.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "plain", resp.Content)

	_, err = tr.Do(ctx, &ir.Request{URL: "https://c.example.com"})
	require.EqualError(t, err, "no canned response for GET https://c.example.com")

	recorded := tr.recorded()
	require.Len(t, recorded, 4)
	assert.Equal(t, "GET", recorded[0].Method)
	assert.Equal(t, "POST", recorded[2].Method)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = tr.Do(cancelled, &ir.Request{URL: "https://b.example.com"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, tr.recorded(), 4)
}

func TestSnapshot_Marshal(t *testing.T) {
	result := NewResult()
	result.Steps = []StepResult{{Index: 0, Method: "m", Results: map[string]any{"b": 1, "a": "<x>"}}}

	data, err := NewSnapshot("snap", result).Marshal()
	require.NoError(t, err)

	want := `{
  "journal": [],
  "requests": [],
  "scenario_name": "snap",
  "steps": [
    {
      "index": 0,
      "method": "m",
      "results": {
        "a": "<x>",
        "b": 1
      }
    }
  ]
}
`
	assert.Equal(t, want, string(data))
}
