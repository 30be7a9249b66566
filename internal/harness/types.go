package harness

import (
	"github.com/roach88/appcore/internal/store"
)

// RecordedRequest is one request the app sent during a run.
type RecordedRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body,omitempty"`
}

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Index        int    `json:"index"`
	Method       string `json:"method"`
	Command      string `json:"command,omitempty"`
	Results      any    `json:"results,omitempty"`
	ErrorName    string `json:"error_name,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Failed reports whether the step ended in an error.
func (s StepResult) Failed() bool {
	return s.ErrorName != ""
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	Steps    []StepResult      `json:"steps"`
	Requests []RecordedRequest `json:"requests"`
	Journal  []store.Entry     `json:"journal"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Steps:    []StepResult{},
		Requests: []RecordedRequest{},
		Journal:  []store.Entry{},
		Errors:   []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
