package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/appcore/internal/engine"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// App is the directory holding the app's .cue files.
	// Relative paths are resolved against the scenario file location.
	App string `yaml:"app"`

	// Responses answer outgoing requests, first match wins.
	Responses []CannedResponse `yaml:"responses,omitempty"`

	// Steps are executed in order against one engine.
	Steps []Step `yaml:"steps"`

	// Assertions validate the requests and journal after all steps ran.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// CannedResponse answers requests matching Method (any when empty) and
// either URL exactly or URLPrefix.
type CannedResponse struct {
	Method    string            `yaml:"method,omitempty"`
	URL       string            `yaml:"url,omitempty"`
	URLPrefix string            `yaml:"url_prefix,omitempty"`
	Status    int               `yaml:"status,omitempty"` // defaults to 200
	Headers   map[string]string `yaml:"headers,omitempty"`
	// Body is sent as-is when it is a string and JSON-encoded otherwise.
	Body any `yaml:"body,omitempty"`
	// Times limits how often the response is used. Zero means unlimited.
	Times int `yaml:"times,omitempty"`
}

// Step is one invocation.
type Step struct {
	Method  string         `yaml:"method"`
	Command string         `yaml:"command,omitempty"`
	Bundle  map[string]any `yaml:"bundle,omitempty"`
	Expect  *Expect        `yaml:"expect,omitempty"`
}

// Expect describes the expected outcome of a step. With no error fields
// set the step must succeed.
type Expect struct {
	// Results must equal the step's results after JSON normalization.
	Results any `yaml:"results,omitempty"`

	// ErrorName is the expected error name, e.g. "ResponseError".
	ErrorName string `yaml:"error_name,omitempty"`

	// ErrorPrefix must prefix the error message.
	ErrorPrefix string `yaml:"error_prefix,omitempty"`

	// Paths maps JSONPath expressions over the results to expected values.
	Paths map[string]any `yaml:"paths,omitempty"`
}

func (e *Expect) wantsError() bool {
	return e.ErrorName != "" || e.ErrorPrefix != ""
}

// Assertion types.
const (
	AssertRequestCount = "request_count"
	AssertRequestOrder = "request_order"
	AssertJournalCount = "journal_count"
)

// Assertion validates the recorded requests or the journal.
type Assertion struct {
	Type string `yaml:"type"`

	// Request matching (request_count).
	HTTPMethod string `yaml:"http_method,omitempty"`
	URL        string `yaml:"url,omitempty"`
	URLPrefix  string `yaml:"url_prefix,omitempty"`

	// URLs in expected order (request_order). Each is a prefix.
	URLs []string `yaml:"urls,omitempty"`

	// Journal matching (journal_count).
	Method    string `yaml:"method,omitempty"`
	Outcome   string `yaml:"outcome,omitempty"`
	Refreshed *bool  `yaml:"refreshed,omitempty"`

	Count int `yaml:"count"`
}

// LoadScenario reads a scenario YAML file, resolving the app path relative
// to the file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario decodes and validates scenario YAML. Relative app paths
// are joined to basePath.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if s.App != "" && !filepath.IsAbs(s.App) && basePath != "" {
		s.App = filepath.Join(basePath, s.App)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\ `) {
		return fmt.Errorf("name %q must not contain slashes or spaces", s.Name)
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.App == "" {
		return fmt.Errorf("app is required")
	}
	if info, err := os.Stat(s.App); err != nil || !info.IsDir() {
		return fmt.Errorf("app directory not found: %s", s.App)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, r := range s.Responses {
		if (r.URL == "") == (r.URLPrefix == "") {
			return fmt.Errorf("responses[%d]: exactly one of url or url_prefix is required", i)
		}
		if r.Status != 0 && (r.Status < 100 || r.Status > 599) {
			return fmt.Errorf("responses[%d]: invalid status %d", i, r.Status)
		}
		if r.Times < 0 {
			return fmt.Errorf("responses[%d]: times must be non-negative", i)
		}
	}

	for i, step := range s.Steps {
		if step.Method == "" {
			return fmt.Errorf("steps[%d]: method is required", i)
		}
		switch step.Command {
		case "", engine.CommandExecute, engine.CommandRequest:
		default:
			return fmt.Errorf("steps[%d]: unknown command %q", i, step.Command)
		}
		if e := step.Expect; e != nil && e.wantsError() && (e.Results != nil || len(e.Paths) > 0) {
			return fmt.Errorf("steps[%d].expect: results and paths cannot be combined with an expected error", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	switch a.Type {
	case AssertRequestCount:
		if a.URL != "" && a.URLPrefix != "" {
			return fmt.Errorf("assertions[%d]: url and url_prefix are exclusive", index)
		}
	case AssertRequestOrder:
		if len(a.URLs) == 0 {
			return fmt.Errorf("assertions[%d]: urls list is required for request_order", index)
		}
	case AssertJournalCount:
		switch a.Outcome {
		case "", engine.OutcomeSuccess, engine.OutcomeError:
		default:
			return fmt.Errorf("assertions[%d]: unknown outcome %q", index, a.Outcome)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
