package harness

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"github.com/roach88/appcore/internal/store"
)

// checkStep compares a step outcome with its expectation and returns one
// message per mismatch. A step without expectations must succeed.
func checkStep(step Step, sr StepResult) []string {
	exp := step.Expect
	if exp == nil {
		if sr.Failed() {
			return []string{fmt.Sprintf("unexpected %s: %s", sr.ErrorName, sr.ErrorMessage)}
		}
		return nil
	}

	if exp.wantsError() {
		if !sr.Failed() {
			return []string{fmt.Sprintf("expected error %s, got success", describeError(exp))}
		}
		var msgs []string
		if exp.ErrorName != "" && exp.ErrorName != sr.ErrorName {
			msgs = append(msgs, fmt.Sprintf("error name: expected %s, got %s", exp.ErrorName, sr.ErrorName))
		}
		if exp.ErrorPrefix != "" && !strings.HasPrefix(sr.ErrorMessage, exp.ErrorPrefix) {
			msgs = append(msgs, fmt.Sprintf("error message: expected prefix %q, got %q", exp.ErrorPrefix, sr.ErrorMessage))
		}
		return msgs
	}

	if sr.Failed() {
		return []string{fmt.Sprintf("unexpected %s: %s", sr.ErrorName, sr.ErrorMessage)}
	}

	var msgs []string
	if exp.Results != nil {
		want, err := normalize(exp.Results)
		if err != nil {
			return []string{fmt.Sprintf("expected results are not JSON: %v", err)}
		}
		if !valuesEqual(sr.Results, want) {
			msgs = append(msgs, fmt.Sprintf("results: expected %s, got %s", compact(want), compact(sr.Results)))
		}
	}

	for _, path := range slices.Sorted(maps.Keys(exp.Paths)) {
		want, err := normalize(exp.Paths[path])
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("path %s: expected value is not JSON: %v", path, err))
			continue
		}
		got, err := jsonpath.Get(path, sr.Results)
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("path %s: %v", path, err))
			continue
		}
		if !valuesEqual(got, want) {
			msgs = append(msgs, fmt.Sprintf("path %s: expected %s, got %s", path, compact(want), compact(got)))
		}
	}
	return msgs
}

func describeError(exp *Expect) string {
	if exp.ErrorName != "" {
		return exp.ErrorName
	}
	return fmt.Sprintf("with prefix %q", exp.ErrorPrefix)
}

// EvaluateAssertions checks scenario-level assertions against a finished
// run and returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var msgs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertRequestCount:
			err = assertRequestCount(result.Requests, a)
		case AssertRequestOrder:
			err = assertRequestOrder(result.Requests, a)
		case AssertJournalCount:
			err = assertJournalCount(result.Journal, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d] %s: %v", i, a.Type, err))
		}
	}
	return msgs
}

func assertRequestCount(requests []RecordedRequest, a Assertion) error {
	n := 0
	for _, r := range requests {
		if a.HTTPMethod != "" && !strings.EqualFold(a.HTTPMethod, r.Method) {
			continue
		}
		if a.URL != "" && a.URL != r.URL {
			continue
		}
		if a.URLPrefix != "" && !strings.HasPrefix(r.URL, a.URLPrefix) {
			continue
		}
		n++
	}
	if n != a.Count {
		return fmt.Errorf("expected %d matching request(s), got %d", a.Count, n)
	}
	return nil
}

// assertRequestOrder requires each URL prefix to match a request after the
// previous match. Other requests may appear in between.
func assertRequestOrder(requests []RecordedRequest, a Assertion) error {
	next := 0
	for _, want := range a.URLs {
		found := false
		for next < len(requests) {
			r := requests[next]
			next++
			if strings.HasPrefix(r.URL, want) {
				found = true
				break
			}
		}
		if !found {
			urls := make([]string, len(requests))
			for i, r := range requests {
				urls[i] = r.URL
			}
			return fmt.Errorf("expected %s in order %v, requests were %v", want, a.URLs, urls)
		}
	}
	return nil
}

func assertJournalCount(journal []store.Entry, a Assertion) error {
	n := 0
	for _, e := range journal {
		if a.Method != "" && a.Method != e.Method {
			continue
		}
		if a.Outcome != "" && a.Outcome != e.Outcome {
			continue
		}
		if a.Refreshed != nil && *a.Refreshed != e.Refreshed {
			continue
		}
		n++
	}
	if n != a.Count {
		return fmt.Errorf("expected %d matching journal entries, got %d", a.Count, n)
	}
	return nil
}

// valuesEqual compares JSON-normalized values.
func valuesEqual(actual, expected any) bool {
	return reflect.DeepEqual(actual, expected)
}

func compact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
