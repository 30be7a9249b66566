package ir

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Request is both the shorthand request descriptor of an app definition and
// the outgoing request threaded through before-middleware.
type Request struct {
	Method  string            `json:"method,omitempty" yaml:"method,omitempty"`
	URL     string            `json:"url" yaml:"url"`
	Params  map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    any               `json:"body,omitempty" yaml:"body,omitempty"`

	// SkipThrowForStatus leaves non-2xx responses to the caller.
	SkipThrowForStatus bool `json:"skipThrowForStatus,omitempty" yaml:"skipThrowForStatus,omitempty"`

	// Shorthand marks requests that came from a definition rather than user
	// code; their {{bundle.*}} templates are rendered before sending.
	Shorthand bool `json:"-" yaml:"-"`
}

// Clone returns a copy that shares nothing mutable with r.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	c.Params = maps.Clone(r.Params)
	c.Headers = maps.Clone(r.Headers)
	c.Body = CloneValue(r.Body)
	return &c
}

// Response is the incoming response threaded through after-middleware.
type Response struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers"`
	Content string            `json:"content"`

	Request *Request      `json:"-"`
	Elapsed time.Duration `json:"-"`
}

// JSON decodes Content. An empty body decodes to nil.
func (r *Response) JSON() (any, error) {
	if r.Content == "" {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(r.Content), &v); err != nil {
		url := ""
		if r.Request != nil {
			url = r.Request.URL
		}
		return nil, fmt.Errorf("response from %s is not valid JSON: %w", url, err)
	}
	return v, nil
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}
