package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/appcore/internal/ir"
)

// MaxContentLength is how much of a response body a ResponseError quotes.
const MaxContentLength = 250

var (
	errNilRequest  = errors.New("before middleware returned no request")
	errNilResponse = errors.New("after middleware returned no response")
)

// ResponseError reports a non-2xx response.
type ResponseError struct {
	Status  int
	Method  string
	URL     string
	Content string
	Elapsed time.Duration

	Response *ir.Response
}

// NewResponseError describes resp. The request is taken from resp.Request.
func NewResponseError(resp *ir.Response) *ResponseError {
	e := &ResponseError{
		Status:   resp.Status,
		Content:  resp.Content,
		Elapsed:  resp.Elapsed,
		Response: resp,
	}
	if resp.Request != nil {
		e.Method = resp.Request.Method
		e.URL = resp.Request.URL
	}
	return e
}

// Error renders the multi-line "What happened" report.
func (e *ResponseError) Error() string {
	headline := fmt.Sprintf("Got %d calling %s %s, expected 2xx.", e.Status, e.Method, e.URL)

	var sb strings.Builder
	sb.WriteString(headline)
	sb.WriteString("\nWhat happened:")
	fmt.Fprintf(&sb, "\n  Starting %s request to %s", e.Method, e.URL)
	fmt.Fprintf(&sb, "\n  Received %d code from %s after %dms", e.Status, e.URL, e.Elapsed.Milliseconds())
	fmt.Fprintf(&sb, "\n  Received content \"%s\"", truncate(e.Content, MaxContentLength))
	sb.WriteString("\n  ")
	sb.WriteString(headline)
	return sb.String()
}

func (e *ResponseError) ErrorName() string { return "ResponseError" }

// AuthFailureError signals that a request was rejected with 401 while the app
// is configured to refresh its credentials. The engine catches it.
type AuthFailureError struct {
	Response *ir.Response
}

func (e *AuthFailureError) Error() string {
	method, url := "", ""
	if e.Response != nil && e.Response.Request != nil {
		method, url = e.Response.Request.Method, e.Response.Request.URL
	}
	return fmt.Sprintf("authentication failed calling %s %s, credentials need a refresh", method, url)
}

func (e *AuthFailureError) ErrorName() string { return "AuthFailureError" }

// IsAuthFailure reports whether err is or wraps an *AuthFailureError.
func IsAuthFailure(err error) bool {
	var af *AuthFailureError
	return errors.As(err, &af)
}

// IsResponseError reports whether err is or wraps a *ResponseError.
func IsResponseError(err error) bool {
	var re *ResponseError
	return errors.As(err, &re)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
