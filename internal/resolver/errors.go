package resolver

import (
	"errors"
	"fmt"
)

// MethodNotFoundError is returned when a dotted path does not resolve.
type MethodNotFoundError struct {
	Method string
	Reason string
}

func (e *MethodNotFoundError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("could not find the method to call: %s", e.Method)
	}
	return fmt.Sprintf("could not find the method to call: %s (%s)", e.Method, e.Reason)
}

// ErrorName identifies the error kind for reporting.
func (e *MethodNotFoundError) ErrorName() string {
	return "MethodNotFoundError"
}

// IsMethodNotFound reports whether err is or wraps a *MethodNotFoundError.
func IsMethodNotFound(err error) bool {
	var mnf *MethodNotFoundError
	return errors.As(err, &mnf)
}

func notFound(method, reason string) *MethodNotFoundError {
	return &MethodNotFoundError{Method: method, Reason: reason}
}
