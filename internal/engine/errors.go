package engine

import (
	"errors"
	"fmt"
)

// RefreshAuthError reports that credentials could not be refreshed, or that
// the single retry with refreshed credentials still failed authentication.
type RefreshAuthError struct {
	// Method is the invocation's method path.
	Method string

	// Stage is "refresh" when the token perform failed and "retry" when the
	// retried invocation was rejected again.
	Stage string

	Cause error
}

const (
	refreshStage = "refresh"
	retryStage   = "retry"
)

func (e *RefreshAuthError) Error() string {
	switch e.Stage {
	case refreshStage:
		return fmt.Sprintf("could not refresh credentials for %s: %v", e.Method, e.Cause)
	default:
		return fmt.Sprintf("credentials still rejected after refresh for %s: %v", e.Method, e.Cause)
	}
}

func (e *RefreshAuthError) Unwrap() error { return e.Cause }

func (e *RefreshAuthError) ErrorName() string { return "RefreshAuthError" }

// IsRefreshAuthError reports whether err is or wraps a *RefreshAuthError.
// Uses errors.As to handle wrapped errors.
func IsRefreshAuthError(err error) bool {
	var re *RefreshAuthError
	return errors.As(err, &re)
}

// InputError reports a malformed invocation envelope.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return "invalid input: " + e.Message }

func (e *InputError) ErrorName() string { return "InputError" }

// PanicError carries a non-error value recovered from user code.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprint(e.Value) }

func (e *PanicError) ErrorName() string { return "PanicError" }

// ErrorName returns the name a failure is reported under. Typed errors name
// themselves through an ErrorName method; anything else is "Error".
func ErrorName(err error) string {
	if err == nil {
		return ""
	}
	var named interface{ ErrorName() string }
	if errors.As(err, &named) {
		return named.ErrorName()
	}
	return "Error"
}

func recovered(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &PanicError{Value: r}
}
