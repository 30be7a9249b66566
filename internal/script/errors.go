package script

import (
	"errors"
	"fmt"
)

// ScriptError is an exception thrown (or a rejection raised) by a script.
// Name and Message come from the JavaScript error object.
type ScriptError struct {
	Name    string
	Message string
	Stack   string
}

func (e *ScriptError) Error() string {
	return e.Message
}

// ErrorName returns the JavaScript error name, e.g. "TypeError".
func (e *ScriptError) ErrorName() string {
	return e.Name
}

// IsScriptError reports whether err is or wraps a *ScriptError.
func IsScriptError(err error) bool {
	var se *ScriptError
	return errors.As(err, &se)
}

// TimeoutError is returned when a script exceeds its time budget.
type TimeoutError struct {
	Name    string
	Timeout string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("script %s interrupted after %s", e.Name, e.Timeout)
}
