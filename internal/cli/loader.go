package cli

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"

	"github.com/roach88/appcore/internal/compiler"
	"github.com/roach88/appcore/internal/ir"
)

// Error codes used in CLI output.
const (
	ErrCodeGeneric          = "E001" // Generic/unknown error
	ErrCodeScanError        = "E002" // Directory scan error
	ErrCodeNoFiles          = "E003" // No CUE files found
	ErrCodeLoadFailed       = "E004" // CUE load failed
	ErrCodeNotFound         = "E005" // Path not found
	ErrCodeCompileFailed    = "E006" // Definition does not compile
	ErrCodeWriteFailed      = "E007" // File write error
	ErrCodeInvalidInput     = "E008" // Bad --bundle or flag value
	ErrCodeInvocationFailed = "E009" // The invocation returned an error
	ErrCodeJournal          = "E010" // Journal could not be opened or read
)

// LoadResult is an app loaded from a directory.
type LoadResult struct {
	App       *ir.AppDefinition
	FileCount int
}

// LoadError is a load failure with its CLI error code.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
	Err     error
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadAppDir loads the app definition in dir and maps failures to CLI codes.
func LoadAppDir(dir string, reg *compiler.Registry) (*LoadResult, error) {
	app, n, err := compiler.LoadDir(dir, reg)
	if err != nil {
		return nil, toLoadError(dir, err)
	}
	return &LoadResult{App: app, FileCount: n}, nil
}

func toLoadError(dir string, err error) *LoadError {
	var dirErr *compiler.LoadDirError
	if errors.As(err, &dirErr) {
		le := &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("%s: %s", dirErr.Message, dir), Err: err}
		switch {
		case dirErr.Stage == "stat":
			le.Code = ErrCodeNotFound
		case dirErr.Stage == "scan" && dirErr.Err == nil:
			le.Code = ErrCodeNoFiles
		case dirErr.Stage == "scan":
			le.Code = ErrCodeScanError
		case dirErr.Stage == "load":
			le.Code = ErrCodeLoadFailed
			le.Message = dirErr.Message
		}
		return le
	}

	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeCompileFailed,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
			Err:     err,
		}
	}

	return &LoadError{Code: ErrCodeGeneric, Message: err.Error(), Err: err}
}

// position renders a CUE position as file:line:col, or "" when unknown.
func position(pos token.Pos) string {
	if !pos.IsValid() {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", pos.Filename(), pos.Line(), pos.Column())
}
