package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/appcore/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <app-dir>",
		Short: "Check an app definition for authoring mistakes",
		Long: `Load the CUE app definition in <app-dir> and report every problem found:
mismatched keys, missing nouns, operations with nothing to perform,
unknown resources and incomplete authentication.

Exit codes:
  0 - Definition is valid
  1 - Validation errors were found
  2 - The definition could not be loaded`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, appDir string, cmd *cobra.Command) error {
	if err := opts.init(cmd); err != nil {
		return err
	}
	formatter := newFormatter(opts, cmd)

	loaded, err := LoadAppDir(appDir, opts.registry())
	if err != nil {
		le := err.(*LoadError)
		return formatter.Fail(ExitCommandError, le.Code, le.Message, position(le.Pos))
	}
	formatter.VerboseLog("Loaded %d CUE file(s) from %s", loaded.FileCount, appDir)

	errs := compiler.Validate(loaded.App)
	if len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	if formatter.IsJSON() {
		return formatter.Success(ValidationResult{Valid: true})
	}
	fmt.Fprintln(formatter.Writer, "✓ App definition is valid")
	return nil
}

func outputValidationErrors(f *OutputFormatter, errs []compiler.ValidationError) error {
	summary := fmt.Sprintf("validation failed with %d error(s)", len(errs))

	if f.IsJSON() {
		if err := f.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		}); err != nil {
			return err
		}
		return &ExitError{Code: ExitFailure, Message: summary, reported: true}
	}

	fmt.Fprintln(f.Writer, "✗ Validation failed")
	fmt.Fprintln(f.Writer)
	for _, e := range errs {
		fmt.Fprintf(f.Writer, "  %s %s: %s\n", e.Code, e.Field, e.Message)
	}
	return &ExitError{Code: ExitFailure, Message: summary, reported: true}
}
