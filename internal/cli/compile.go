package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/appcore/internal/compiler"
	"github.com/roach88/appcore/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string
}

// CompilationResult is the compile command's payload.
type CompilationResult struct {
	Key           string             `json:"key,omitempty"`
	Version       string             `json:"version,omitempty"`
	SchemaVersion string             `json:"schema_version"`
	Stats         CompilationStats   `json:"stats"`
	Schema        *ir.CompiledSchema `json:"schema"`
}

// CompilationStats counts what the compiled schema exposes.
type CompilationStats struct {
	Resources int `json:"resources"`
	Triggers  int `json:"triggers"`
	Searches  int `json:"searches"`
	Creates   int `json:"creates"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <app-dir>",
		Short: "Compile an app definition into its schema",
		Long: `Compile the CUE app definition in <app-dir> into the compiled schema:
every trigger, search and create, including those derived from resources.

Examples:
  appcore compile ./apps/contacts
  appcore compile ./apps/contacts -o schema.json
  appcore compile ./apps/contacts --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the compiled schema to a file")

	return cmd
}

func runCompile(opts *CompileOptions, appDir string, cmd *cobra.Command) error {
	if err := opts.init(cmd); err != nil {
		return err
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := LoadAppDir(appDir, opts.registry())
	if err != nil {
		le := err.(*LoadError)
		return formatter.Fail(ExitCommandError, le.Code, le.Message, position(le.Pos))
	}
	formatter.VerboseLog("Loaded %d CUE file(s) from %s", loaded.FileCount, appDir)

	schema, err := compiler.CompileApp(loaded.App)
	if err != nil {
		le := toLoadError(appDir, err)
		return formatter.Fail(ExitCommandError, le.Code, le.Message, position(le.Pos))
	}

	result := &CompilationResult{
		Key:           loaded.App.Key,
		Version:       loaded.App.Version,
		SchemaVersion: ir.SchemaVersion,
		Schema:        schema,
		Stats: CompilationStats{
			Resources: len(loaded.App.Resources),
			Triggers:  len(schema.Triggers),
			Searches:  len(schema.Searches),
			Creates:   len(schema.Creates),
		},
	}

	if opts.Output != "" {
		if err := writeSchemaFile(schema, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
		formatter.VerboseLog("Wrote compiled schema to %s", opts.Output)
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	printCompilation(formatter, result, opts.Output)
	return nil
}

func printCompilation(f *OutputFormatter, result *CompilationResult, outputFile string) {
	w := f.Writer
	name := result.Key
	if name == "" {
		name = "app"
	}
	fmt.Fprintf(w, "✓ Compiled %s: %d trigger(s), %d search(es), %d create(s)\n",
		name, result.Stats.Triggers, result.Stats.Searches, result.Stats.Creates)

	sections := []struct {
		title   string
		actions map[string]ir.Action
	}{
		{"Triggers", result.Schema.Triggers},
		{"Searches", result.Schema.Searches},
		{"Creates", result.Schema.Creates},
	}
	for _, s := range sections {
		if len(s.actions) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", s.title)
		for _, key := range slices.Sorted(maps.Keys(s.actions)) {
			action := s.actions[key]
			if action.Display.Label != "" {
				fmt.Fprintf(w, "  %s (%s)\n", key, action.Display.Label)
			} else {
				fmt.Fprintf(w, "  %s\n", key)
			}
		}
	}

	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote compiled schema to %s\n", outputFile)
	}
}

// writeSchemaFile writes the schema as indented canonical JSON.
func writeSchemaFile(schema *ir.CompiledSchema, filename string) error {
	data, err := ir.MarshalCanonical(schema)
	if err != nil {
		return fmt.Errorf("marshaling schema: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("indenting schema: %w", err)
	}
	buf.WriteByte('\n')
	return os.WriteFile(filename, buf.Bytes(), 0644)
}
