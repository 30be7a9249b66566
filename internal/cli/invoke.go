package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/appcore/internal/engine"
	"github.com/roach88/appcore/internal/ir"
	"github.com/roach88/appcore/internal/metrics"
	"github.com/roach88/appcore/internal/store"
	"github.com/roach88/appcore/internal/transport"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Bundle      string
	BundleFile  string
	Command     string
	Journal     string
	Metrics     bool
	HTTPTimeout time.Duration
	RateLimit   float64
}

// InvokeResult is the invoke command's JSON payload.
type InvokeResult struct {
	InvocationID string `json:"invocation_id"`
	Method       string `json:"method"`
	Results      any    `json:"results"`
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <app-dir> <method>",
		Short: "Invoke a method of an app definition",
		Long: `Load the app in <app-dir> and run one invocation of <method>, a dotted
path such as triggers.contactList.operation.perform.

The bundle is a JSON object with inputData, authData, meta and, for
--command request, request. It can also be read from a YAML or JSON file.

When a journal path is configured (journal.path or --journal) the
invocation is appended to it.

Examples:
  appcore invoke ./apps/contacts triggers.contactList.operation.perform \
    --bundle '{"authData":{"access_token":"t"}}'
  appcore invoke ./apps/contacts authentication.oauth2Config.authorizeUrl \
    --bundle-file bundle.yaml
  appcore invoke ./apps/contacts any --command request \
    --bundle '{"request":{"url":"https://api.example.com/me"}}'`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoke(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Bundle, "bundle", "", "bundle as JSON")
	cmd.Flags().StringVar(&opts.BundleFile, "bundle-file", "", "read the bundle from a YAML or JSON file")
	cmd.Flags().StringVar(&opts.Command, "command", engine.CommandExecute, "invocation command (execute|request)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "journal database path (overrides journal.path)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print invocation metrics to stderr")
	cmd.Flags().DurationVar(&opts.HTTPTimeout, "http-timeout", 0, "HTTP client timeout (overrides http.timeout)")
	cmd.Flags().Float64Var(&opts.RateLimit, "rate-limit", 0, "requests per second (overrides http.rate_limit)")

	return cmd
}

func runInvoke(opts *InvokeOptions, appDir, method string, cmd *cobra.Command) error {
	if err := opts.init(cmd); err != nil {
		return err
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch opts.Command {
	case engine.CommandExecute, engine.CommandRequest:
	default:
		return formatter.Fail(ExitCommandError, ErrCodeInvalidInput,
			fmt.Sprintf("unknown command %q: must be %s or %s", opts.Command, engine.CommandExecute, engine.CommandRequest), nil)
	}

	bundle, err := readBundle(opts.Bundle, opts.BundleFile)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, err.Error(), nil)
	}

	loaded, err := LoadAppDir(appDir, opts.registry())
	if err != nil {
		le := err.(*LoadError)
		return formatter.Fail(ExitCommandError, le.Code, le.Message, position(le.Pos))
	}

	cfg := opts.config
	timeout, rps := cfg.HTTP.Timeout, cfg.HTTP.RateLimit
	if cmd.Flags().Changed("http-timeout") {
		timeout = opts.HTTPTimeout
	}
	if cmd.Flags().Changed("rate-limit") {
		rps = opts.RateLimit
	}

	engineOpts := []engine.Option{
		engine.WithLogger(opts.logger),
		engine.WithTransport(transport.New(
			transport.WithTimeout(timeout),
			transport.WithRateLimit(rps, cfg.HTTP.Burst),
			transport.WithLogger(opts.logger),
		)),
	}

	journalPath := cfg.Journal.Path
	if cmd.Flags().Changed("journal") {
		journalPath = opts.Journal
	}
	if journalPath != "" {
		st, last, err := openJournal(ctx, journalPath)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, err.Error(), nil)
		}
		defer st.Close()
		formatter.VerboseLog("Journal %s at seq %d", journalPath, last)
		engineOpts = append(engineOpts,
			engine.WithClock(engine.NewClockAt(last)),
			engine.WithObserver(store.NewJournal(st, opts.logger)),
		)
	}

	var collector *metrics.Collector
	if opts.Metrics {
		collector = metrics.NewCollector(metrics.DefaultNamespace)
		engineOpts = append(engineOpts, engine.WithObserver(collector))
	}

	eng, err := engine.New(loaded.App, engineOpts...)
	if err != nil {
		le := toLoadError(appDir, err)
		return formatter.Fail(ExitCommandError, le.Code, le.Message, position(le.Pos))
	}

	out, err := eng.Execute(ctx, engine.Input{
		Command: opts.Command,
		Method:  method,
		Bundle:  bundle,
	})
	if collector != nil {
		if werr := collector.WriteText(formatter.errWriter()); werr != nil {
			opts.logger.Warn("failed to write metrics", "error", werr)
		}
	}
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInvocationFailed, err.Error(), map[string]string{
			"error_name": engine.ErrorName(err),
		})
	}

	if formatter.IsJSON() {
		return formatter.Success(InvokeResult{
			InvocationID: out.InvocationID,
			Method:       method,
			Results:      out.Results,
		})
	}
	formatter.VerboseLog("Invocation %s completed", out.InvocationID)
	return formatter.WriteValue(out.Results)
}

// readBundle decodes the bundle from --bundle or --bundle-file. YAML is a
// superset of JSON, so one decoder serves both.
func readBundle(inline, file string) (*ir.Bundle, error) {
	if inline != "" && file != "" {
		return nil, fmt.Errorf("--bundle and --bundle-file are mutually exclusive")
	}

	data := []byte(inline)
	source := "--bundle"
	if file != "" {
		var err error
		if data, err = os.ReadFile(file); err != nil {
			return nil, fmt.Errorf("failed to read bundle file: %w", err)
		}
		source = file
	}
	if len(data) == 0 {
		return ir.NewBundle(), nil
	}

	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid bundle in %s: %w", source, err)
	}
	b, err := ir.BundleFromMap(m)
	if err != nil {
		return nil, fmt.Errorf("invalid bundle in %s: %w", source, err)
	}
	return b, nil
}

// openJournal opens (creating if needed) the journal and returns its last
// sequence number so new entries continue after it.
func openJournal(ctx context.Context, path string) (*store.Store, int64, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, 0, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open journal: %w", err)
	}
	last, err := st.MaxSeq(ctx)
	if err != nil {
		st.Close()
		return nil, 0, fmt.Errorf("failed to read journal: %w", err)
	}
	return st, last, nil
}
