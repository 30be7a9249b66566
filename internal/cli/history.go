package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/appcore/internal/engine"
	"github.com/roach88/appcore/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal    string
	Method     string
	Outcome    string
	BundleHash string
	Limit      int
}

// HistoryResult is the history command's JSON payload.
type HistoryResult struct {
	Journal string        `json:"journal"`
	Entries []store.Entry `json:"entries"`
	Stats   HistoryStats  `json:"stats"`
}

// HistoryStats summarizes the listed entries.
type HistoryStats struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Refreshed int `json:"refreshed"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled invocations",
		Long: `List the invocations recorded in the journal, oldest first.

The journal is journal.path from the configuration unless --journal is given.

Examples:
  appcore history --journal .appcore/journal.db
  appcore history --method triggers.contactList.operation.perform --limit 10
  appcore history --outcome error --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "journal database path (overrides journal.path)")
	cmd.Flags().StringVar(&opts.Method, "method", "", "only invocations of this method")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "only invocations with this outcome (success|error)")
	cmd.Flags().StringVar(&opts.BundleHash, "bundle-hash", "", "only invocations with this bundle hash")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show only the newest N entries")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	if err := opts.init(cmd); err != nil {
		return err
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch opts.Outcome {
	case "", engine.OutcomeSuccess, engine.OutcomeError:
	default:
		return formatter.Fail(ExitCommandError, ErrCodeInvalidInput,
			fmt.Sprintf("invalid outcome %q: must be %s or %s", opts.Outcome, engine.OutcomeSuccess, engine.OutcomeError), nil)
	}
	if opts.Limit < 0 {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, "limit must not be negative", nil)
	}

	path := opts.config.Journal.Path
	if cmd.Flags().Changed("journal") {
		path = opts.Journal
	}
	if path == "" {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, "no journal configured: set journal.path or pass --journal", nil)
	}
	// Reading must not create an empty journal.
	if _, err := os.Stat(path); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("journal not found: %s", path), nil)
	}

	st, err := store.Open(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, fmt.Sprintf("failed to open journal: %v", err), nil)
	}
	defer st.Close()

	entries, err := st.List(ctx, store.Filter{
		Method:     opts.Method,
		Outcome:    opts.Outcome,
		BundleHash: opts.BundleHash,
		Limit:      opts.Limit,
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, fmt.Sprintf("failed to read journal: %v", err), nil)
	}

	result := HistoryResult{Journal: path, Entries: entries, Stats: summarize(entries)}
	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	return printHistory(formatter, result)
}

func summarize(entries []store.Entry) HistoryStats {
	s := HistoryStats{Total: len(entries)}
	for _, e := range entries {
		if e.Outcome == engine.OutcomeSuccess {
			s.Succeeded++
		} else {
			s.Failed++
		}
		if e.Refreshed {
			s.Refreshed++
		}
	}
	return s
}

func printHistory(f *OutputFormatter, result HistoryResult) error {
	if len(result.Entries) == 0 {
		fmt.Fprintln(f.Writer, "No invocations recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tID\tMETHOD\tOUTCOME\tREQUESTS\tDURATION")
	for _, e := range result.Entries {
		outcome := e.Outcome
		if e.ErrorName != "" {
			outcome += " (" + e.ErrorName + ")"
		}
		if e.Refreshed {
			outcome += " [refreshed]"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", e.Seq, e.ID, e.Method, outcome, e.Requests, e.Duration)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(f.Writer, "\n%d invocation(s): %d succeeded, %d failed, %d refreshed\n",
		result.Stats.Total, result.Stats.Succeeded, result.Stats.Failed, result.Stats.Refreshed)
	return nil
}
