package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/roach88/appcore/internal/ir"
)

// Version is set at build time with -ldflags "-X github.com/roach88/appcore/internal/cli.Version=...".
var Version = "dev"

// VersionInfo is the version command's payload.
type VersionInfo struct {
	Version       string `json:"version"`
	SchemaVersion string `json:"schema_version"`
	GoVersion     string `json:"go_version"`
	Module        string `json:"module,omitempty"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print version information",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := VersionInfo{Version: Version, SchemaVersion: ir.SchemaVersion, GoVersion: runtime.Version()}
			if bi, ok := debug.ReadBuildInfo(); ok {
				info.Module = bi.Main.Path
			}

			formatter := newFormatter(rootOpts, cmd)
			if formatter.IsJSON() {
				return formatter.Success(info)
			}
			fmt.Fprintf(formatter.Writer, "appcore %s (schema %s, %s)\n", info.Version, info.SchemaVersion, info.GoVersion)
			return nil
		},
	}
}
