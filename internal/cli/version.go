package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/syssam/sqlupsert"
)

// VersionResult is the output of the version command.
type VersionResult struct {
	Version string `json:"version"`
	Prefix  string `json:"prefix"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and the routine name prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := VersionResult{Version: sqlupsert.Version, Prefix: sqlupsert.NamePrefix}
			return writeOutput(cmd.OutOrStdout(), rootOpts.Format, out, func(w io.Writer) error {
				printf(w, "sqlupsert %s (prefix %s)\n", out.Version, out.Prefix)
				return nil
			})
		},
	}
}
