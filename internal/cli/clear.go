package cli

import (
	"errors"
	"io"

	"github.com/spf13/cobra"
)

// ClearResult is the output of the clear command.
type ClearResult struct {
	Dropped []string `json:"dropped"`
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop every routine created with the configured prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (rerr error) {
			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer func() { rerr = errors.Join(rerr, s.Close()) }()

			ctx, cancel := s.storeContext(cmd.Context(), rootOpts.Timeout)
			defer cancel()
			dropped, err := s.client.ClearAll(ctx)
			out := ClearResult{Dropped: dropped}
			if out.Dropped == nil {
				out.Dropped = []string{}
			}
			werr := writeOutput(cmd.OutOrStdout(), rootOpts.Format, out, func(w io.Writer) error {
				for _, name := range out.Dropped {
					printf(w, "%s\n", name)
				}
				printf(w, "dropped %d routine(s)\n", len(out.Dropped))
				return nil
			})
			return errors.Join(err, werr)
		},
	}
}
