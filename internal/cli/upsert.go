package cli

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/syssam/sqlupsert"
)

// UpsertResult is the output of the upsert command.
type UpsertResult struct {
	Procedure string   `json:"procedure"`
	Columns   []string `json:"columns,omitempty"`
	Row       []any    `json:"row,omitempty"`
}

// NewUpsertCommand creates the upsert command.
func NewUpsertCommand(rootOpts *RootOptions) *cobra.Command {
	in := &UpsertInput{}
	cmd := &cobra.Command{
		Use:   "upsert",
		Short: "Update the rows matching the selector, or insert one",
		Example: `  sqlupsert upsert --table users --sel username=a8m --set color=red
  sqlupsert upsert --table crm.pets --sel name=rex --sel owner=7 --typed --default size`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpsert(cmd, rootOpts, in)
		},
	}
	addUpsertFlags(cmd, in)
	cmd.Flags().StringSliceVar(&in.Defaults, "default", nil, "setter field set to its column default (repeatable)")
	cmd.Flags().StringSliceVar(&in.SelDefaults, "sel-default", nil, "selector field matched against its column default (repeatable)")
	cmd.Flags().BoolVar(&in.Typed, "typed", false, "decode values as YAML scalars (numbers, booleans, null)")
	return cmd
}

func addUpsertFlags(cmd *cobra.Command, in *UpsertInput) {
	cmd.Flags().StringVarP(&in.Table, "table", "t", "", "target table ([schema.]table)")
	cmd.Flags().StringArrayVar(&in.Selector, "sel", nil, "selector field=value (repeatable)")
	cmd.Flags().StringArrayVar(&in.Setter, "set", nil, "setter field=value (repeatable)")
	_ = cmd.MarkFlagRequired("table")
}

func runUpsert(cmd *cobra.Command, opts *RootOptions, in *UpsertInput) (rerr error) {
	table, err := in.table()
	if err != nil {
		return err
	}
	selector, setter, err := in.fields()
	if err != nil {
		return err
	}
	s, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer func() { rerr = errors.Join(rerr, s.Close()) }()

	ctx, cancel := s.storeContext(cmd.Context(), opts.Timeout)
	defer cancel()
	res, err := s.client.Upsert(ctx, table, selector, setter)
	if err != nil {
		if sqlupsert.IsConstraintError(err) {
			s.log.Error("row rejected by a table constraint", "table", table.String())
		}
		return err
	}
	out := UpsertResult{Procedure: res.Procedure, Columns: res.Columns, Row: res.Row}
	return writeOutput(cmd.OutOrStdout(), opts.Format, out, func(w io.Writer) error {
		printf(w, "upserted through %s\n", out.Procedure)
		return nil
	})
}
