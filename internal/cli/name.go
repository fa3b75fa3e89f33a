package cli

import (
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/syssam/sqlupsert"
)

// NameResult is the output of the name command.
type NameResult struct {
	Name     string `json:"name"`
	Readable string `json:"readable"`
	Hashed   bool   `json:"hashed"`
}

// NewNameCommand creates the name command. It needs no store.
func NewNameCommand(rootOpts *RootOptions) *cobra.Command {
	in := &UpsertInput{}
	var prefix string
	cmd := &cobra.Command{
		Use:     "name",
		Short:   "Print the routine name of an upsert shape",
		Example: `  sqlupsert name --table users --sel username --set color --set size`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := identity(in, prefix)
			if err != nil {
				return err
			}
			out := NameResult{Name: id.Name(), Readable: id.Readable(), Hashed: id.IsHashed()}
			return writeOutput(cmd.OutOrStdout(), rootOpts.Format, out, func(w io.Writer) error {
				printf(w, "%s\n", out.Name)
				return nil
			})
		},
	}
	addUpsertFlags(cmd, in)
	cmd.Flags().StringVar(&prefix, "prefix", sqlupsert.NamePrefix, "routine name prefix")
	return cmd
}

// identity returns the routine identity of the fields named by in.
func identity(in *UpsertInput, prefix string) (sqlupsert.Identity, error) {
	table, err := in.table()
	if err != nil {
		return sqlupsert.Identity{}, err
	}
	selector, setter, err := in.fields()
	if err != nil {
		return sqlupsert.Identity{}, err
	}
	return sqlupsert.Identity{
		Prefix:   prefix,
		Table:    table.Flatten(),
		Selector: sortedKeys(selector),
		Setter:   sortedKeys(setter),
	}, nil
}

func sortedKeys(fs sqlupsert.Fields) []string {
	keys := make([]string, 0, len(fs))
	for k := range fs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
