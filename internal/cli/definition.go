package cli

import (
	"errors"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/syssam/sqlupsert"
	"github.com/syssam/sqlupsert/dialect"
)

// Definition describes the routine of an upsert shape.
type Definition struct {
	Procedure  string      `yaml:"procedure" json:"procedure"`
	Hashed     bool        `yaml:"hashed" json:"hashed"`
	Dialect    string      `yaml:"dialect" json:"dialect"`
	Parameters []Parameter `yaml:"parameters" json:"parameters"`
	Statement  string      `yaml:"statement" json:"statement"`
}

// Parameter is one routine parameter.
type Parameter struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

// NewDefinitionCommand creates the definition command. With --column flags
// the table schema is taken from the command line and no store is needed.
func NewDefinitionCommand(rootOpts *RootOptions) *cobra.Command {
	in := &UpsertInput{}
	var (
		columns []string
		name    string
		prefix  string
	)
	cmd := &cobra.Command{
		Use:   "definition",
		Short: "Print the routine of an upsert shape as YAML",
		Example: `  sqlupsert definition --table users --sel username --set color \
      --column username:text --column "color:text='green'::text"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (rerr error) {
			var spec *sqlupsert.Spec
			if len(columns) > 0 {
				table, err := in.table()
				if err != nil {
					return err
				}
				selector, setter, err := in.fields()
				if err != nil {
					return err
				}
				t, err := parseColumns(table, columns)
				if err != nil {
					return err
				}
				if spec, err = sqlupsert.NewSpec(name, prefix, table, t, selector, setter); err != nil {
					return err
				}
			} else {
				s, err := rootOpts.open(cmd)
				if err != nil {
					return err
				}
				defer func() { rerr = errors.Join(rerr, s.Close()) }()
				table, err := in.table()
				if err != nil {
					return err
				}
				selector, setter, err := in.fields()
				if err != nil {
					return err
				}
				ctx, cancel := s.storeContext(cmd.Context(), rootOpts.Timeout)
				defer cancel()
				if spec, err = s.client.Spec(ctx, table, selector, setter); err != nil {
					return err
				}
			}
			def, err := describe(spec)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), rootOpts.Format, def, func(w io.Writer) error {
				enc := yaml.NewEncoder(w)
				enc.SetIndent(2)
				if err := enc.Encode(def); err != nil {
					return err
				}
				return enc.Close()
			})
		},
	}
	addUpsertFlags(cmd, in)
	cmd.Flags().StringArrayVar(&columns, "column", nil, "column name:type[=default] (repeatable)")
	cmd.Flags().StringVar(&name, "dialect", dialect.Postgres, "dialect of --column schemas (postgres|mysql)")
	cmd.Flags().StringVar(&prefix, "prefix", sqlupsert.NamePrefix, "routine name prefix of --column schemas")
	return cmd
}

func describe(s *sqlupsert.Spec) (*Definition, error) {
	stmt, err := s.Definition()
	if err != nil {
		return nil, err
	}
	def := &Definition{
		Procedure: s.Name(),
		Hashed:    s.Identity().IsHashed(),
		Dialect:   s.Dialect(),
		Statement: stmt,
	}
	for _, p := range s.Parameters() {
		def.Parameters = append(def.Parameters, Parameter{Name: p.Name, Type: p.Type})
	}
	return def, nil
}
