package cli

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/sqlupsert"
	"github.com/syssam/sqlupsert/dialect/sql"
	"github.com/syssam/sqlupsert/dialect/sql/schema"
)

// UpsertInput holds the flags describing an upsert.
type UpsertInput struct {
	Table       string
	Selector    []string // field[=value]
	Setter      []string // field[=value]
	Defaults    []string // setter fields set to their column default
	SelDefaults []string // selector fields matched against their column default
	Typed       bool
}

// table parses "[schema.]table".
func (in *UpsertInput) table() (*sql.TableRef, error) {
	if in.Table == "" {
		return nil, fmt.Errorf("--table is required")
	}
	ns, name, ok := strings.Cut(in.Table, ".")
	if !ok {
		return sql.Table(ns), nil
	}
	return sql.Table(name).Schema(ns), nil
}

// fields returns the selector and setter mappings.
func (in *UpsertInput) fields() (selector, setter sqlupsert.Fields, err error) {
	if selector, err = parseFields(in.Selector, in.Typed); err != nil {
		return nil, nil, err
	}
	if setter, err = parseFields(in.Setter, in.Typed); err != nil {
		return nil, nil, err
	}
	for _, f := range in.SelDefaults {
		selector[f] = sqlupsert.Default
	}
	for _, f := range in.Defaults {
		setter[f] = sqlupsert.Default
	}
	return selector, setter, nil
}

// parseFields parses "field=value" pairs. A field without a value maps
// to NULL. Typed values are decoded as YAML scalars: 42, true and null
// keep their type, anything else is a string.
func parseFields(pairs []string, typed bool) (sqlupsert.Fields, error) {
	fs := make(sqlupsert.Fields, len(pairs))
	for _, p := range pairs {
		name, raw, ok := strings.Cut(p, "=")
		if name == "" {
			return nil, fmt.Errorf("invalid field %q: want name=value", p)
		}
		var v any
		switch {
		case !ok:
		case typed:
			if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
				return nil, fmt.Errorf("invalid value of field %s: %w", name, err)
			}
		default:
			v = raw
		}
		fs[name] = v
	}
	return fs, nil
}

// parseColumns parses "name:type[=default]" column descriptions into a
// table schema. Defaults are read the way the store reports them, so
// 'green'::text is a literal and now() an expression.
func parseColumns(table *sql.TableRef, columns []string) (*schema.Table, error) {
	t := &schema.Table{Schema: table.SchemaName(), Name: table.Name()}
	for _, c := range columns {
		desc, def, hasDefault := strings.Cut(c, "=")
		name, typ, ok := strings.Cut(desc, ":")
		if !ok || name == "" || typ == "" {
			return nil, fmt.Errorf("invalid column %q: want name:type[=default]", c)
		}
		col := &schema.Column{Name: name, Type: typ, Nullable: true}
		if hasDefault {
			v, expr, null := schema.ParseDefault(def)
			if !null {
				col.Default, col.DefaultExpr = &v, expr
			}
		}
		t.Columns = append(t.Columns, col)
	}
	return t, nil
}
