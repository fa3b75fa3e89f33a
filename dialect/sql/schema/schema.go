// Package schema describes target tables to the routine synthesizer. It
// provides the Inspector collaborator that reports each column's name,
// store type and declared default, with implementations backed by the
// information_schema views and by ariga.io/atlas.
package schema

import (
	"context"
	"fmt"
)

// Column is one entry of a table schema, as reported by the store.
type Column struct {
	// Name is the raw column name.
	Name string
	// Type is the store-native type name, as it may appear in a routine
	// parameter declaration (e.g. "text", "character varying", "varchar(255)").
	Type string
	// Default is the declared default, or nil when the column has none. For
	// literal defaults it holds the unquoted value ("green" for 'green'::text),
	// for expression defaults the expression text.
	Default *string
	// DefaultExpr reports that Default is an expression that must be
	// evaluated by the store (e.g. now(), nextval('seq'::regclass)).
	DefaultExpr bool
	// Nullable reports whether the column accepts NULL.
	Nullable bool
}

// HasDefault reports whether the column declares a default.
func (c *Column) HasDefault() bool { return c.Default != nil }

// Table is the schema of a table.
type Table struct {
	Schema  string
	Name    string
	Columns []*Column
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// String returns the possibly qualified table name.
func (t *Table) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Inspector fetches the schema of a table. An empty schema name refers to
// the connection's current schema (Postgres) or database (MySQL).
type Inspector interface {
	InspectTable(ctx context.Context, schema, name string) (*Table, error)
}

// InspectFunc adapts an ordinary function to the Inspector interface.
type InspectFunc func(ctx context.Context, schema, name string) (*Table, error)

// InspectTable calls f(ctx, schema, name).
func (f InspectFunc) InspectTable(ctx context.Context, schema, name string) (*Table, error) {
	return f(ctx, schema, name)
}

// Static is an in-memory Inspector keyed by the possibly qualified table
// name ("users" or "public.users").
type Static map[string]*Table

// InspectTable implements the Inspector interface.
func (s Static) InspectTable(_ context.Context, schema, name string) (*Table, error) {
	key := name
	if schema != "" {
		key = schema + "." + name
	}
	if t, ok := s[key]; ok {
		return t, nil
	}
	return nil, &TableNotFoundError{Schema: schema, Name: name}
}

// TableNotFoundError is returned when the inspected table does not exist.
type TableNotFoundError struct {
	Schema string
	Name   string
}

func (e *TableNotFoundError) Error() string {
	if e.Schema != "" {
		return fmt.Sprintf("schema: table %s.%s not found", e.Schema, e.Name)
	}
	return fmt.Sprintf("schema: table %s not found", e.Name)
}
