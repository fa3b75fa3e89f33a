package schema

import (
	"context"
	"fmt"
	"sync"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	atlas "ariga.io/atlas/sql/schema"

	"github.com/syssam/sqlupsert/dialect"
)

// Atlas is an Inspector backed by the ariga.io/atlas inspection drivers.
// The atlas driver is opened on first use, which costs the version
// queries atlas issues to detect the server flavor.
type Atlas struct {
	open   func() (migrate.Driver, error)
	schema string
}

// AtlasOption configures an Atlas inspector.
type AtlasOption func(*Atlas)

// WithDefaultSchema sets the schema inspected for unqualified tables. It
// should match the search_path the routines run with, since db does not
// carry the session variables of the context.
func WithDefaultSchema(name string) AtlasOption {
	return func(a *Atlas) {
		a.schema = name
	}
}

// NewAtlas returns an Atlas inspector for the given dialect. db is
// usually the *sql.DB returned by sql.Driver.DB.
func NewAtlas(name string, db atlas.ExecQuerier, opts ...AtlasOption) *Atlas {
	a := &Atlas{
		open: sync.OnceValues(func() (migrate.Driver, error) {
			switch name {
			case dialect.Postgres:
				return postgres.Open(db)
			case dialect.MySQL:
				return mysql.Open(db)
			default:
				return nil, fmt.Errorf("schema: unsupported dialect %q", name)
			}
		}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// InspectTable implements the Inspector interface.
func (a *Atlas) InspectTable(ctx context.Context, schema, name string) (*Table, error) {
	drv, err := a.open()
	if err != nil {
		return nil, fmt.Errorf("schema: open atlas driver: %w", err)
	}
	target := schema
	if target == "" {
		target = a.schema
	}
	s, err := drv.InspectSchema(ctx, target, &atlas.InspectOptions{Tables: []string{name}})
	if err != nil {
		if atlas.IsNotExistError(err) {
			return nil, &TableNotFoundError{Schema: schema, Name: name}
		}
		return nil, fmt.Errorf("schema: inspect %s: %w", name, err)
	}
	at, ok := s.Table(name)
	if !ok {
		return nil, &TableNotFoundError{Schema: schema, Name: name}
	}
	return fromAtlas(schema, at), nil
}

// fromAtlas converts an inspected atlas table.
func fromAtlas(schema string, at *atlas.Table) *Table {
	t := &Table{Schema: schema, Name: at.Name}
	for _, ac := range at.Columns {
		c := &Column{Name: ac.Name}
		if ac.Type != nil {
			c.Type = ac.Type.Raw
			c.Nullable = ac.Type.Null
		}
		switch d := ac.Default.(type) {
		case *atlas.Literal:
			v, expr, null := ParseDefault(d.V)
			if expr {
				// Atlas reports MySQL string literals unquoted.
				v = d.V
			}
			if !null {
				c.Default = &v
			}
		case *atlas.RawExpr:
			v := d.X
			c.Default, c.DefaultExpr = &v, true
		}
		t.Columns = append(t.Columns, c)
	}
	return t
}
