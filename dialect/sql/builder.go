package sql

import (
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/syssam/sqlupsert/dialect"
)

// Querier wraps the basic Query method that is implemented
// by the different builders in this package.
type Querier interface {
	// Query returns the query representation of the element
	// and its arguments (if any).
	Query() (string, []any)
}

// raw is a Querier inlined verbatim into the statement.
type raw struct{ s string }

func (r raw) Query() (string, []any) { return r.s, nil }

// Expr returns a Querier that is written into the statement as is. It is
// used to reference routine parameters and local variables instead of
// binding placeholders.
//
//	sql.Dialect(dialect.Postgres).Update(sql.Table("users")).
//		Set("color", sql.Expr("color_set")).
//		Where(sql.EQ("username", sql.Expr("username_sel")))
func Expr(s string) Querier { return raw{s} }

// TableRef is a handle for a target table, optionally qualified by a schema.
type TableRef struct {
	schema string
	name   string
}

// Table returns a new unqualified table handle.
func Table(name string) *TableRef { return &TableRef{name: name} }

// Schema returns a copy of the handle qualified with the given schema.
func (t *TableRef) Schema(name string) *TableRef {
	return &TableRef{schema: name, name: t.name}
}

// Name returns the bare table name.
func (t *TableRef) Name() string { return t.name }

// SchemaName returns the schema qualifier, or an empty string.
func (t *TableRef) SchemaName() string { return t.schema }

// Qualified reports whether the handle carries a schema qualifier.
func (t *TableRef) Qualified() bool { return t.schema != "" }

// Flatten returns the name used where qualifier punctuation is not allowed,
// such as routine identifiers: "schema__table", or the bare name.
func (t *TableRef) Flatten() string {
	if t.schema == "" {
		return t.name
	}
	return t.schema + "__" + t.name
}

// String implements fmt.Stringer.
func (t *TableRef) String() string {
	if t.schema == "" {
		return t.name
	}
	return t.schema + "." + t.name
}

// Builder is the base query builder for the sql dsl.
type Builder struct {
	sb      *strings.Builder
	dialect string
	args    []any
	total   int
}

// Dialect returns the dialect of the builder.
func (b Builder) Dialect() string { return b.dialect }

// Quote quotes the given identifier with the characters based
// on the configured dialect.
func (b *Builder) Quote(ident string) string {
	switch b.dialect {
	case dialect.Postgres:
		return pq.QuoteIdentifier(ident)
	default:
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
}

// WriteString writes the given string as is.
func (b *Builder) WriteString(s string) *Builder {
	if b.sb == nil {
		b.sb = &strings.Builder{}
	}
	b.sb.WriteString(s)
	return b
}

// Ident writes the given identifier quoted.
func (b *Builder) Ident(s string) *Builder {
	return b.WriteString(b.Quote(s))
}

// Table writes the possibly qualified table name.
func (b *Builder) Table(t *TableRef) *Builder {
	if t.schema != "" {
		b.Ident(t.schema).WriteString(".")
	}
	return b.Ident(t.name)
}

// Arg appends an input argument to the builder. A Querier is inlined,
// any other value is bound through a placeholder.
func (b *Builder) Arg(a any) *Builder {
	if q, ok := a.(Querier); ok {
		s, args := q.Query()
		b.args = append(b.args, args...)
		return b.WriteString(s)
	}
	b.total++
	b.args = append(b.args, a)
	if b.dialect == dialect.Postgres {
		return b.WriteString("$" + strconv.Itoa(b.total))
	}
	return b.WriteString("?")
}

// Args appends a list of arguments to the builder, separated by commas.
func (b *Builder) Args(a ...any) *Builder {
	for i := range a {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Arg(a[i])
	}
	return b
}

// String returns the accumulated string.
func (b *Builder) String() string {
	if b.sb == nil {
		return ""
	}
	return b.sb.String()
}

// Query implements the Querier interface.
func (b *Builder) Query() (string, []any) {
	return b.String(), b.args
}

func (b Builder) fresh() *Builder {
	return &Builder{dialect: b.dialect}
}

// DialectBuilder prefixes all root builders with the dialect name.
type DialectBuilder struct {
	dialect string
}

// Dialect creates a new DialectBuilder with the given dialect name.
func Dialect(name string) *DialectBuilder {
	return &DialectBuilder{dialect: name}
}

// Update creates an UpdateBuilder for the given table.
func (d *DialectBuilder) Update(t *TableRef) *UpdateBuilder {
	return &UpdateBuilder{Builder: Builder{dialect: d.dialect}, table: t}
}

// Insert creates an InsertBuilder for the given table.
func (d *DialectBuilder) Insert(t *TableRef) *InsertBuilder {
	return &InsertBuilder{Builder: Builder{dialect: d.dialect}, table: t}
}

// Select creates a Selector for the given column expressions.
// Columns are written as is.
func (d *DialectBuilder) Select(columns ...string) *Selector {
	return &Selector{Builder: Builder{dialect: d.dialect}, columns: columns}
}

// Call creates a CallBuilder invoking the named routine.
func (d *DialectBuilder) Call(name string) *CallBuilder {
	return &CallBuilder{Builder: Builder{dialect: d.dialect}, name: name}
}

// Predicate is a where predicate.
type Predicate struct {
	fns []func(*Builder)
}

// P creates a new predicate.
func P(fns ...func(*Builder)) *Predicate {
	return &Predicate{fns: fns}
}

func (p *Predicate) render(b *Builder) {
	for _, f := range p.fns {
		f(b)
	}
}

// EQ returns a "=" predicate.
func EQ(col string, value any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" = ").Arg(value)
	})
}

// And combines all given predicates with AND.
func And(preds ...*Predicate) *Predicate {
	return P(func(b *Builder) {
		for i, p := range preds {
			if i > 0 {
				b.WriteString(" AND ")
			}
			p.render(b)
		}
	})
}

func andWhere(where, p *Predicate) *Predicate {
	if where == nil {
		return p
	}
	return And(where, p)
}

// UpdateBuilder is a builder for `UPDATE` statement.
type UpdateBuilder struct {
	Builder
	table   *TableRef
	columns []string
	values  []any
	where   *Predicate
}

// Set sets a column to a given value.
func (u *UpdateBuilder) Set(column string, v any) *UpdateBuilder {
	u.columns = append(u.columns, column)
	u.values = append(u.values, v)
	return u
}

// Where adds a where predicate for update statement. Multiple calls
// are joined with AND.
func (u *UpdateBuilder) Where(p *Predicate) *UpdateBuilder {
	u.where = andWhere(u.where, p)
	return u
}

// Empty reports whether the builder has no SET clauses.
func (u *UpdateBuilder) Empty() bool { return len(u.columns) == 0 }

// Query returns query representation of an `UPDATE` statement.
func (u *UpdateBuilder) Query() (string, []any) {
	b := u.fresh()
	b.WriteString("UPDATE ").Table(u.table).WriteString(" SET ")
	for i, c := range u.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(c).WriteString(" = ").Arg(u.values[i])
	}
	if u.where != nil {
		b.WriteString(" WHERE ")
		u.where.render(b)
	}
	return b.Query()
}

// InsertBuilder is a builder for `INSERT INTO` statement.
type InsertBuilder struct {
	Builder
	table   *TableRef
	columns []string
	values  []any
}

// Columns sets the columns of the insert statement.
func (i *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	i.columns = append(i.columns, columns...)
	return i
}

// Values sets the values of the insert statement, in column order.
func (i *InsertBuilder) Values(values ...any) *InsertBuilder {
	i.values = append(i.values, values...)
	return i
}

// Query returns query representation of an `INSERT INTO` statement.
func (i *InsertBuilder) Query() (string, []any) {
	b := i.fresh()
	b.WriteString("INSERT INTO ").Table(i.table)
	if len(i.columns) == 0 {
		if b.dialect == dialect.Postgres {
			b.WriteString(" DEFAULT VALUES")
		} else {
			b.WriteString(" () VALUES ()")
		}
		return b.Query()
	}
	b.WriteString(" (")
	for j, c := range i.columns {
		if j > 0 {
			b.WriteString(", ")
		}
		b.Ident(c)
	}
	b.WriteString(") VALUES (").Args(i.values...).WriteString(")")
	return b.Query()
}

// Selector is a builder for the `SELECT` statement.
type Selector struct {
	Builder
	columns []string
	into    []string
	from    *TableRef
	where   *Predicate
}

// From sets the source table of the select statement.
func (s *Selector) From(t *TableRef) *Selector {
	s.from = t
	return s
}

// Into sets the routine variables the selected values are stored into.
func (s *Selector) Into(vars ...string) *Selector {
	s.into = append(s.into, vars...)
	return s
}

// Where adds a where predicate. Multiple calls are joined with AND.
func (s *Selector) Where(p *Predicate) *Selector {
	s.where = andWhere(s.where, p)
	return s
}

// Query returns query representation of a `SELECT` statement.
func (s *Selector) Query() (string, []any) {
	b := s.fresh()
	b.WriteString("SELECT " + strings.Join(s.columns, ", "))
	if len(s.into) > 0 {
		b.WriteString(" INTO " + strings.Join(s.into, ", "))
	}
	if s.from != nil {
		b.WriteString(" FROM ").Table(s.from)
	}
	if s.where != nil {
		b.WriteString(" WHERE ")
		s.where.render(b)
	}
	return b.Query()
}

// CallBuilder is a builder for invoking a stored routine. Postgres
// functions are selected, MySQL procedures are called.
type CallBuilder struct {
	Builder
	name string
	args []any
}

// Args appends positional arguments of the call.
func (c *CallBuilder) Args(args ...any) *CallBuilder {
	c.args = append(c.args, args...)
	return c
}

// Query returns query representation of the routine invocation.
func (c *CallBuilder) Query() (string, []any) {
	b := c.fresh()
	if b.dialect == dialect.Postgres {
		b.WriteString("SELECT ")
	} else {
		b.WriteString("CALL ")
	}
	b.WriteString(c.name).WriteString("(").Args(c.args...).WriteString(")")
	return b.Query()
}

// DropRoutine creates a DropRoutineBuilder for the named routine.
func (d *DialectBuilder) DropRoutine(name string) *DropRoutineBuilder {
	return &DropRoutineBuilder{Builder: Builder{dialect: d.dialect}, name: name}
}

// DropRoutineBuilder is a builder for dropping a synthesized routine:
// `DROP FUNCTION` in Postgres, `DROP PROCEDURE` in MySQL.
type DropRoutineBuilder struct {
	Builder
	schema    string
	name      string
	signature string
}

// Schema sets the schema (Postgres) or database (MySQL) of the routine.
func (r *DropRoutineBuilder) Schema(name string) *DropRoutineBuilder {
	r.schema = name
	return r
}

// Signature sets the identity arguments selecting a Postgres overload,
// as reported by pg_get_function_identity_arguments.
func (r *DropRoutineBuilder) Signature(args string) *DropRoutineBuilder {
	r.signature = args
	return r
}

// Query returns query representation of a `DROP FUNCTION` or
// `DROP PROCEDURE` statement.
func (r *DropRoutineBuilder) Query() (string, []any) {
	b := r.fresh()
	if b.dialect == dialect.Postgres {
		b.WriteString("DROP FUNCTION IF EXISTS ")
	} else {
		b.WriteString("DROP PROCEDURE IF EXISTS ")
	}
	if r.schema != "" {
		b.Ident(r.schema).WriteString(".")
	}
	b.Ident(r.name)
	if b.dialect == dialect.Postgres {
		b.WriteString("(" + r.signature + ")")
	}
	return b.Query()
}
