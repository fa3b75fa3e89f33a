package sqlupsert

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"

	"github.com/syssam/sqlupsert/dialect"
	"github.com/syssam/sqlupsert/dialect/sql"
	"github.com/syssam/sqlupsert/dialect/sql/schema"
)

// identRe restricts table and field names. Field names become routine
// parameter names, which are written unquoted.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Field is one entry of a selector or setter set.
type Field struct {
	Name  string
	Value any
}

// Spec is a single upsert: a target table and its selector and setter
// fields in canonical (sorted) order. It is immutable once built.
type Spec struct {
	dialect  string
	table    *sql.TableRef
	schema   *schema.Table
	selector []Field
	setter   []Field
	identity Identity
}

// NewSpec builds the Spec of an upsert against table, whose columns are
// described by t. Every selector and setter field must be a column of t.
func NewSpec(dialectName, prefix string, table *sql.TableRef, t *schema.Table, selector, setter Fields) (*Spec, error) {
	if !dialect.Supported(dialectName) {
		return nil, fmt.Errorf("sqlupsert: unsupported dialect %q", dialectName)
	}
	if err := checkInput(table, selector, setter); err != nil {
		return nil, err
	}
	s := &Spec{
		dialect:  dialectName,
		table:    table,
		schema:   t,
		selector: sortFields(selector),
		setter:   sortFields(setter),
	}
	for _, fs := range [][]Field{s.selector, s.setter} {
		for _, f := range fs {
			if _, ok := t.Column(f.Name); !ok {
				return nil, NewLookupError(table.String(), f.Name)
			}
		}
	}
	s.identity = Identity{
		Prefix:   prefix,
		Table:    table.Flatten(),
		Selector: names(s.selector),
		Setter:   names(s.setter),
	}
	return s, nil
}

// checkInput validates the caller input without touching the store.
func checkInput(table *sql.TableRef, selector, setter Fields) error {
	switch {
	case table == nil || table.Name() == "":
		return NewInvalidInputError("table", "missing table")
	case !identRe.MatchString(table.Name()):
		return NewInvalidInputError("table", fmt.Sprintf("invalid name %q", table.Name()))
	case table.Qualified() && !identRe.MatchString(table.SchemaName()):
		return NewInvalidInputError("table", fmt.Sprintf("invalid schema %q", table.SchemaName()))
	case selector == nil:
		return NewInvalidInputError("selector", "fields must be a mapping")
	case setter == nil:
		return NewInvalidInputError("setter", "fields must be a mapping")
	}
	for _, fs := range []Fields{selector, setter} {
		for name := range fs {
			if !identRe.MatchString(name) {
				return NewInvalidInputError(name, "field name must be a plain identifier")
			}
		}
	}
	return nil
}

func sortFields(fs Fields) []Field {
	sorted := make([]Field, 0, len(fs))
	for name, v := range fs {
		sorted = append(sorted, Field{Name: name, Value: v})
	}
	slices.SortFunc(sorted, func(a, b Field) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return sorted
}

func names(fs []Field) []string {
	ns := make([]string, len(fs))
	for i, f := range fs {
		ns[i] = f.Name
	}
	return ns
}

// Dialect returns the dialect the routine is rendered for.
func (s *Spec) Dialect() string { return s.dialect }

// Table returns the target table handle.
func (s *Spec) Table() *sql.TableRef { return s.table }

// Selector returns the selector fields in canonical order.
func (s *Spec) Selector() []Field { return slices.Clone(s.selector) }

// Setter returns the setter fields in canonical order.
func (s *Spec) Setter() []Field { return slices.Clone(s.setter) }

// Identity returns the identity of the routine serving this upsert.
func (s *Spec) Identity() Identity { return s.identity }

// Name returns the routine name.
func (s *Spec) Name() string { return s.identity.Name() }

// Column returns the schema of the named column.
func (s *Spec) Column(field string) (*schema.Column, error) {
	c, ok := s.schema.Column(field)
	if !ok {
		return nil, NewLookupError(s.table.String(), field)
	}
	return c, nil
}

// ColumnType returns the normalized store type of field, as used in the
// routine parameter declarations.
func (s *Spec) ColumnType(field string) (string, error) {
	c, err := s.Column(field)
	if err != nil {
		return "", err
	}
	return normalizeType(c.Type), nil
}

// ColumnDefault returns the declared default of field, or nil when the
// column has none.
func (s *Spec) ColumnDefault(field string) (*string, error) {
	c, err := s.Column(field)
	if err != nil {
		return nil, err
	}
	return c.Default, nil
}
