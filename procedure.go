package sqlupsert

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/syssam/sqlupsert/dialect"
	"github.com/syssam/sqlupsert/dialect/sql"
)

// routine holds the slots of a routine template. The skeleton holding the
// update, insert and retry logic is fixed per dialect. Only the slots vary
// between upserts.
type routine struct {
	Name         string
	Declarations []string
	// Update writes the setters to the matched rows. It is empty when the
	// upsert has no setters.
	Update string
	// Exists checks for a matching row without writing to it.
	Exists string
	Insert string
}

var funcs = template.FuncMap{"join": strings.Join}

// Definition returns the statement defining the routine of s.
func (s *Spec) Definition() (string, error) {
	r := s.routine()
	var b strings.Builder
	if err := routineDialect(s.dialect).tmpl.Execute(&b, r); err != nil {
		return "", fmt.Errorf("sqlupsert: render %s: %w", r.Name, err)
	}
	return b.String(), nil
}

// Invocation returns the statement calling the routine of s with args,
// as returned by Spec.Args.
func (s *Spec) Invocation(args []any) (string, []any) {
	return sql.Dialect(s.dialect).Call(s.Name()).Args(args...).Query()
}

func (s *Spec) routine() *routine {
	var (
		b     = sql.Dialect(s.dialect)
		match *sql.Predicate
		preds []*sql.Predicate
	)
	for _, f := range s.selector {
		preds = append(preds, sql.EQ(f.Name, sql.Expr(f.Name+SelectorPostfix)))
	}
	if len(preds) > 0 {
		match = sql.And(preds...)
	}
	r := &routine{Name: s.Name(), Declarations: s.Declarations()}
	if len(s.setter) > 0 {
		u := b.Update(s.table).Where(match)
		for _, f := range s.setter {
			u.Set(f.Name, sql.Expr(f.Name+SetterPostfix))
		}
		r.Update, _ = u.Query()
	}
	r.Exists = routineDialect(s.dialect).exists(b, s.table, match)

	// A column that is both a selector and a setter is inserted with the
	// setter value.
	var (
		cols   []string
		values []any
		setter = make(map[string]bool, len(s.setter))
	)
	for _, f := range s.setter {
		setter[f.Name] = true
	}
	for _, f := range s.selector {
		if !setter[f.Name] {
			cols, values = append(cols, f.Name), append(values, sql.Expr(f.Name+SelectorPostfix))
		}
	}
	for _, f := range s.setter {
		cols, values = append(cols, f.Name), append(values, sql.Expr(f.Name+SetterPostfix))
	}
	r.Insert, _ = b.Insert(s.table).Columns(cols...).Values(values...).Query()
	return r
}

// routineKind captures what differs between the supported dialects.
type routineKind struct {
	tmpl   *template.Template
	exists func(b *sql.DialectBuilder, t *sql.TableRef, match *sql.Predicate) string
}

func routineDialect(name string) *routineKind {
	if name == dialect.MySQL {
		return mysqlRoutine
	}
	return postgresRoutine
}
