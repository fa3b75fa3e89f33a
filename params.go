package sqlupsert

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Parameter is a routine parameter bound to a selector or setter field.
type Parameter struct {
	Field  string
	Name   string // Field with SelectorPostfix or SetterPostfix
	Type   string // normalized store type
	Setter bool
	value  any
}

// Parameters returns the routine parameters, selectors first and then
// setters. Declarations and invocations both follow this order.
func (s *Spec) Parameters() []Parameter {
	ps := make([]Parameter, 0, len(s.selector)+len(s.setter))
	add := func(f Field, postfix string, setter bool) {
		// Columns were checked by NewSpec.
		c, _ := s.schema.Column(f.Name)
		ps = append(ps, Parameter{
			Field:  f.Name,
			Name:   f.Name + postfix,
			Type:   normalizeType(c.Type),
			Setter: setter,
			value:  f.Value,
		})
	}
	for _, f := range s.selector {
		add(f, SelectorPostfix, false)
	}
	for _, f := range s.setter {
		add(f, SetterPostfix, true)
	}
	return ps
}

// Declarations returns the routine parameter declarations, e.g.
// "username_sel TEXT".
func (s *Spec) Declarations() []string {
	ps := s.Parameters()
	decls := make([]string, len(ps))
	for i, p := range ps {
		decls[i] = p.Name + " " + p.Type
	}
	return decls
}

// EvalFunc evaluates a default expression in the store.
type EvalFunc func(ctx context.Context, expr string) (any, error)

// Args returns the invocation arguments in parameter order. Default
// values are replaced by the column default: literal defaults are used as
// is, expression defaults are evaluated once per column with eval, and
// columns without a default resolve to nil.
func (s *Spec) Args(ctx context.Context, eval EvalFunc) ([]any, error) {
	var (
		ps       = s.Parameters()
		args     = make([]any, len(ps))
		resolved = make(map[string]any)
	)
	for i, p := range ps {
		if !IsDefault(p.value) {
			args[i] = p.value
			continue
		}
		if v, ok := resolved[p.Field]; ok {
			args[i] = v
			continue
		}
		c, err := s.Column(p.Field)
		if err != nil {
			return nil, err
		}
		var v any
		switch {
		case c.Default == nil:
		case c.DefaultExpr:
			if v, err = eval(ctx, *c.Default); err != nil {
				return nil, err
			}
		default:
			v = *c.Default
		}
		resolved[p.Field] = v
		args[i] = v
	}
	return args, nil
}

// normalizeType upper-cases a store type name, leaving quoted parts such
// as MySQL enum members untouched.
func normalizeType(t string) string {
	if !strings.Contains(t, "'") {
		return cases.Upper(language.Und).String(t)
	}
	var (
		b     strings.Builder
		upper = cases.Upper(language.Und)
	)
	for i, part := range strings.Split(t, "'") {
		if i > 0 {
			b.WriteByte('\'')
		}
		if i%2 == 0 {
			part = upper.String(part)
		}
		b.WriteString(part)
	}
	return b.String()
}
