package sqlupsert

// Fields maps column names to values. A value may be Default to request
// the column's declared default.
type Fields map[string]any

// defaultValue is the type of the Default sentinel.
type defaultValue struct{}

// String implements fmt.Stringer.
func (defaultValue) String() string { return "DEFAULT" }

// Default marks a field value as "use this column's declared default".
// It is resolved client-side before the routine is invoked, so the
// routine always receives a concrete value.
//
//	client.Upsert(ctx, sql.Table("pets"),
//		sqlupsert.Fields{"name": "Jerry"},
//		sqlupsert.Fields{"color": sqlupsert.Default},
//	)
var Default any = defaultValue{}

// IsDefault reports whether v is the Default sentinel.
func IsDefault(v any) bool {
	_, ok := v.(defaultValue)
	return ok
}
