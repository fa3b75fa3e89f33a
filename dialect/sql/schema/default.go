package schema

import (
	"regexp"
	"strings"
)

var (
	numericRe = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

	// castRe matches one "::type" cast, e.g. "::character varying(255)[]".
	castRe     = `\s*::\s*[A-Za-z_][\w ."]*(\(\d+(,\s*\d+)?\))?(\[\])*`
	castsRe    = regexp.MustCompile(`^(` + castRe + `)+$`)
	trailingRe = regexp.MustCompile(`(` + castRe + `)+$`)
)

// ParseDefault splits a declared column default into its literal value or
// reports it as an expression. The null result reports an explicit NULL
// default, which is equivalent to having none.
//
//	'green'::text               -> "green", literal
//	'it''s'::character varying  -> "it's", literal
//	(-1)                        -> "-1", literal
//	true                        -> "true", literal
//	NULL::text                  -> null
//	now()                       -> "now()", expression
//	nextval('seq'::regclass)    -> "nextval('seq'::regclass)", expression
func ParseDefault(raw string) (value string, expr, null bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false, true
	}
	if v, ok := quotedLiteral(s); ok {
		return v, false, false
	}
	bare := stripCasts(unwrapParens(s))
	bare = unwrapParens(bare)
	switch {
	case strings.EqualFold(bare, "null"):
		return "", false, true
	case strings.EqualFold(bare, "true"), strings.EqualFold(bare, "false"):
		return strings.ToLower(bare), false, false
	case numericRe.MatchString(bare):
		return bare, false, false
	}
	return s, true, false
}

// quotedLiteral reports whether s is a single quoted string, optionally
// followed by casts, and returns its unescaped content.
func quotedLiteral(s string) (string, bool) {
	if !strings.HasPrefix(s, "'") {
		return "", false
	}
	var b strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		if c == '\'' {
			if i+1 < len(s) && s[i+1] == '\'' {
				b.WriteByte('\'')
				i += 2
				continue
			}
			break
		}
		b.WriteByte(c)
		i++
	}
	if i >= len(s) {
		return "", false
	}
	if rest := s[i+1:]; rest != "" && !castsRe.MatchString(rest) {
		return "", false
	}
	return b.String(), true
}

// stripCasts removes trailing "::type" casts.
func stripCasts(s string) string {
	return strings.TrimSpace(trailingRe.ReplaceAllString(s, ""))
}

func unwrapParens(s string) string {
	for strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
