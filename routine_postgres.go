package sqlupsert

import (
	"strings"
	"text/template"

	"github.com/syssam/sqlupsert/dialect/sql"
)

// postgresTemplate defines a plpgsql function. A unique_violation raised
// by the insert means a concurrent caller inserted the same key after the
// update missed; the update is attempted once more before giving up.
const postgresTemplate = `CREATE OR REPLACE FUNCTION {{ .Name }}({{ join .Declarations ", " }}) RETURNS VOID AS
$$
#variable_conflict use_variable
DECLARE
  attempt_state TEXT := 'first_attempt';
BEGIN
  WHILE attempt_state <> 'done' LOOP
    {{ if .Update }}{{ .Update }}{{ else }}{{ .Exists }}{{ end }};
    IF found THEN
      attempt_state := 'done';
    ELSE
      BEGIN
        {{ .Insert }};
        attempt_state := 'done';
      EXCEPTION WHEN unique_violation THEN
        IF attempt_state = 'first_attempt' THEN
          attempt_state := 'retrying';
        ELSE
          attempt_state := 'done';
        END IF;
      END;
    END IF;
  END LOOP;
END;
$$
LANGUAGE plpgsql;
`

var postgresRoutine = &routineKind{
	tmpl: template.Must(template.New("postgres").Funcs(funcs).Parse(postgresTemplate)),
	exists: func(b *sql.DialectBuilder, t *sql.TableRef, match *sql.Predicate) string {
		q, _ := b.Select("1").From(t).Where(match).Query()
		return "PERFORM" + strings.TrimPrefix(q, "SELECT")
	},
}
