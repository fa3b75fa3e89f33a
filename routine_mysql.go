package sqlupsert

import (
	"text/template"

	"github.com/syssam/sqlupsert/dialect/sql"
)

// mysqlTemplate defines a MySQL procedure. ROW_COUNT reports changed rows
// rather than matched ones, so a miss is confirmed with a row check before
// inserting. Duplicate key errors (1062) are absorbed by the handler and
// drive the single retry.
const mysqlTemplate = `CREATE PROCEDURE {{ .Name }}({{ join .Declarations ", " }})
BEGIN
  DECLARE attempt_state VARCHAR(16) DEFAULT 'first_attempt';
  DECLARE duplicate_key INT DEFAULT 0;
  DECLARE matched_rows INT DEFAULT 0;
  DECLARE CONTINUE HANDLER FOR 1062 SET duplicate_key = 1;
  WHILE attempt_state <> 'done' DO
{{- if .Update }}
    {{ .Update }};
    SET matched_rows = ROW_COUNT();
    IF matched_rows = 0 THEN
      {{ .Exists }};
    END IF;
{{- else }}
    {{ .Exists }};
{{- end }}
    IF matched_rows > 0 THEN
      SET attempt_state = 'done';
    ELSE
      SET duplicate_key = 0;
      {{ .Insert }};
      IF duplicate_key = 0 THEN
        SET attempt_state = 'done';
      ELSEIF attempt_state = 'first_attempt' THEN
        SET attempt_state = 'retrying';
      ELSE
        SET attempt_state = 'done';
      END IF;
    END IF;
  END WHILE;
END
`

var mysqlRoutine = &routineKind{
	tmpl: template.Must(template.New("mysql").Funcs(funcs).Parse(mysqlTemplate)),
	exists: func(b *sql.DialectBuilder, t *sql.TableRef, match *sql.Predicate) string {
		q, _ := b.Select("COUNT(*)").Into("matched_rows").From(t).Where(match).Query()
		return q
	},
}
