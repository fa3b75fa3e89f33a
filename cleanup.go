package sqlupsert

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/sqlupsert/dialect"
	"github.com/syssam/sqlupsert/dialect/sql"
)

const (
	postgresListRoutines = "SELECT n.nspname, p.proname, pg_get_function_identity_arguments(p.oid) " +
		"FROM pg_proc p JOIN pg_namespace n ON n.oid = p.pronamespace " +
		"WHERE p.proname LIKE $1 AND p.proname <> $2 AND pg_function_is_visible(p.oid) " +
		"ORDER BY p.proname"
	mysqlListRoutines = "SELECT ROUTINE_SCHEMA, ROUTINE_NAME, '' FROM information_schema.ROUTINES " +
		"WHERE ROUTINE_SCHEMA = DATABASE() AND ROUTINE_TYPE = 'PROCEDURE' " +
		"AND ROUTINE_NAME LIKE ? AND ROUTINE_NAME <> ? " +
		"ORDER BY ROUTINE_NAME"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// storedRoutine is a routine found in the catalog.
type storedRoutine struct {
	schema, name, signature string
}

// ClearAll drops every routine whose name starts with the client prefix
// and returns their names. Routines of other prefixes are left untouched.
// It is meant for test teardown and environment resets.
//
// MySQL routines are created once and never replaced, so they keep the
// parameter types the columns had at creation. Run ClearAll after altering
// the type of an upserted column; the next upsert defines the routine again.
func (c *Client) ClearAll(ctx context.Context) ([]string, error) {
	if c.prefix == "" {
		return nil, NewInvalidInputError("prefix", "empty routine prefix matches every routine")
	}
	var list string
	switch d := c.drv.Dialect(); d {
	case dialect.Postgres:
		list = postgresListRoutines
	case dialect.MySQL:
		list = mysqlListRoutines
	default:
		return nil, fmt.Errorf("sqlupsert: unsupported dialect %q", d)
	}
	routines, err := c.listRoutines(ctx, list)
	if err != nil {
		return nil, err
	}
	var (
		dropped []string
		errs    []error
		b       = sql.Dialect(c.drv.Dialect())
	)
	for _, r := range routines {
		query, args := b.DropRoutine(r.name).Schema(r.schema).Signature(r.signature).Query()
		if err := c.drv.Exec(ctx, query, args, nil); err != nil {
			errs = append(errs, NewStoreError("drop", r.name, err))
			continue
		}
		c.log.Info("dropped routine", "procedure", r.name, "schema", r.schema)
		dropped = append(dropped, r.name)
	}
	return dropped, NewAggregateError(errs...)
}

func (c *Client) listRoutines(ctx context.Context, query string) ([]storedRoutine, error) {
	rows := &sql.Rows{}
	args := []any{likeEscaper.Replace(c.prefix+"_") + "%", helperRoutine}
	if err := c.drv.Query(ctx, query, args, rows); err != nil {
		return nil, NewStoreError("list", "", err)
	}
	defer rows.Close()
	var routines []storedRoutine
	for rows.Next() {
		var r storedRoutine
		if err := rows.Scan(&r.schema, &r.name, &r.signature); err != nil {
			return nil, NewStoreError("list", "", err)
		}
		routines = append(routines, r)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStoreError("list", "", err)
	}
	return routines, nil
}
