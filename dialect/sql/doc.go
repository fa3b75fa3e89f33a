// Package sql provides the database/sql backed driver and the statement
// builder used to synthesize routine bodies.
//
// # Builder Types
//
//   - Builder: low-level SQL string builder with identifier quoting
//   - UpdateBuilder: UPDATE statement with SET and WHERE clauses
//   - InsertBuilder: INSERT statement
//   - Selector: SELECT statement, with INTO for routine variables
//   - CallBuilder: routine invocation (SELECT fn(...) or CALL proc(...))
//   - DropRoutineBuilder: DROP FUNCTION or DROP PROCEDURE
//
// Values passed to the builders are bound through placeholders, unless they
// are created with Expr, in which case they are written as is. Routine bodies
// are rendered exclusively with Expr values that reference routine parameters:
//
//	t := sql.Table("users").Schema("public")
//	q, _ := sql.Dialect(dialect.Postgres).Update(t).
//		Set("color", sql.Expr("color_set")).
//		Where(sql.EQ("username", sql.Expr("username_sel"))).
//		Query()
//	// UPDATE "public"."users" SET "color" = color_set WHERE "username" = username_sel
//
// # Table Handles
//
// TableRef carries the optional schema qualifier. Flatten joins schema and
// table with a double underscore for contexts that cannot contain qualifier
// punctuation:
//
//	sql.Table("users").Flatten()                  // users
//	sql.Table("users").Schema("public").Flatten() // public__users
//
// # Drivers
//
// Driver wraps *sql.DB. StatsDriver and DebugDriver decorate it with query
// statistics and slog debug logging.
package sql
