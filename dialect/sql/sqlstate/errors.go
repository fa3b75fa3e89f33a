// Package sqlstate classifies errors reported by the store while defining,
// invoking or dropping synthesized routines, and the constraint violations
// raised by the statements they run.
package sqlstate

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes.
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgInternalError       = "XX000"
	pgDuplicateFunction   = "42723"
	pgUndefinedFunction   = "42883"
)

// pgProcIndex is the catalog index that rejects two sessions creating the
// same new function at once.
const pgProcIndex = "pg_proc_proname_args_nsp_index"

// MySQL error numbers.
const (
	mysqlSPExists               = 1304
	mysqlSPDoesNotExist         = 1305
	mysqlBadNull                = 1048
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451
	mysqlForeignKeyChild        = 1452
	mysqlNoDefault              = 1364
	mysqlCheckConstraintViolate = 3819
)

// sqlStateError is an interface for errors that provide SQLSTATE codes.
type sqlStateError interface {
	SQLState() string
}

// storeError is the driver independent view of a store error.
type storeError struct {
	code       string
	number     uint16
	message    string
	constraint string
}

// inspect extracts the store error from the error chain.
func inspect(err error) (storeError, bool) {
	var (
		pqErr  *pq.Error
		pgxErr *pgconn.PgError
		myErr  *mysql.MySQLError
	)
	switch {
	case errors.As(err, &pqErr):
		return storeError{code: string(pqErr.Code), message: pqErr.Message, constraint: pqErr.Constraint}, true
	case errors.As(err, &pgxErr):
		return storeError{code: pgxErr.Code, message: pgxErr.Message, constraint: pgxErr.ConstraintName}, true
	case errors.As(err, &myErr):
		return storeError{number: myErr.Number, message: myErr.Message}, true
	}
	if e, ok := asError[sqlStateError](err); ok {
		return storeError{code: e.SQLState(), message: err.Error()}, true
	}
	return storeError{}, false
}

// IsDefinitionRace reports if the error resulted from the routine
// definition being changed by another session while it was submitted.
// Postgres reports a concurrent replace as "tuple concurrently updated" and
// a concurrent first creation as a violation of the pg_proc name index.
func IsDefinitionRace(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := inspect(err); ok {
		switch e.code {
		case pgInternalError:
			return strings.Contains(e.message, "tuple concurrently updated")
		case pgUniqueViolation:
			return e.constraint == pgProcIndex || strings.Contains(e.message, pgProcIndex)
		}
		return false
	}
	return containsAny(err.Error(), "tuple concurrently updated", pgProcIndex)
}

// IsRoutineExists reports if the error resulted from creating a routine
// that is already defined.
func IsRoutineExists(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := inspect(err); ok {
		return e.code == pgDuplicateFunction || e.number == mysqlSPExists
	}
	return containsAny(err.Error(), "Error 1304")
}

// IsUndefinedRoutine reports if the error resulted from invoking or dropping
// a routine that does not exist.
func IsUndefinedRoutine(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := inspect(err); ok {
		return e.code == pgUndefinedFunction || e.number == mysqlSPDoesNotExist
	}
	return containsAny(err.Error(), "Error 1305")
}

// IsConstraintError reports if the error resulted from a table constraint
// rejecting the row written by a routine: a uniqueness violation that the
// routine could not absorb, a foreign key, a check or a NOT NULL column.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := inspect(err); ok {
		switch e.code {
		case pgUniqueViolation:
			return e.constraint != pgProcIndex && !strings.Contains(e.message, pgProcIndex)
		case pgNotNullViolation, pgForeignKeyViolation, pgCheckViolation:
			return true
		}
		switch e.number {
		case mysqlBadNull, mysqlDuplicateEntry, mysqlForeignKeyParent, mysqlForeignKeyChild,
			mysqlNoDefault, mysqlCheckConstraintViolate:
			return true
		}
		return false
	}
	return containsAny(err.Error(),
		"violates unique constraint",
		"violates foreign key constraint",
		"violates check constraint",
		"violates not-null constraint",
		"Error 1062",
		"Error 1451",
		"Error 1452",
		"Error 3819",
	)
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
