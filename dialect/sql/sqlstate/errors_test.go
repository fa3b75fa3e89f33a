package sqlstate

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

type stateErr struct{ code, msg string }

func (e stateErr) Error() string    { return e.msg }
func (e stateErr) SQLState() string { return e.code }

func TestIsDefinitionRace(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "Nil"},
		{name: "PQConcurrentUpdate", err: &pq.Error{Code: "XX000", Message: "tuple concurrently updated"}, want: true},
		{name: "PQOtherInternal", err: &pq.Error{Code: "XX000", Message: "cache lookup failed"}},
		{name: "PQProcIndex", err: &pq.Error{Code: "23505", Constraint: "pg_proc_proname_args_nsp_index"}, want: true},
		{name: "PQUserIndex", err: &pq.Error{Code: "23505", Constraint: "users_username_key"}},
		{name: "PgxConcurrentUpdate", err: &pgconn.PgError{Code: "XX000", Message: "tuple concurrently updated"}, want: true},
		{name: "PgxProcIndex", err: &pgconn.PgError{Code: "23505", ConstraintName: "pg_proc_proname_args_nsp_index"}, want: true},
		{name: "Wrapped", err: fmt.Errorf("dialect/sql: exec: %w", &pq.Error{Code: "XX000", Message: "tuple concurrently updated"}), want: true},
		{name: "SQLState", err: stateErr{code: "XX000", msg: "ERROR: tuple concurrently updated"}, want: true},
		{name: "String", err: errors.New("pq: tuple concurrently updated"), want: true},
		{name: "MySQL", err: &mysql.MySQLError{Number: 1304, Message: "PROCEDURE p already exists"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDefinitionRace(tt.err))
		})
	}
}

func TestIsRoutineExists(t *testing.T) {
	assert.True(t, IsRoutineExists(&mysql.MySQLError{Number: 1304, Message: "PROCEDURE p already exists"}))
	assert.True(t, IsRoutineExists(fmt.Errorf("wrap: %w", &pq.Error{Code: "42723"})))
	assert.True(t, IsRoutineExists(errors.New("Error 1304 (42000): PROCEDURE p already exists")))
	assert.False(t, IsRoutineExists(&mysql.MySQLError{Number: 1062}))
	assert.False(t, IsRoutineExists(nil))
}

func TestIsUndefinedRoutine(t *testing.T) {
	assert.True(t, IsUndefinedRoutine(&pgconn.PgError{Code: "42883"}))
	assert.True(t, IsUndefinedRoutine(&mysql.MySQLError{Number: 1305}))
	assert.True(t, IsUndefinedRoutine(errors.New("Error 1305 (42000): PROCEDURE p does not exist")))
	assert.False(t, IsUndefinedRoutine(&pq.Error{Code: "42P01"}))
	assert.False(t, IsUndefinedRoutine(nil))
}

func TestIsConstraintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "Nil"},
		{name: "PQUnique", err: &pq.Error{Code: "23505", Constraint: "users_username_key"}, want: true},
		{name: "PQProcIndex", err: &pq.Error{Code: "23505", Constraint: "pg_proc_proname_args_nsp_index"}},
		{name: "PQNotNull", err: &pq.Error{Code: "23502", Message: `null value in column "size" violates not-null constraint`}, want: true},
		{name: "PgxForeignKey", err: &pgconn.PgError{Code: "23503"}, want: true},
		{name: "PgxCheck", err: fmt.Errorf("call: %w", &pgconn.PgError{Code: "23514"}), want: true},
		{name: "PQUndefined", err: &pq.Error{Code: "42883"}},
		{name: "MySQLDuplicate", err: &mysql.MySQLError{Number: 1062}, want: true},
		{name: "MySQLNoDefault", err: &mysql.MySQLError{Number: 1364}, want: true},
		{name: "MySQLForeignKey", err: &mysql.MySQLError{Number: 1452}, want: true},
		{name: "MySQLExists", err: &mysql.MySQLError{Number: 1304}},
		{name: "String", err: errors.New(`ERROR: insert or update on table "pets" violates foreign key constraint "pets_owner_fkey"`), want: true},
		{name: "Other", err: errors.New("connection refused")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConstraintError(tt.err))
		})
	}
}
