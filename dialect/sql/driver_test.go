package sql

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlupsert/dialect"
)

func TestWithVars(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.Postgres, db)

	mock.ExpectExec("SET search_path = 'tenant_a'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT upsert_1_0_0_users_sel_id_set_").WillReturnRows(sqlmock.NewRows([]string{"upsert"}).AddRow(""))
	mock.ExpectExec("RESET search_path").WillReturnResult(sqlmock.NewResult(0, 0))
	rows := &Rows{}
	err = drv.Query(
		WithVar(context.Background(), "search_path", "tenant_a"),
		"SELECT upsert_1_0_0_users_sel_id_set_($1)",
		[]any{1},
		rows,
	)
	require.NoError(t, err)
	require.NoError(t, rows.Close(), "rows should be closed to release the connection")
	require.NoError(t, mock.ExpectationsWereMet())

	// The last value of a repeated variable wins, and it is reset once.
	mock.ExpectExec("SET search_path = 'tenant_a'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET search_path = 'tenant_b'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE OR REPLACE FUNCTION").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("RESET search_path").WillReturnResult(sqlmock.NewResult(0, 0))
	err = drv.Exec(
		WithVar(WithVar(context.Background(), "search_path", "tenant_a"), "search_path", "tenant_b"),
		"CREATE OR REPLACE FUNCTION f() RETURNS VOID AS $$ BEGIN END; $$ LANGUAGE plpgsql",
		[]any{},
		nil,
	)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithVarsMySQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	drv := OpenDB("mysql", db)

	mock.ExpectExec("SET sql_mode = 'ANSI_QUOTES'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CALL p\(\)`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET sql_mode = NULL").WillReturnResult(sqlmock.NewResult(0, 0))
	err = drv.Exec(WithVar(context.Background(), "sql_mode", "ANSI_QUOTES"), "CALL p()", []any{}, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	v, ok := VarFromContext(WithVar(context.Background(), "sql_mode", "ANSI_QUOTES"), "sql_mode")
	assert.True(t, ok)
	assert.Equal(t, "ANSI_QUOTES", v)
	_, ok = VarFromContext(context.Background(), "sql_mode")
	assert.False(t, ok)
}

func TestWithVarsInvalidIdentifier(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.Postgres, db)

	rows := &Rows{}
	err = drv.Query(
		WithVar(context.Background(), "search_path; DROP TABLE users; --", "public"),
		"SELECT 1",
		[]any{},
		rows,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session variable name")
}

func TestWithVarsEscapedValue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.Postgres, db)

	mock.ExpectExec("SET application_name = 'it''s escaped'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("RESET application_name").WillReturnResult(sqlmock.NewResult(0, 0))

	rows := &Rows{}
	err = drv.Query(WithVar(context.Background(), "application_name", "it's escaped"), "SELECT 1", []any{}, rows)
	require.NoError(t, err)
	require.NoError(t, rows.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenDB(t *testing.T) {
	tests := []struct {
		driver  string
		dialect string
	}{
		{"postgres", dialect.Postgres},
		{"pgx", dialect.Postgres},
		{"mysql", dialect.MySQL},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			drv := OpenDB(tt.driver, db)
			assert.Equal(t, tt.dialect, drv.Dialect())
			assert.Same(t, db, drv.DB())
		})
	}
}

func TestDialectOf(t *testing.T) {
	assert.Equal(t, dialect.Postgres, DialectOf("pgx/v5"))
	assert.Equal(t, dialect.Postgres, DialectOf("postgres"))
	assert.Equal(t, dialect.MySQL, DialectOf("mysql"))
	assert.Equal(t, "sqlite3", DialectOf("sqlite3"))
}

func TestDriverQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	t.Run("with_args", func(t *testing.T) {
		mock.ExpectQuery(`SELECT name FROM users WHERE id = \$1`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Alice"))

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT name FROM users WHERE id = $1", []any{1}, rows)
		require.NoError(t, err)
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		expectedErr := errors.New("database error")
		mock.ExpectQuery("SELECT").WillReturnError(expectedErr)

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT", []any{}, rows)
		require.ErrorIs(t, err, expectedErr)
		assert.Contains(t, err.Error(), "dialect/sql: query:")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_args", func(t *testing.T) {
		err := drv.Query(context.Background(), "SELECT 1", 1, &Rows{})
		assert.EqualError(t, err, "dialect/sql: invalid type int. expect []any for args")
		err = drv.Query(context.Background(), "SELECT 1", []any{}, nil)
		assert.EqualError(t, err, "dialect/sql: invalid type <nil>. expect *sql.Rows")
	})
}

func TestDriverExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	t.Run("result", func(t *testing.T) {
		mock.ExpectExec(`UPDATE users SET name = \$1 WHERE id = \$2`).
			WithArgs("Alice", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		var res Result
		err := drv.Exec(context.Background(), "UPDATE users SET name = $1 WHERE id = $2", []any{"Alice", 1}, &res)
		require.NoError(t, err)
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		expectedErr := errors.New("permission denied")
		mock.ExpectExec("DROP FUNCTION").WillReturnError(expectedErr)

		err := drv.Exec(context.Background(), "DROP FUNCTION f()", []any{}, nil)
		require.ErrorIs(t, err, expectedErr)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestScanRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.MySQL, db)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id", "name", "note"}).AddRow(int64(1), []byte("Alice"), nil))
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT id, name, note FROM users", []any{}, rows))
	columns, values, err := ScanRow(rows)
	require.NoError(t, err)
	require.NoError(t, rows.Close())
	assert.Equal(t, []string{"id", "name", "note"}, columns)
	assert.Equal(t, []any{int64(1), "Alice", nil}, values)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	require.NoError(t, drv.Query(context.Background(), "SELECT id FROM users", []any{}, rows))
	columns, values, err = ScanRow(rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, columns)
	assert.Nil(t, values)
}

func TestScanValue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	mock.ExpectQuery("SELECT now").WillReturnRows(sqlmock.NewRows([]string{"now"}).AddRow("2024-01-01"))
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT now()", []any{}, rows))
	var v any
	require.NoError(t, ScanValue(rows, &v))
	assert.Equal(t, "2024-01-01", v)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"v"}))
	require.NoError(t, drv.Query(context.Background(), "SELECT v", []any{}, rows))
	assert.EqualError(t, ScanValue(rows, &v), "dialect/sql: no rows in result set")
}

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"search_path", true},
		{"schema.table", true},
		{"_private", true},
		{"", false},
		{"123foo", false},
		{"foo bar", false},
		{"foo;DROP TABLE", false},
		{string(make([]byte, 129)), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, isValidIdentifier(tt.input), tt.input)
	}
}

func TestEscapeStringValue(t *testing.T) {
	assert.Equal(t, "public", escapeStringValue("public"))
	assert.Equal(t, "it''s", escapeStringValue("it's"))
	assert.Equal(t, `path\\to`, escapeStringValue(`path\to`))
	assert.Equal(t, "''; DROP TABLE users; --", escapeStringValue("'; DROP TABLE users; --"))
}
