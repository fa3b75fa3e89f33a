package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/sqlupsert/dialect"
	"github.com/syssam/sqlupsert/dialect/sql"
)

const (
	postgresColumnsQuery = "SELECT column_name, data_type, udt_name, column_default, is_nullable " +
		"FROM information_schema.columns " +
		"WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema()) AND table_name = $2 " +
		"ORDER BY ordinal_position"
	mysqlColumnsQuery = "SELECT COLUMN_NAME, COLUMN_TYPE, COLUMN_DEFAULT, IS_NULLABLE, EXTRA " +
		"FROM information_schema.COLUMNS " +
		"WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE()) AND TABLE_NAME = ? " +
		"ORDER BY ORDINAL_POSITION"
)

// InformationSchema is an Inspector that reads the standard
// information_schema.columns view.
type InformationSchema struct {
	drv dialect.Driver
}

// NewInformationSchema returns an Inspector querying through drv.
func NewInformationSchema(drv dialect.Driver) *InformationSchema {
	return &InformationSchema{drv: drv}
}

// InspectTable implements the Inspector interface.
func (i *InformationSchema) InspectTable(ctx context.Context, schema, name string) (*Table, error) {
	var (
		query string
		scan  func(*sql.Rows) (*Column, error)
	)
	switch d := i.drv.Dialect(); d {
	case dialect.Postgres:
		query, scan = postgresColumnsQuery, scanPostgresColumn
	case dialect.MySQL:
		query, scan = mysqlColumnsQuery, scanMySQLColumn
	default:
		return nil, fmt.Errorf("schema: unsupported dialect %q", d)
	}
	rows := &sql.Rows{}
	if err := i.drv.Query(ctx, query, []any{schema, name}, rows); err != nil {
		return nil, fmt.Errorf("schema: inspect %s: %w", name, err)
	}
	defer rows.Close()
	t := &Table{Schema: schema, Name: name}
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("schema: scan column of %s: %w", name, err)
		}
		t.Columns = append(t.Columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schema: inspect %s: %w", name, err)
	}
	if len(t.Columns) == 0 {
		return nil, &TableNotFoundError{Schema: schema, Name: name}
	}
	return t, nil
}

func scanPostgresColumn(rows *sql.Rows) (*Column, error) {
	var (
		c                 Column
		udtName, nullable string
		columnDefault     *string
	)
	if err := rows.Scan(&c.Name, &c.Type, &udtName, &columnDefault, &nullable); err != nil {
		return nil, err
	}
	switch c.Type {
	case "USER-DEFINED":
		c.Type = udtName
	case "ARRAY":
		c.Type = strings.TrimPrefix(udtName, "_") + "[]"
	}
	c.Nullable = nullable == "YES"
	if columnDefault != nil {
		v, expr, null := ParseDefault(*columnDefault)
		if !null {
			c.Default, c.DefaultExpr = &v, expr
		}
	}
	return &c, nil
}

func scanMySQLColumn(rows *sql.Rows) (*Column, error) {
	var (
		c               Column
		nullable, extra string
		columnDefault   *string
	)
	if err := rows.Scan(&c.Name, &c.Type, &columnDefault, &nullable, &extra); err != nil {
		return nil, err
	}
	c.Nullable = nullable == "YES"
	if columnDefault != nil {
		v := *columnDefault
		switch {
		// MySQL 8 reports expression defaults, CURRENT_TIMESTAMP included,
		// with the DEFAULT_GENERATED flag and literals unquoted.
		case strings.Contains(extra, "DEFAULT_GENERATED"):
			c.DefaultExpr = true
		case strings.HasPrefix(v, "'"):
			v, c.DefaultExpr, _ = ParseDefault(v)
		}
		c.Default = &v
	}
	return &c, nil
}
