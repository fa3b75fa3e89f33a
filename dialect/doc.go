// Package dialect provides the store abstraction used by sqlupsert.
//
// This package defines the interfaces used to submit routine definitions and
// invoke routines, allowing sqlupsert to target every relational store that
// can host server-side routines.
//
// # Supported Dialects
//
//	dialect.Postgres = "postgres" // plpgsql functions
//	dialect.MySQL    = "mysql"    // stored procedures
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Close() error
//	    Dialect() string
//	}
//
// # Usage
//
//	import (
//	    "github.com/syssam/sqlupsert/dialect"
//	    "github.com/syssam/sqlupsert/dialect/sql"
//	)
//
//	drv, err := sql.Open(dialect.Postgres, "postgres://...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// # Sub-packages
//
//   - dialect/sql: database/sql backed driver and statement builder
//   - dialect/sql/schema: column introspection
//   - dialect/sql/sqlstate: store error classification
package dialect
