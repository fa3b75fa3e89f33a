// Package sqlupsert performs atomic upserts through stored routines it
// synthesizes on the fly.
//
// An upsert names a target table, a selector (the columns and values that
// identify the row) and a setter (the columns and values to write). The
// client defines one routine per upsert shape, named after the table and
// the sorted selector and setter fields, and invokes it. The routine updates
// the matching rows or inserts one when none matches, absorbing the
// uniqueness race with a concurrent insert by retrying the update once.
//
//	drv, err := sql.Open("postgres", dsn)
//	if err != nil {
//		return err
//	}
//	client := sqlupsert.New(drv)
//	_, err = client.Upsert(ctx, sql.Table("users"),
//		sqlupsert.Fields{"username": "jerry"},
//		sqlupsert.Fields{"color": "red", "size": sqlupsert.Default},
//	)
//
// Postgres routines are plpgsql functions. MySQL routines are stored
// procedures. ClearAll drops every routine created with the client prefix.
package sqlupsert
