package sql

import "fmt"

// ScanRow scans the first row of rows. It returns the column names and
// their values in column order; values is nil when rows is empty. Byte
// slices are converted to strings as text drivers (MySQL) report most
// types as raw bytes.
func ScanRow(rows ColumnScanner) ([]string, []any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("dialect/sql: columns: %w", err)
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, nil, err
		}
		return columns, nil, nil
	}
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, nil, fmt.Errorf("dialect/sql: scan: %w", err)
	}
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return columns, values, rows.Err()
}

// ScanValue scans the single column of the first row into dest.
// It fails when rows holds no rows.
func ScanValue(rows ColumnScanner, dest any) error {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return fmt.Errorf("dialect/sql: no rows in result set")
	}
	if err := rows.Scan(dest); err != nil {
		return fmt.Errorf("dialect/sql: scan: %w", err)
	}
	return rows.Err()
}
