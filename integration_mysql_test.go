//go:build integration

package sqlupsert_test

import (
	"context"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/sqlupsert"
	"github.com/syssam/sqlupsert/dialect"
	"github.com/syssam/sqlupsert/dialect/sql"
)

func openMySQL(t *testing.T) *sql.Driver {
	t.Helper()
	ctx := context.Background()
	myC, err := mysql.Run(ctx, "mysql:8.0.36",
		mysql.WithDatabase(testDBName),
		mysql.WithUsername(testDBUser),
		mysql.WithPassword(testDBPassword),
	)
	testcontainers.CleanupContainer(t, myC)
	require.NoError(t, err)
	dsn, err := myC.ConnectionString(ctx)
	require.NoError(t, err)
	drv, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = drv.Close() })
	_, err = drv.DB().ExecContext(ctx, `CREATE TABLE users (
		id int AUTO_INCREMENT PRIMARY KEY,
		username varchar(64) NOT NULL UNIQUE,
		color varchar(16) DEFAULT 'green',
		size varchar(16)
	)`)
	require.NoError(t, err)
	return drv
}

func TestIntegrationMySQL(t *testing.T) {
	drv := openMySQL(t)
	require.Equal(t, dialect.MySQL, drv.Dialect())
	client := sqlupsert.New(drv)

	row := func(t *testing.T, username string) (color, size string) {
		t.Helper()
		err := drv.DB().QueryRowContext(context.Background(),
			"SELECT COALESCE(color, ''), COALESCE(size, '') FROM users WHERE username = ?", username).Scan(&color, &size)
		require.NoError(t, err)
		return color, size
	}

	t.Run("InsertThenUpdate", func(t *testing.T) {
		ctx := context.Background()
		username := "user-" + uuid.NewString()[:8]

		res, err := client.Upsert(ctx, sql.Table("users"),
			sqlupsert.Fields{"username": username},
			sqlupsert.Fields{"size": "L"},
		)
		require.NoError(t, err)
		assert.Equal(t, "upsert_1_0_0_users_sel_username_set_size", res.Procedure)
		color, size := row(t, username)
		assert.Equal(t, "green", color)
		assert.Equal(t, "L", size)

		_, err = client.Upsert(ctx, sql.Table("users"),
			sqlupsert.Fields{"username": username},
			sqlupsert.Fields{"size": "XL", "color": "red"},
		)
		require.NoError(t, err)
		color, size = row(t, username)
		assert.Equal(t, "red", color)
		assert.Equal(t, "XL", size)

		// Same values: ROW_COUNT is zero but the row matches, so nothing is inserted.
		_, err = client.Upsert(ctx, sql.Table("users"),
			sqlupsert.Fields{"username": username},
			sqlupsert.Fields{"size": "XL"},
		)
		require.NoError(t, err)

		// Columns missing from the setter keep their values.
		_, err = client.Upsert(ctx, sql.Table("users"),
			sqlupsert.Fields{"username": username},
			sqlupsert.Fields{"size": "M"},
		)
		require.NoError(t, err)
		color, size = row(t, username)
		assert.Equal(t, "red", color)
		assert.Equal(t, "M", size)
		assert.Equal(t, 1, count(t, drv, "SELECT count(*) FROM users WHERE username = ?", username))
		assert.Equal(t, 1, count(t, drv,
			"SELECT count(*) FROM information_schema.ROUTINES WHERE ROUTINE_SCHEMA = DATABASE() AND ROUTINE_NAME = ?",
			"upsert_1_0_0_users_sel_username_set_size"), "one routine after repeated upserts")
	})

	t.Run("Defaults", func(t *testing.T) {
		ctx := context.Background()
		username := "defaults-" + uuid.NewString()[:8]

		_, err := client.Upsert(ctx, sql.Table("users"),
			sqlupsert.Fields{"username": username},
			sqlupsert.Fields{"color": "blue"},
		)
		require.NoError(t, err)
		_, err = client.Upsert(ctx, sql.Table("users"),
			sqlupsert.Fields{"username": username},
			sqlupsert.Fields{"color": sqlupsert.Default},
		)
		require.NoError(t, err)
		color, _ := row(t, username)
		assert.Equal(t, "green", color)
	})

	t.Run("ConcurrentUpserts", func(t *testing.T) {
		username := "race-" + uuid.NewString()[:8]
		g, ctx := errgroup.WithContext(context.Background())
		for i := range 16 {
			g.Go(func() error {
				_, err := client.Upsert(ctx, sql.Table("users"),
					sqlupsert.Fields{"username": username},
					sqlupsert.Fields{"size": fmt.Sprintf("S%d", i)},
				)
				return err
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, 1, count(t, drv, "SELECT count(*) FROM users WHERE username = ?", username))
	})

	t.Run("ClearAll", func(t *testing.T) {
		dropped, err := client.ClearAll(context.Background())
		require.NoError(t, err)
		assert.Contains(t, dropped, "upsert_1_0_0_users_sel_username_set_size")
		assert.Zero(t, count(t, drv,
			"SELECT count(*) FROM information_schema.ROUTINES WHERE ROUTINE_SCHEMA = DATABASE() AND ROUTINE_NAME LIKE 'upsert\\_1\\_0\\_0\\_%'"))
	})
}
