//go:build integration

package sqlupsert_test

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/sqlupsert"
	"github.com/syssam/sqlupsert/dialect"
	"github.com/syssam/sqlupsert/dialect/sql"
	"github.com/syssam/sqlupsert/dialect/sql/schema"
)

const (
	testDBName     = "testdb"
	testDBUser     = "testuser"
	testDBPassword = "testpass"
)

var connString string

func TestMain(m *testing.M) {
	ctx := context.Background()
	pgC, err := postgres.Run(ctx, "postgres:17",
		postgres.WithDatabase(testDBName),
		postgres.WithUsername(testDBUser),
		postgres.WithPassword(testDBPassword),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to start PostgreSQL container: %v", err))
	}
	connString, err = pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(fmt.Sprintf("failed to get PostgreSQL connection string: %v", err))
	}
	if err := setupTables(ctx); err != nil {
		panic(fmt.Sprintf("failed to setup tables: %v", err))
	}
	code := m.Run()
	if err := testcontainers.TerminateContainer(pgC); err != nil {
		fmt.Printf("failed to terminate PostgreSQL container: %v\n", err)
	}
	os.Exit(code)
}

func setupTables(ctx context.Context) error {
	db, err := stdsql.Open("pgx", connString)
	if err != nil {
		return err
	}
	defer db.Close()
	for _, stmt := range []string{
		`CREATE TABLE users (
			id serial PRIMARY KEY,
			username text NOT NULL UNIQUE,
			color text DEFAULT 'green',
			size character varying(16),
			seen_at timestamptz DEFAULT now()
		)`,
		`CREATE SCHEMA crm`,
		`CREATE TABLE crm.pets (
			name text NOT NULL,
			owner uuid NOT NULL,
			age integer DEFAULT 0,
			UNIQUE (name, owner)
		)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func openDriver(t *testing.T) *sql.Driver {
	t.Helper()
	drv, err := sql.Open("pgx", connString)
	require.NoError(t, err)
	t.Cleanup(func() { _ = drv.Close() })
	return drv
}

func count(t *testing.T, drv *sql.Driver, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, drv.DB().QueryRowContext(context.Background(), query, args...).Scan(&n))
	return n
}

func TestIntegrationUpsert(t *testing.T) {
	ctx := context.Background()
	drv := openDriver(t)
	require.Equal(t, dialect.Postgres, drv.Dialect())
	client := sqlupsert.New(drv)
	username := "user-" + uuid.NewString()[:8]

	res, err := client.Upsert(ctx, sql.Table("users"),
		sqlupsert.Fields{"username": username},
		sqlupsert.Fields{"size": "L"},
	)
	require.NoError(t, err)
	assert.Equal(t, "upsert_1_0_0_users_sel_username_set_size", res.Procedure)

	_, err = client.Upsert(ctx, sql.Table("users"),
		sqlupsert.Fields{"username": username},
		sqlupsert.Fields{"size": "XL", "color": "red"},
	)
	require.NoError(t, err)

	var (
		color, size string
		seenAt      time.Time
	)
	err = drv.DB().QueryRowContext(ctx, "SELECT color, size, seen_at FROM users WHERE username = $1", username).Scan(&color, &size, &seenAt)
	require.NoError(t, err)
	assert.Equal(t, "red", color)
	assert.Equal(t, "XL", size)
	assert.Equal(t, 1, count(t, drv, "SELECT count(*) FROM users WHERE username = $1", username))

	// Columns missing from the setter keep their values on update.
	_, err = client.Upsert(ctx, sql.Table("users"),
		sqlupsert.Fields{"username": username},
		sqlupsert.Fields{"size": "M"},
	)
	require.NoError(t, err)
	var (
		color2, size2 string
		seenAt2       time.Time
	)
	err = drv.DB().QueryRowContext(ctx, "SELECT color, size, seen_at FROM users WHERE username = $1", username).Scan(&color2, &size2, &seenAt2)
	require.NoError(t, err)
	assert.Equal(t, "red", color2)
	assert.Equal(t, "M", size2)
	assert.True(t, seenAt.Equal(seenAt2), "seen_at changed from %v to %v", seenAt, seenAt2)
}

func TestIntegrationConcurrentUpserts(t *testing.T) {
	drv := openDriver(t)
	client := sqlupsert.New(drv)
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
	assert.Equal(t, 1, count(t, drv, "SELECT count(*) FROM users WHERE username = $1", username))
}

func TestIntegrationDefaults(t *testing.T) {
	ctx := context.Background()
	drv := openDriver(t)
	client := sqlupsert.New(drv)
	username := "defaults-" + uuid.NewString()[:8]

	_, err := client.Upsert(ctx, sql.Table("users"),
		sqlupsert.Fields{"username": username},
		sqlupsert.Fields{"color": "blue", "seen_at": sqlupsert.Default},
	)
	require.NoError(t, err)
	_, err = client.Upsert(ctx, sql.Table("users"),
		sqlupsert.Fields{"username": username},
		sqlupsert.Fields{"color": sqlupsert.Default, "seen_at": sqlupsert.Default},
	)
	require.NoError(t, err)

	var (
		color  string
		seenAt time.Time
	)
	err = drv.DB().QueryRowContext(ctx, "SELECT color, seen_at FROM users WHERE username = $1", username).Scan(&color, &seenAt)
	require.NoError(t, err)
	assert.Equal(t, "green", color)
	assert.WithinDuration(t, time.Now(), seenAt, time.Minute)
}

func TestIntegrationQualifiedTable(t *testing.T) {
	ctx := context.Background()
	drv := openDriver(t)
	client := sqlupsert.New(drv, sqlupsert.WithInspector(schema.NewAtlas(dialect.Postgres, drv.DB())))
	owner := uuid.New()
	pets := sql.Table("pets").Schema("crm")

	for age := range 3 {
		res, err := client.Upsert(ctx, pets,
			sqlupsert.Fields{"name": "rex", "owner": owner.String()},
			sqlupsert.Fields{"age": age},
		)
		require.NoError(t, err)
		assert.Equal(t, "upsert_1_0_0_crm__pets_sel_name_a_owner_set_age", res.Procedure)
	}
	assert.Equal(t, 1, count(t, drv, "SELECT count(*) FROM crm.pets WHERE owner = $1", owner.String()))
	assert.Equal(t, 2, count(t, drv, "SELECT age FROM crm.pets WHERE owner = $1", owner.String()))
	assert.Equal(t, 1, count(t, drv, "SELECT count(*) FROM pg_proc WHERE proname = $1",
		"upsert_1_0_0_crm__pets_sel_name_a_owner_set_age"), "one routine after repeated upserts")
}

func TestIntegrationErrors(t *testing.T) {
	ctx := context.Background()
	client := sqlupsert.New(openDriver(t))

	_, err := client.Upsert(ctx, sql.Table("users"), sqlupsert.Fields{"nickname": "x"}, sqlupsert.Fields{})
	assert.True(t, sqlupsert.IsLookupError(err))

	_, err = client.Upsert(ctx, sql.Table("missing"), sqlupsert.Fields{"id": 1}, sqlupsert.Fields{})
	assert.True(t, sqlupsert.IsLookupError(err))

	// The insert path leaves username NULL.
	_, err = client.Upsert(ctx, sql.Table("users"), sqlupsert.Fields{"size": "none-" + uuid.NewString()[:8]}, sqlupsert.Fields{})
	assert.True(t, sqlupsert.IsConstraintError(err))
}

func TestIntegrationClearAll(t *testing.T) {
	ctx := context.Background()
	drv := openDriver(t)
	client := sqlupsert.New(drv, sqlupsert.WithPrefix("upsert_cleartest"))

	_, err := client.Upsert(ctx, sql.Table("users"),
		sqlupsert.Fields{"username": "clear-" + uuid.NewString()[:8]},
		sqlupsert.Fields{"size": "M"},
	)
	require.NoError(t, err)

	dropped, err := client.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"upsert_cleartest_users_sel_username_set_size"}, dropped)
	assert.Zero(t, count(t, drv, "SELECT count(*) FROM pg_proc WHERE proname LIKE 'upsert_cleartest%'"))
	assert.NotZero(t, count(t, drv, "SELECT count(*) FROM pg_proc WHERE proname LIKE 'upsert_1_0_0%'"),
		"routines of other prefixes are kept")

	// A cleared routine is defined again on the next call.
	_, err = client.Upsert(ctx, sql.Table("users"),
		sqlupsert.Fields{"username": "clear-" + uuid.NewString()[:8]},
		sqlupsert.Fields{"size": "M"},
	)
	require.NoError(t, err)
}
