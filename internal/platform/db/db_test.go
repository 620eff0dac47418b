package db_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PINJAM-backend/internal/platform/db"
	"PINJAM-backend/internal/platform/db/dbtest"
)

func TestLoadConfig_AppliesDefaultsAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
version: "1"
mode: dev
database:
  driver: sqlite
  path: pinjam.db
  password: from-file
auth:
  jwt_secret: file-secret
`), 0o600))
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("DB_PASSWORD", "")

	cfg, err := db.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Mode)
	assert.Equal(t, db.DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, "from-file", cfg.DB.Password)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, ":8443", cfg.Server.Addr)
	assert.Equal(t, "pinjam-backend", cfg.Tracing.ServiceName)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := db.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestConnect_UnknownDriver(t *testing.T) {
	_, err := db.Connect(db.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
}

func TestRunMigrations_CreatesSchema(t *testing.T) {
	conn := dbtest.Open(t)

	for _, table := range []string{"auth_accounts", "asset_categories", "assets", "disposals", "borrowings", "borrowing_events", "returns"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}
	assert.Equal(t, db.DialectSQLite, db.DialectOf(conn))

	// 2回目は何もしない
	require.NoError(t, db.RunMigrations(context.Background(), conn))
}

func TestIsUniqueViolation(t *testing.T) {
	conn := dbtest.Open(t)
	dbtest.SeedCategory(t, conn, "Laptop", "LAP")

	_, err := conn.Exec(`INSERT INTO asset_categories (category_name, category_code) VALUES ('Other', 'LAP')`)
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err))

	assert.True(t, db.IsUniqueViolation(&mysql.MySQLError{Number: 1062}))
	assert.False(t, db.IsUniqueViolation(&mysql.MySQLError{Number: 1452}))
	assert.False(t, db.IsUniqueViolation(errors.New("boom")))
	assert.False(t, db.IsUniqueViolation(sql.ErrNoRows))
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.RunInTx(ctx, conn, nil, func(ctx context.Context, tx db.DBTX) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO asset_categories (category_name, category_code) VALUES ('A', 'A')`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM asset_categories`).Scan(&n))
	assert.Zero(t, n)
}

func TestPage(t *testing.T) {
	p := db.Page{Limit: 0, Offset: -3, Order: "ASC"}.Normalize()
	assert.Equal(t, db.Page{Limit: db.DefaultLimit, Offset: 0, Order: "asc"}, p)

	p = db.Page{Limit: 1000, Order: "sideways"}.Normalize()
	assert.Equal(t, db.MaxLimit, p.Limit)
	assert.Equal(t, "desc", p.Order)

	p = db.Page{Limit: 10, Offset: 0}
	assert.Equal(t, 10, p.NextOffset(25))
	assert.Equal(t, 0, db.Page{Limit: 10, Offset: 20}.NextOffset(25))
}

func TestContains_TreatsWildcardsLiterally(t *testing.T) {
	conn := dbtest.Open(t)
	cat := dbtest.SeedCategory(t, conn, "Misc", "MSC")
	for _, name := range []string{"Diskon 50% Kabel", "Diskon 500 Kabel", "A_1 Mic", "AB1 Mic", "Tanda!Seru"} {
		dbtest.SeedAsset(t, conn, cat, name)
	}

	names := func(term string) []string {
		t.Helper()
		q, args, err := db.DialectSQLite.Builder().
			From(goqu.T("assets").As("a")).
			Select(goqu.I("a.name")).
			Where(db.Contains("a.name", term)).
			Order(goqu.I("a.name").Asc()).
			Prepared(true).ToSQL()
		require.NoError(t, err)
		rows, err := conn.Query(q, args...)
		require.NoError(t, err)
		defer rows.Close()
		var out []string
		for rows.Next() {
			var n string
			require.NoError(t, rows.Scan(&n))
			out = append(out, n)
		}
		require.NoError(t, rows.Err())
		return out
	}

	assert.Equal(t, []string{"Diskon 50% Kabel"}, names("50%"))
	assert.Equal(t, []string{"A_1 Mic"}, names("a_1"))
	assert.Equal(t, []string{"Tanda!Seru"}, names("!s"))
	assert.Len(t, names("kabel"), 2)
}
