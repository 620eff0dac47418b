// Package dbtest opens throwaway SQLite databases with the production schema applied.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"PINJAM-backend/internal/platform/db"
)

func Open(t testing.TB) *sql.DB {
	t.Helper()
	goose.SetLogger(goose.NopLogger())

	path := filepath.Join(t.TempDir(), "pinjam_test.db")
	conn, err := sql.Open(db.DriverSQLite, db.SQLiteDSN(path))
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(context.Background(), conn))
	conn.SetMaxOpenConns(1)

	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func SeedAccount(t testing.TB, conn *sql.DB, id, displayName, role, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = conn.Exec(`INSERT INTO auth_accounts (id, password_hash, display_name, role, is_disabled) VALUES (?, ?, ?, ?, 0)`,
		id, string(hash), displayName, role)
	require.NoError(t, err)
}

func DisableAccount(t testing.TB, conn *sql.DB, id string) {
	t.Helper()
	_, err := conn.Exec(`UPDATE auth_accounts SET is_disabled = 1 WHERE id = ?`, id)
	require.NoError(t, err)
}

func SeedCategory(t testing.TB, conn *sql.DB, name, code string) uint {
	t.Helper()
	res, err := conn.Exec(`INSERT INTO asset_categories (category_name, category_code, is_disabled) VALUES (?, ?, 0)`, name, code)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint(id)
}

func SeedAsset(t testing.TB, conn *sql.DB, categoryID uint, name string) uint64 {
	t.Helper()
	now := time.Now().UTC()
	res, err := conn.Exec(`
		INSERT INTO assets (name, category_id, condition_label, availability, created_at, updated_at)
		VALUES (?, ?, 'Baik', 'Available', ?, ?)`, name, categoryID, now, now)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}

func Availability(t testing.TB, conn *sql.DB, assetID uint64) string {
	t.Helper()
	var v string
	require.NoError(t, conn.QueryRow(`SELECT availability FROM assets WHERE asset_id = ?`, assetID).Scan(&v))
	return v
}

// SeedBorrowing inserts a borrowing in the given state. Active states also
// hold the asset (Borrowed, active_asset_id set) the way the engine leaves it.
func SeedBorrowing(t testing.TB, conn *sql.DB, ulid, borrowerID string, assetID uint64, state string) uint64 {
	t.Helper()
	now := time.Now().UTC()
	var active sql.NullInt64
	if state == "Pending" || state == "Approved" {
		active = sql.NullInt64{Int64: int64(assetID), Valid: true}
		_, err := conn.Exec(`UPDATE assets SET availability = 'Borrowed' WHERE asset_id = ?`, assetID)
		require.NoError(t, err)
	}
	res, err := conn.Exec(`
		INSERT INTO borrowings (borrowing_ulid, borrower_id, asset_id, state, borrow_date, active_asset_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, ulid, borrowerID, assetID, state, now, active, now, now)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}

func Condition(t testing.TB, conn *sql.DB, assetID uint64) string {
	t.Helper()
	var v string
	require.NoError(t, conn.QueryRow(`SELECT condition_label FROM assets WHERE asset_id = ?`, assetID).Scan(&v))
	return v
}
