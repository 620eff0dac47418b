package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/mysql/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

func RunMigrations(ctx context.Context, conn *sql.DB) error {
	d := DialectOf(conn)
	if err := goose.SetDialect(string(d)); err != nil {
		return err
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.UpContext(ctx, conn, d.MigrationDir()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// MigrationStatus logs the applied state of every migration.
func MigrationStatus(ctx context.Context, conn *sql.DB) error {
	d := DialectOf(conn)
	if err := goose.SetDialect(string(d)); err != nil {
		return err
	}
	goose.SetBaseFS(migrationsFS)
	return goose.StatusContext(ctx, conn, d.MigrationDir())
}
