package db

import (
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/go-sql-driver/mysql"
)

// Dialect hides the few places where MySQL and SQLite need different SQL.
type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite3"
)

// DialectOf inspects the driver behind conn.
func DialectOf(conn *sql.DB) Dialect {
	if _, ok := conn.Driver().(*mysql.MySQLDriver); ok {
		return DialectMySQL
	}
	return DialectSQLite
}

// ForUpdate is the row lock suffix for SELECT inside a transaction.
// SQLite locks the whole database on write so no suffix is needed.
func (d Dialect) ForUpdate() string {
	if d == DialectMySQL {
		return " FOR UPDATE"
	}
	return ""
}

func (d Dialect) Builder() goqu.DialectWrapper {
	return goqu.Dialect(string(d))
}

// MigrationDir is the embedded directory holding this dialect's goose files.
func (d Dialect) MigrationDir() string {
	if d == DialectMySQL {
		return "migrations/mysql"
	}
	return "migrations/sqlite"
}
