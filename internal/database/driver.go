// Package database provides connection and dialect helpers for the SQL counter backends.
package database

import (
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Driver identifies a supported SQL dialect by its database/sql driver name.
type Driver string

const (
	Postgres Driver = "postgres"
	MySQL    Driver = "mysql"
	SQLite   Driver = "sqlite3"
)

// ParseDriver maps configured driver names (and their common aliases) to a Driver.
func ParseDriver(name string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg", "pgsql":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %q", name)
	}
}

// GetDBDriver returns the driver named by the environment.
// In test mode TEST_DB_DRIVER takes precedence over DB_DRIVER.
func GetDBDriver() string {
	driver := os.Getenv("TEST_DB_DRIVER")
	if driver == "" {
		driver = os.Getenv("DB_DRIVER")
	}
	if driver == "" {
		driver = string(Postgres)
	}
	return strings.ToLower(driver)
}

// String implements fmt.Stringer.
func (d Driver) String() string { return string(d) }

// IsMySQL returns true for MySQL/MariaDB.
func (d Driver) IsMySQL() bool { return d == MySQL }

// IsPostgreSQL returns true for PostgreSQL.
func (d Driver) IsPostgreSQL() bool { return d == Postgres }

// IsSQLite returns true for SQLite.
func (d Driver) IsSQLite() bool { return d == SQLite }

// BindType returns the sqlx bindvar style for the dialect.
func (d Driver) BindType() int {
	return sqlx.BindType(string(d))
}

// Rebind converts a query written with ? placeholders to the dialect's bindvar style.
func (d Driver) Rebind(query string) string {
	return sqlx.Rebind(d.BindType(), query)
}
