package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimhigh31/work-ten-sub018/internal/config"
)

func TestParseDriver(t *testing.T) {
	testCases := []struct {
		in   string
		want Driver
	}{
		{"postgres", Postgres},
		{"PostgreSQL", Postgres},
		{" pg ", Postgres},
		{"mysql", MySQL},
		{"mariadb", MySQL},
		{"sqlite", SQLite},
		{"sqlite3", SQLite},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			d, err := ParseDriver(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, d)
		})
	}

	_, err := ParseDriver("oracle")
	assert.Error(t, err)
}

func TestGetDBDriver(t *testing.T) {
	t.Setenv("TEST_DB_DRIVER", "")
	t.Setenv("DB_DRIVER", "")
	assert.Equal(t, "postgres", GetDBDriver())

	t.Setenv("DB_DRIVER", "MySQL")
	assert.Equal(t, "mysql", GetDBDriver())

	t.Setenv("TEST_DB_DRIVER", "sqlite")
	assert.Equal(t, "sqlite", GetDBDriver())
}

func TestDriver_Rebind(t *testing.T) {
	q := "SELECT value FROM t WHERE a = ? AND b = ?"
	assert.Equal(t, "SELECT value FROM t WHERE a = $1 AND b = $2", Postgres.Rebind(q))
	assert.Equal(t, q, MySQL.Rebind(q))
	assert.Equal(t, q, SQLite.Rebind(q))

	assert.True(t, Postgres.IsPostgreSQL())
	assert.True(t, MySQL.IsMySQL())
	assert.True(t, SQLite.IsSQLite())
	assert.False(t, SQLite.IsMySQL())
}

func TestIsConnectionError(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", driver.ErrBadConn, true},
		{"wrapped bad conn", fmt.Errorf("exec: %w", driver.ErrBadConn), true},
		{"mysql invalid conn", mysql.ErrInvalidConn, true},
		{"deadline", context.DeadlineExceeded, true},
		{"pq connection class", &pq.Error{Code: "08006"}, true},
		{"pq admin shutdown", &pq.Error{Code: "57P01"}, true},
		{"pq too many connections", &pq.Error{Code: "53300"}, true},
		{"pq undefined table", &pq.Error{Code: "42P01"}, false},
		{"sqlite cannot open", sqlite3.Error{Code: sqlite3.ErrCantOpen}, true},
		{"sqlite constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"refused message", errors.New("dial tcp 127.0.0.1:3306: connect: connection refused"), true},
		{"syntax", errors.New("syntax error at or near"), false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsConnectionError(tc.err))
		})
	}
}

func TestIsLockConflict(t *testing.T) {
	assert.False(t, IsLockConflict(nil))
	assert.True(t, IsLockConflict(&pq.Error{Code: "40P01"}))
	assert.True(t, IsLockConflict(&pq.Error{Code: "40001"}))
	assert.False(t, IsLockConflict(&pq.Error{Code: "23505"}))
	assert.True(t, IsLockConflict(&mysql.MySQLError{Number: 1213}))
	assert.True(t, IsLockConflict(fmt.Errorf("upsert: %w", &mysql.MySQLError{Number: 1205})))
	assert.False(t, IsLockConflict(&mysql.MySQLError{Number: 1062}))
	assert.True(t, IsLockConflict(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.False(t, IsLockConflict(errors.New("deadlock")))
}

func TestBuildDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host: "db", Port: 3306, User: "codeseq", Password: "pw", Name: "codes", SSLMode: "disable",
	}

	my := BuildDSN(MySQL, cfg)
	assert.True(t, strings.HasPrefix(my, "codeseq:pw@tcp(db:3306)/codes?"), my)
	assert.Contains(t, my, "parseTime=true")

	cfg.Port = 5432
	assert.Equal(t, "host=db port=5432 user=codeseq password=pw dbname=codes sslmode=disable", BuildDSN(Postgres, cfg))

	cfg.Path = "/tmp/x.db"
	assert.True(t, strings.HasPrefix(BuildDSN(SQLite, cfg), "file:/tmp/x.db?"))

	cfg.DSN = "explicit"
	assert.Equal(t, "explicit", BuildDSN(MySQL, cfg))
}

func TestOpen_SQLite(t *testing.T) {
	cfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "open.db"), MaxOpenConns: 10}
	db, err := Open(context.Background(), SQLite, cfg)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
	var one int
	require.NoError(t, db.Get(&one, "SELECT 1"))
	assert.Equal(t, 1, one)
}
