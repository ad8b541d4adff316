package database

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/aimhigh31/work-ten-sub018/internal/config"
)

// BuildDSN returns the driver-specific data source name for cfg.
// An explicit cfg.DSN always wins.
func BuildDSN(d Driver, cfg config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	switch d {
	case MySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		mc.DBName = cfg.Name
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return mc.FormatDSN()
	case SQLite:
		path := cfg.Path
		if path == "" {
			path = "codeseq.db"
		}
		return "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
	default:
		return cfg.GetDSN()
	}
}

// Open connects to the configured database, applies pool settings and verifies
// connectivity with a ping bounded by ctx.
func Open(ctx context.Context, d Driver, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(string(d), BuildDSN(d, cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d, err)
	}

	maxOpen := cfg.MaxOpenConns
	if d == SQLite {
		// SQLite serialises writers anyway; one connection avoids SQLITE_BUSY churn.
		maxOpen = 1
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", d, err)
	}
	return db, nil
}
