package counter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aimhigh31/work-ten-sub018/internal/database"
)

var moduleTypeWidth = strconv.Itoa(MaxModuleTypeLength)

var schemas = map[database.Driver]string{
	database.Postgres: `CREATE TABLE IF NOT EXISTS ` + TableName + ` (
		module_type VARCHAR(` + moduleTypeWidth + `) NOT NULL,
		year        INTEGER NOT NULL,
		value       BIGINT NOT NULL DEFAULT 0,
		create_time TIMESTAMP NOT NULL,
		change_time TIMESTAMP NOT NULL,
		PRIMARY KEY (module_type, year)
	)`,
	database.MySQL: `CREATE TABLE IF NOT EXISTS ` + TableName + ` (
		module_type VARCHAR(` + moduleTypeWidth + `) NOT NULL,
		year        INT NOT NULL,
		value       BIGINT NOT NULL DEFAULT 0,
		create_time DATETIME(6) NOT NULL,
		change_time DATETIME(6) NOT NULL,
		PRIMARY KEY (module_type, year)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	database.SQLite: `CREATE TABLE IF NOT EXISTS ` + TableName + ` (
		module_type TEXT NOT NULL,
		year        INTEGER NOT NULL,
		value       INTEGER NOT NULL DEFAULT 0,
		create_time DATETIME NOT NULL,
		change_time DATETIME NOT NULL,
		PRIMARY KEY (module_type, year)
	)`,
}

// SchemaSQL returns the CREATE TABLE statement for the dialect.
func SchemaSQL(d database.Driver) (string, error) {
	q, ok := schemas[d]
	if !ok {
		return "", fmt.Errorf("no counter schema for driver %s", d)
	}
	return q, nil
}

// EnsureSchema creates the counter table if it does not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	q, err := SchemaSQL(s.driver)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return s.classify("ensure schema", err)
	}
	return nil
}
