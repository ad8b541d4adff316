package counter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/aimhigh31/work-ten-sub018/internal/database"
)

// TableName is the table holding one row per (module_type, year).
const TableName = "code_sequences"

// MaxModuleTypeLength is the width of the module_type column, in characters.
// Every backend is held to it so a module type valid on one store is valid on all.
const MaxModuleTypeLength = 50

// We maintain exactly one row per (module_type, year) and atomically increment using a dialect specific UPSERT:
//
//	Postgres/SQLite: INSERT ... ON CONFLICT (module_type, year) DO UPDATE SET value = code_sequences.value + 1 RETURNING value
//	MySQL: INSERT ... VALUES (..., LAST_INSERT_ID(1), ...) ON DUPLICATE KEY UPDATE value = LAST_INSERT_ID(value + 1)
//
// The MySQL variant reads the new value from the Exec result so it stays on the same session/connection.
const (
	returningUpsert = `INSERT INTO ` + TableName + ` (module_type, year, value, create_time, change_time)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT (module_type, year) DO UPDATE SET value = ` + TableName + `.value + 1, change_time = EXCLUDED.change_time
		RETURNING value`

	mysqlUpsert = `INSERT INTO ` + TableName + ` (module_type, year, value, create_time, change_time)
		VALUES (?, ?, LAST_INSERT_ID(1), ?, ?)
		ON DUPLICATE KEY UPDATE value = LAST_INSERT_ID(value + 1), change_time = VALUES(change_time)`

	selectColumns = `SELECT module_type, year, value, create_time, change_time FROM ` + TableName
)

const defaultMaxConflictRetries = 5

// SQLStore is a Backend over PostgreSQL, MySQL/MariaDB or SQLite.
type SQLStore struct {
	db          *sqlx.DB
	driver      database.Driver
	maxAttempts int
	now         func() time.Time

	upsertSQL string
	getSQL    string
	listSQL   string
	listAll   string
}

var _ Backend = (*SQLStore)(nil)

// NewSQLStore wraps db. maxConflictRetries bounds how often the atomic statement is
// re-executed after lock contention before ErrConflict is returned.
func NewSQLStore(db *sqlx.DB, driver database.Driver, maxConflictRetries int) *SQLStore {
	if maxConflictRetries < 1 {
		maxConflictRetries = defaultMaxConflictRetries
	}
	s := &SQLStore{
		db:          db,
		driver:      driver,
		maxAttempts: maxConflictRetries,
		now:         time.Now,
		getSQL:      driver.Rebind(selectColumns + ` WHERE module_type = ? AND year = ?`),
		listSQL:     driver.Rebind(selectColumns + ` WHERE year = ? ORDER BY year, module_type`),
		listAll:     selectColumns + ` ORDER BY year, module_type`,
	}
	if driver.IsMySQL() {
		s.upsertSQL = mysqlUpsert
	} else {
		s.upsertSQL = driver.Rebind(returningUpsert)
	}
	return s
}

// Driver returns the store's SQL dialect.
func (s *SQLStore) Driver() database.Driver { return s.driver }

func (s *SQLStore) IncrementAndGet(ctx context.Context, key Key) (int64, error) {
	op := "increment " + key.String()
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		n, err := s.upsert(ctx, key, s.now().UTC())
		if err == nil {
			return n, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, fmt.Errorf("%s: %w", op, ctxErr)
		}
		if database.IsConnectionError(err) {
			return 0, unavailable(op, err)
		}
		if !database.IsLockConflict(err) {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		lastErr = err
	}
	return 0, fmt.Errorf("%s after %d attempts: %w: %w", op, s.maxAttempts, ErrConflict, lastErr)
}

func (s *SQLStore) upsert(ctx context.Context, key Key, now time.Time) (int64, error) {
	if s.driver.IsMySQL() {
		res, err := s.db.ExecContext(ctx, s.upsertSQL, key.ModuleType, key.Year, now, now)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}

	var n int64
	if err := s.db.QueryRowxContext(ctx, s.upsertSQL, key.ModuleType, key.Year, now, now).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLStore) Get(ctx context.Context, key Key) (Record, error) {
	var rec Record
	if err := s.db.GetContext(ctx, &rec, s.getSQL, key.ModuleType, key.Year); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, s.classify("get "+key.String(), err)
	}
	return rec, nil
}

func (s *SQLStore) List(ctx context.Context, year int) ([]Record, error) {
	recs := []Record{}
	var err error
	if year != 0 {
		err = s.db.SelectContext(ctx, &recs, s.listSQL, year)
	} else {
		err = s.db.SelectContext(ctx, &recs, s.listAll)
	}
	if err != nil {
		return nil, s.classify("list counters", err)
	}
	return recs, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) classify(op string, err error) error {
	if database.IsConnectionError(err) {
		return unavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
