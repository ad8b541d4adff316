// Package counter implements the durable keyed counter that backs business code
// allocation. One record exists per (module type, year); its value is the last
// issued sequence number and only ever moves forward through IncrementAndGet.
package counter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStoreUnavailable signals that the durable medium could not be reached.
	ErrStoreUnavailable = errors.New("counter store unavailable")
	// ErrConflict signals that the store's atomic primitive was retried past its bound.
	ErrConflict = errors.New("counter increment conflict")
	// ErrNotFound is returned by inspection calls for keys that were never allocated.
	ErrNotFound = errors.New("counter not found")
)

// Key is the composite counter identity. ModuleType is opaque to the store.
type Key struct {
	ModuleType string
	Year       int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.ModuleType, k.Year)
}

// Record is the persisted counter state.
type Record struct {
	ModuleType string    `db:"module_type" json:"module_type" yaml:"module_type"`
	Year       int       `db:"year" json:"year" yaml:"year"`
	Value      int64     `db:"value" json:"value" yaml:"value"`
	CreatedAt  time.Time `db:"create_time" json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt  time.Time `db:"change_time" json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Key returns the record's composite key.
func (r Record) Key() Key {
	return Key{ModuleType: r.ModuleType, Year: r.Year}
}

// Store is the single write path for counter state.
type Store interface {
	// IncrementAndGet creates the record with value 1 if it is missing, otherwise
	// adds 1, and returns the resulting value. It is one atomic operation.
	IncrementAndGet(ctx context.Context, key Key) (int64, error)
}

// Inspector exposes read-only views of counter state for operators.
type Inspector interface {
	Get(ctx context.Context, key Key) (Record, error)
	// List returns all records for year, or every record when year is 0,
	// ordered by year then module type.
	List(ctx context.Context, year int) ([]Record, error)
}

// Backend is a complete store implementation as wired by the binaries.
type Backend interface {
	Store
	Inspector
	Ping(ctx context.Context) error
	Close() error
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
