// Package codegen allocates business codes of the form {MODULE}-{YY}-{NNN}.
//
// An Allocator holds no counter state of its own. Each call performs exactly one
// atomic increment on the counter store, so uniqueness and per-key ordering come
// from the store. Numbers consumed by callers that later abandon the code leave
// gaps, which are accepted.
package codegen

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aimhigh31/work-ten-sub018/internal/config"
	"github.com/aimhigh31/work-ten-sub018/internal/counter"
	"github.com/aimhigh31/work-ten-sub018/internal/logging"
	"github.com/aimhigh31/work-ten-sub018/internal/tracing"
)

// Codes carry only the last two digits of the year and Parse reads them back as
// 20YY, so every accepted year must fall inside this century.
const (
	MinCodeYear = 2000
	MaxCodeYear = 2099
)

// Config bounds accepted years and the retry policy.
type Config struct {
	MinYear        int
	MaxFutureYears int
	Retry          RetryPolicy
}

func DefaultConfig() Config {
	return Config{MinYear: 2000, MaxFutureYears: 1, Retry: DefaultRetryPolicy()}
}

// ConfigFrom converts the allocator section of the service configuration.
func ConfigFrom(c config.AllocatorConfig) Config {
	return Config{
		MinYear:        c.MinYear,
		MaxFutureYears: c.MaxFutureYears,
		Retry: RetryPolicy{
			Attempts:  c.Retry.Attempts,
			BaseDelay: c.Retry.BaseDelay,
			MaxDelay:  c.Retry.MaxDelay,
		},
	}
}

// Clock allows deterministic testing.
type Clock interface{ Now() time.Time }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Option customises an Allocator.
type Option func(*Allocator)

func WithClock(c Clock) Option {
	return func(a *Allocator) {
		if c != nil {
			a.clock = c
		}
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(a *Allocator) {
		if l != nil {
			a.log = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(a *Allocator) { a.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(a *Allocator) {
		if t != nil {
			a.tracer = t
		}
	}
}

// Allocator issues codes backed by a counter.Store. It is safe for concurrent use.
type Allocator struct {
	store   counter.Store
	cfg     atomic.Pointer[Config]
	clock   Clock
	log     *logrus.Entry
	metrics *Metrics
	tracer  trace.Tracer
}

func NewAllocator(store counter.Store, cfg Config, opts ...Option) *Allocator {
	a := &Allocator{
		store:  store,
		clock:  realClock{},
		log:    logging.WithComponent("codegen"),
		tracer: tracing.Tracer(),
	}
	a.SetConfig(cfg)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config returns the effective configuration.
func (a *Allocator) Config() Config { return *a.cfg.Load() }

// SetConfig replaces the year bounds and retry policy. Allocations already in
// progress finish with the configuration they started with.
func (a *Allocator) SetConfig(cfg Config) {
	def := DefaultConfig()
	if cfg.MinYear < MinCodeYear {
		cfg.MinYear = def.MinYear
	}
	if cfg.MaxFutureYears < 0 {
		cfg.MaxFutureYears = 0
	}
	if cfg.Retry.Attempts < 1 {
		cfg.Retry.Attempts = def.Retry.Attempts
	}
	a.cfg.Store(&cfg)
}

// AllocateCurrent allocates a code for moduleType in the current UTC year.
func (a *Allocator) AllocateCurrent(ctx context.Context, moduleType string) (Code, error) {
	return a.Allocate(ctx, moduleType, 0)
}

// Allocate reserves the next sequence number for (moduleType, year) and formats
// it. year 0 means the current UTC year. Only counter.ErrStoreUnavailable is
// retried; ErrInvalidInput, counter.ErrConflict and other errors return at once.
func (a *Allocator) Allocate(ctx context.Context, moduleType string, year int) (code Code, err error) {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "codegen.Allocate",
		trace.WithAttributes(attribute.String("module_type", moduleType), attribute.Int("year", year)))
	defer func() {
		tracing.End(span, err)
		if err != nil {
			a.metrics.observeFailure(err, time.Since(start))
		}
	}()

	cfg := a.Config()
	key, err := a.resolveKey(cfg, moduleType, year)
	if err != nil {
		return "", err
	}
	if year == 0 {
		span.SetAttributes(attribute.Int("year", key.Year))
	}

	fields := logrus.Fields{"module_type": key.ModuleType, "year": key.Year}
	n, attempts, err := retryUnavailable(ctx, cfg.Retry,
		func(ctx context.Context) (int64, error) { return a.store.IncrementAndGet(ctx, key) },
		func(attempt int, cause error, wait time.Duration) {
			a.metrics.observeRetry()
			a.log.WithFields(fields).WithError(cause).WithFields(logrus.Fields{
				"attempt": attempt,
				"wait":    wait.String(),
			}).Warn("counter store unavailable, retrying")
		})
	span.SetAttributes(attribute.Int("attempts", attempts))
	if err != nil {
		a.log.WithFields(fields).WithError(err).WithField("attempts", attempts).Error("code allocation failed")
		return "", fmt.Errorf("allocate %s: %w", key, err)
	}

	code = Format(key.ModuleType, key.Year, n)
	span.SetAttributes(attribute.Int64("sequence", n))
	a.metrics.observeSuccess(key.ModuleType, time.Since(start))
	a.log.WithFields(fields).WithField("code", code).Debug("code allocated")
	return code, nil
}

// resolveKey validates the inputs and applies the current-year default.
func (a *Allocator) resolveKey(cfg Config, moduleType string, year int) (counter.Key, error) {
	moduleType = strings.TrimSpace(moduleType)
	if moduleType == "" {
		return counter.Key{}, fmt.Errorf("%w: module type is required", ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(moduleType); n > counter.MaxModuleTypeLength {
		return counter.Key{}, fmt.Errorf("%w: module type is %d characters, at most %d allowed",
			ErrInvalidInput, n, counter.MaxModuleTypeLength)
	}

	current := a.clock.Now().UTC().Year()
	if year == 0 {
		year = current
	}
	maxYear := min(current+cfg.MaxFutureYears, MaxCodeYear)
	if year < 1000 || year > 9999 {
		return counter.Key{}, fmt.Errorf("%w: year %d is not a four-digit year", ErrInvalidInput, year)
	}
	if year < cfg.MinYear || year > maxYear {
		return counter.Key{}, fmt.Errorf("%w: year %d outside [%d, %d]", ErrInvalidInput, year, cfg.MinYear, maxYear)
	}
	return counter.Key{ModuleType: moduleType, Year: year}, nil
}
