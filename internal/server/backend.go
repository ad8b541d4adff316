package server

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aimhigh31/work-ten-sub018/internal/config"
	"github.com/aimhigh31/work-ten-sub018/internal/counter"
	"github.com/aimhigh31/work-ten-sub018/internal/database"
	"github.com/aimhigh31/work-ten-sub018/internal/logging"
)

// OpenBackend opens the counter store selected by store.backend. SQL stores get
// their table created when database.migrations.auto_migrate is set.
func OpenBackend(ctx context.Context, cfg *config.Config) (counter.Backend, error) {
	log := logging.WithComponent("store").WithField("backend", cfg.Store.Backend)

	switch cfg.Store.Backend {
	case config.BackendMemory:
		log.Warn("using in-memory counter store; counters are lost on restart")
		return counter.NewMemoryStore(), nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.GetRedisAddr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxRetries:   cfg.Redis.MaxRetries,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
		})
		store := counter.NewRedisStore(client, cfg.Redis.KeyPrefix)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.GetRedisAddr(), err)
		}
		log.WithField("addr", cfg.Redis.GetRedisAddr()).Info("connected to redis")
		return store, nil

	case config.BackendPostgres, config.BackendMySQL, config.BackendSQLite:
		d, err := database.ParseDriver(cfg.DatabaseDriverName())
		if err != nil {
			return nil, err
		}
		db, err := database.Open(ctx, d, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", counter.ErrStoreUnavailable, err)
		}
		store := counter.NewSQLStore(db, d, cfg.Store.MaxConflictRetries)
		if cfg.Database.Migrations.AutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("failed to create counter table: %w", err)
			}
			log.Info("counter table ensured")
		}
		log.WithField("driver", d).Info("connected to database")
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}
