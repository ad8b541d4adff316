package config

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	cfg     *Config
	once    sync.Once
	loadErr error
	mu      sync.RWMutex

	reloadHooks []func(*Config)
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config represents the application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Allocator AllocatorConfig `mapstructure:"allocator"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Runner    RunnerConfig    `mapstructure:"runner"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects the counter store backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	// MaxConflictRetries bounds re-execution of the atomic statement on lock contention.
	MaxConflictRetries int `mapstructure:"max_conflict_retries"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Migrations      struct {
		AutoMigrate bool `mapstructure:"auto_migrate"`
	} `mapstructure:"migrations"`
}

type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	MaxRetries   int           `mapstructure:"max_retries"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// AllocatorConfig bounds accepted years and the transient-failure retry policy.
type AllocatorConfig struct {
	MinYear        int `mapstructure:"min_year"`
	MaxFutureYears int `mapstructure:"max_future_years"`
	Retry          struct {
		Attempts  int           `mapstructure:"attempts"`
		BaseDelay time.Duration `mapstructure:"base_delay"`
		MaxDelay  time.Duration `mapstructure:"max_delay"`
	} `mapstructure:"retry"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
	File   struct {
		Path       string `mapstructure:"path"`
		Filename   string `mapstructure:"filename"`
		MaxSize    int    `mapstructure:"max_size"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAge     int    `mapstructure:"max_age"`
		Compress   bool   `mapstructure:"compress"`
	} `mapstructure:"file"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	Output      string `mapstructure:"output"`
}

type RunnerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	SnapshotSchedule string        `mapstructure:"snapshot_schedule"`
	SnapshotTimeout  time.Duration `mapstructure:"snapshot_timeout"`
}

// SetDefaults registers built-in defaults so the service starts without any config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "codeseq")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.env", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("store.backend", BackendPostgres)
	v.SetDefault("store.max_conflict_retries", 5)

	v.SetDefault("app.debug", false)

	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.migrations.auto_migrate", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "codeseq")
	v.SetDefault("database.user", "codeseq")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.path", "codeseq.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.min_idle_conns", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.key_prefix", "codeseq")

	v.SetDefault("allocator.min_year", 2000)
	v.SetDefault("allocator.max_future_years", 1)
	v.SetDefault("allocator.retry.attempts", 3)
	v.SetDefault("allocator.retry.base_delay", 50*time.Millisecond)
	v.SetDefault("allocator.retry.max_delay", time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file.path", "logs")
	v.SetDefault("logging.file.filename", "codeseq.log")
	v.SetDefault("logging.file.max_size", 100)
	v.SetDefault("logging.file.max_backups", 10)
	v.SetDefault("logging.file.max_age", 30)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("logging.file.compress", false)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "codeseq")
	v.SetDefault("tracing.output", "")

	v.SetDefault("runner.enabled", true)
	v.SetDefault("runner.snapshot_schedule", "@every 1m")
	v.SetDefault("runner.snapshot_timeout", 30*time.Second)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	SetDefaults(v)

	// Environment variable overrides
	v.SetEnvPrefix("CODESEQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load initializes the configuration with hot reload support
func Load(configPath string) error {
	once.Do(func() {
		loadErr = load(configPath)
	})
	return loadErr
}

func load(configPath string) error {
	v := newViper()

	// Load default configuration
	v.SetConfigName("default")
	v.AddConfigPath(configPath)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read default config: %w", err)
		}
	}

	// Load environment-specific config (optional)
	v.SetConfigName("config")
	if err := v.MergeInConfig(); err != nil {
		// It's OK if config.yaml doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to merge config: %w", err)
		}
	}

	loaded := &Config{}
	if err := v.Unmarshal(loaded); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	set(loaded)

	if v.ConfigFileUsed() == "" {
		return nil
	}

	// Watch for config changes
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log := logrus.WithField("component", "config").WithField("file", e.Name)
		log.Info("config file changed")

		// Create new config instance
		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			log.WithError(err).Error("failed to reload config")
			return
		}
		if err := newCfg.Validate(); err != nil {
			log.WithError(err).Error("reloaded config rejected")
			return
		}

		set(newCfg)
		log.Info("configuration reloaded")
	})
	return nil
}

func set(c *Config) {
	mu.Lock()
	cfg = c
	hooks := slices.Clone(reloadHooks)
	mu.Unlock()

	for _, h := range hooks {
		h(c)
	}
}

// OnReload registers fn to run after every successful load or hot reload.
func OnReload(fn func(*Config)) {
	mu.Lock()
	defer mu.Unlock()
	reloadHooks = append(reloadHooks, fn)
}

// Get returns the current configuration (thread-safe)
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// LoadFromFile loads configuration from a specific file (useful for testing)
func LoadFromFile(configFile string) error {
	v := newViper()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	loaded := &Config{}
	if err := v.Unmarshal(loaded); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	set(loaded)
	return nil
}

// Defaults returns a configuration built from defaults and environment only.
func Defaults() *Config {
	c := &Config{}
	// Defaults always unmarshal cleanly.
	_ = newViper().Unmarshal(c)
	return c
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendPostgres, BackendMySQL, BackendSQLite, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("invalid store.backend %q", c.Store.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Allocator.Retry.Attempts < 1 {
		return fmt.Errorf("allocator.retry.attempts must be at least 1, got %d", c.Allocator.Retry.Attempts)
	}
	if c.Allocator.Retry.MaxDelay < c.Allocator.Retry.BaseDelay {
		return fmt.Errorf("allocator.retry.max_delay must not be below base_delay")
	}
	// Codes keep two year digits, read back as 20YY.
	if c.Allocator.MinYear < 2000 || c.Allocator.MinYear > 2099 {
		return fmt.Errorf("allocator.min_year must be between 2000 and 2099, got %d", c.Allocator.MinYear)
	}
	if c.Allocator.MaxFutureYears < 0 {
		return fmt.Errorf("allocator.max_future_years cannot be negative")
	}
	if last := time.Now().UTC().Year() + c.Allocator.MaxFutureYears; last > c.Allocator.MinYear+99 {
		return fmt.Errorf("allocator.max_future_years %d reaches %d, more than 99 years after min_year %d",
			c.Allocator.MaxFutureYears, last, c.Allocator.MinYear)
	}
	if c.Store.MaxConflictRetries < 1 {
		return fmt.Errorf("store.max_conflict_retries must be at least 1")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetRedisAddr returns the Redis server address
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetServerAddr returns the server listen address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction returns true if running in production mode
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// IsDevelopment returns true if running in development mode
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// DatabaseDriverName maps a SQL store backend to its driver name; empty for non-SQL backends.
func (c *Config) DatabaseDriverName() string {
	if c.Database.Driver != "" {
		return c.Database.Driver
	}
	switch c.Store.Backend {
	case BackendPostgres, BackendMySQL, BackendSQLite:
		return c.Store.Backend
	}
	return ""
}
