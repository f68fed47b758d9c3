package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Database  DatabaseConfig  `yaml:"database"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Sync      SyncConfig      `yaml:"sync"`
	Admin     AdminConfig     `yaml:"admin"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// CatalogConfig locates the listing catalog.
type CatalogConfig struct {
	Root string `yaml:"root"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	URL    string `yaml:"-"` // env-only, never in YAML
}

// RateLimitConfig contains offer rate limiting settings.
type RateLimitConfig struct {
	Window       Duration `yaml:"window"`
	MaxRequests  int64    `yaml:"max_requests"`
	FailureMode  string   `yaml:"failure_mode"`
	RedisTimeout Duration `yaml:"redis_timeout"`
	RedisURL     string   `yaml:"-"` // env-only, never in YAML
}

// MetricsConfig contains metrics acquisition settings.
type MetricsConfig struct {
	CacheTTL     Duration `yaml:"cache_ttl"`
	StaleAfter   Duration `yaml:"stale_after"`
	FetchTimeout Duration `yaml:"fetch_timeout"`
}

// SyncConfig contains settings for the metrics sync endpoint and its caller.
type SyncConfig struct {
	Schedule  string `yaml:"schedule"`
	ServerURL string `yaml:"server_url"`
	Token     string `yaml:"-"` // env-only, never in YAML
}

// AdminConfig contains admin session settings.
type AdminConfig struct {
	SessionToken string `yaml:"-"` // env-only, never in YAML
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// A .env file, when present, is loaded into the environment first and never
// overrides variables that are already set.
func Load() (*Config, error) {
	if err := loadDotEnv(getEnv("STARTUPSHOP_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := newDefaults()

	configPath := getEnv("STARTUPSHOP_CONFIG_PATH", "config/startupshop.yaml")

	// Load YAML file if it exists (missing file is not an error)
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Catalog: CatalogConfig{
			Root: "catalog",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "data/startupshop.db",
		},
		RateLimit: RateLimitConfig{
			Window:       Duration(15 * time.Minute),
			MaxRequests:  10,
			FailureMode:  "fail_closed",
			RedisTimeout: Duration(500 * time.Millisecond),
		},
		Metrics: MetricsConfig{
			CacheTTL:     Duration(5 * time.Minute),
			StaleAfter:   Duration(30 * time.Minute),
			FetchTimeout: Duration(10 * time.Second),
		},
		Sync: SyncConfig{
			ServerURL: "http://localhost:8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading env file %s: %w", path, err)
}

// loadYAMLFile loads configuration from a YAML file if it exists.
// Missing file is not an error; we just use defaults.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values; malformed values are errors.
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	setDuration := func(key string, dst *Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, v))
				return
			}
			*dst = Duration(d)
		}
	}
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	// Server
	if v := os.Getenv("STARTUPSHOP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("STARTUPSHOP_PORT: invalid integer %q", v))
		} else {
			cfg.Server.Port = port
		}
	}
	setDuration("STARTUPSHOP_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	setDuration("STARTUPSHOP_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	setDuration("STARTUPSHOP_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	setString("STARTUPSHOP_CATALOG_DIR", &cfg.Catalog.Root)

	// Database (DATABASE_URL is the hosting convention and implies postgres)
	setString("STARTUPSHOP_DB_PATH", &cfg.Database.Path)
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
		cfg.Database.Driver = "postgres"
	}
	setString("STARTUPSHOP_DB_DRIVER", &cfg.Database.Driver)

	// Rate limiting
	setString("REDIS_URL", &cfg.RateLimit.RedisURL)
	setDuration("STARTUPSHOP_RATE_LIMIT_WINDOW", &cfg.RateLimit.Window)
	if v := os.Getenv("STARTUPSHOP_RATE_LIMIT_MAX"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("STARTUPSHOP_RATE_LIMIT_MAX: invalid integer %q", v))
		} else {
			cfg.RateLimit.MaxRequests = n
		}
	}
	setString("STARTUPSHOP_RATE_LIMIT_FAILURE_MODE", &cfg.RateLimit.FailureMode)
	setDuration("STARTUPSHOP_REDIS_TIMEOUT", &cfg.RateLimit.RedisTimeout)

	// Metrics
	setDuration("STARTUPSHOP_METRICS_CACHE_TTL", &cfg.Metrics.CacheTTL)
	setDuration("STARTUPSHOP_METRICS_STALE_AFTER", &cfg.Metrics.StaleAfter)
	setDuration("STARTUPSHOP_METRICS_FETCH_TIMEOUT", &cfg.Metrics.FetchTimeout)

	// Sync
	setString("STARTUPSHOP_SYNC_SCHEDULE", &cfg.Sync.Schedule)
	setString("STARTUPSHOP_SYNC_SERVER_URL", &cfg.Sync.ServerURL)
	setString("STARTUPSHOP_SYNC_TOKEN", &cfg.Sync.Token)

	// Admin
	setString("STARTUPSHOP_ADMIN_SESSION_TOKEN", &cfg.Admin.SessionToken)

	// Log
	setString("STARTUPSHOP_LOG_LEVEL", &cfg.Log.Level)
	setString("STARTUPSHOP_LOG_FORMAT", &cfg.Log.Format)

	return errors.Join(errs...)
}

// validate fails fast on settings the server cannot start with. Missing
// tokens are allowed; readiness reports them.
func (c *Config) validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for the sqlite driver"))
		}
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver))
	}

	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate_limit.window must be positive"))
	}
	if c.RateLimit.MaxRequests <= 0 {
		errs = append(errs, errors.New("rate_limit.max_requests must be positive"))
	}
	switch c.RateLimit.FailureMode {
	case "fail_open", "fail_closed":
	default:
		errs = append(errs, fmt.Errorf("rate_limit.failure_mode must be fail_open or fail_closed, got %q", c.RateLimit.FailureMode))
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
