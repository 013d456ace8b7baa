// Package config loads wavespace settings from an optional YAML file, a .env
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend modes.
const (
	ModeREST     = "rest"
	ModePostgres = "postgres"
)

// Cache drivers.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the full application configuration.
type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Cache    CacheConfig    `yaml:"cache"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Session  SessionConfig  `yaml:"session"`
	Notify   NotifyConfig   `yaml:"notify"`
	Log      LogConfig      `yaml:"log"`
	Diag     DiagConfig     `yaml:"diag"`
	// WebURL is the community website, used for links opened from the TUI.
	WebURL string `yaml:"web_url"`
	// StateDir holds the session file, the local state db and the log.
	StateDir string `yaml:"state_dir"`
}

// BackendConfig selects and addresses the data backend.
type BackendConfig struct {
	URL         string `yaml:"url"`
	AnonKey     string `yaml:"anon_key"`
	Mode        string `yaml:"mode"`
	DatabaseURL string `yaml:"database_url"`
	// HealthTable is queried by the health check.
	HealthTable string `yaml:"health_table"`
	// InstallTriggers attaches the change-feed trigger at startup in
	// postgres mode. It needs owner rights on the tables.
	InstallTriggers bool `yaml:"install_triggers"`
}

// CacheConfig configures the query cache.
type CacheConfig struct {
	Driver     string        `yaml:"driver"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	RedisAddr  string        `yaml:"redis_addr"`
	RedisPass  string        `yaml:"redis_password"`
	RedisDB    int           `yaml:"redis_db"`
}

// RealtimeConfig toggles the change feed.
type RealtimeConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// SessionConfig tunes the auth service.
type SessionConfig struct {
	WaitTimeout time.Duration `yaml:"wait_timeout"`
}

// NotifyConfig tunes the notification service.
type NotifyConfig struct {
	DesktopPush bool `yaml:"desktop_push"`
	PageSize    int  `yaml:"page_size"`
}

// LogConfig configures zap.
type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// DiagConfig enables the diagnostics HTTP server when Addr is set.
type DiagConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	stateDir := ".wavespace"
	if home, err := os.UserHomeDir(); err == nil {
		stateDir = filepath.Join(home, ".wavespace")
	}
	return &Config{
		Backend: BackendConfig{
			Mode:        ModeREST,
			HealthTable: "users",
		},
		Cache: CacheConfig{
			Driver:     CacheMemory,
			TTL:        5 * time.Minute,
			MaxEntries: 100,
		},
		Realtime: RealtimeConfig{Enabled: true, Heartbeat: 25 * time.Second},
		Session:  SessionConfig{WaitTimeout: 5 * time.Second},
		Notify:   NotifyConfig{DesktopPush: true, PageSize: 20},
		Log:      LogConfig{Level: "info"},
		WebURL:   "https://wavespace.kr",
		StateDir: stateDir,
	}
}

// Load reads .env (if present), then the YAML file named by
// WAVESPACE_CONFIG (if set), then environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env is optional
	return LoadFrom(os.Getenv("WAVESPACE_CONFIG"), os.LookupEnv)
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// LoadFrom builds a Config from an optional YAML file and lookup.
func LoadFrom(path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg, lookup); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(cfg.StateDir, "wavespace.log")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	var errs []error
	switch c.Backend.Mode {
	case ModeREST:
		if c.Backend.URL == "" {
			errs = append(errs, errors.New("WAVESPACE_URL is required in rest mode"))
		}
		if c.Backend.AnonKey == "" {
			errs = append(errs, errors.New("WAVESPACE_ANON_KEY is required in rest mode"))
		}
	case ModePostgres:
		if c.Backend.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required in postgres mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend mode %q", c.Backend.Mode))
	}
	switch c.Cache.Driver {
	case CacheMemory:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache driver %q", c.Cache.Driver))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache ttl must be positive"))
	}
	if c.Session.WaitTimeout <= 0 {
		errs = append(errs, errors.New("session wait timeout must be positive"))
	}
	return errors.Join(errs...)
}

// SessionFile is where the signed-in session is persisted.
func (c *Config) SessionFile() string {
	return filepath.Join(c.StateDir, "session.json")
}

// StateDB is the local UI state database.
func (c *Config) StateDB() string {
	return filepath.Join(c.StateDir, "state.db")
}

func applyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("WAVESPACE_URL", &cfg.Backend.URL)
	str("WAVESPACE_ANON_KEY", &cfg.Backend.AnonKey)
	str("WAVESPACE_BACKEND", &cfg.Backend.Mode)
	str("DATABASE_URL", &cfg.Backend.DatabaseURL)
	str("WAVESPACE_HEALTH_TABLE", &cfg.Backend.HealthTable)
	boolean("WAVESPACE_INSTALL_TRIGGERS", &cfg.Backend.InstallTriggers)

	str("WAVESPACE_CACHE", &cfg.Cache.Driver)
	duration("WAVESPACE_CACHE_TTL", &cfg.Cache.TTL)
	integer("WAVESPACE_CACHE_MAX_ENTRIES", &cfg.Cache.MaxEntries)
	str("REDIS_ADDR", &cfg.Cache.RedisAddr)
	str("REDIS_PASSWORD", &cfg.Cache.RedisPass)
	integer("REDIS_DB", &cfg.Cache.RedisDB)

	boolean("WAVESPACE_REALTIME", &cfg.Realtime.Enabled)
	duration("WAVESPACE_REALTIME_HEARTBEAT", &cfg.Realtime.Heartbeat)
	duration("WAVESPACE_WAIT_TIMEOUT", &cfg.Session.WaitTimeout)
	boolean("WAVESPACE_DESKTOP_PUSH", &cfg.Notify.DesktopPush)
	integer("WAVESPACE_PAGE_SIZE", &cfg.Notify.PageSize)

	str("WAVESPACE_LOG_FILE", &cfg.Log.File)
	str("WAVESPACE_LOG_LEVEL", &cfg.Log.Level)
	str("WAVESPACE_DIAG_ADDR", &cfg.Diag.Addr)
	str("WAVESPACE_WEB_URL", &cfg.WebURL)
	str("WAVESPACE_STATE_DIR", &cfg.StateDir)

	return errors.Join(errs...)
}
