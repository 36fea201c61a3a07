package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Paths    PathsConfig    `toml:"paths"`
	Retry    RetryConfig    `toml:"retry"`
	Throttle ThrottleConfig `toml:"throttle"`
	Logging  LoggingConfig  `toml:"logging"`
}

// PathsConfig locates the session logs, resumable caches and the sync history database.
type PathsConfig struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	CacheDir string `toml:"cache_dir"`
	Database string `toml:"database"`
}

// RetryConfig mirrors resilience.Policy.
type RetryConfig struct {
	MaxAttempts int      `toml:"max_attempts"`
	BaseDelay   Duration `toml:"base_delay"`
	MaxDelay    Duration `toml:"max_delay"`
	Jitter      bool     `toml:"jitter"`
}

// ThrottleConfig controls spacing between remote calls.
type ThrottleConfig struct {
	Interval  Duration `toml:"interval"`
	PerMinute int      `toml:"per_minute"`
}

// LoggingConfig contains console logging settings.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Duration is a [time.Duration] that decodes from strings like "5s" or "5m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects settings the resilience core cannot run with.
func (c *Config) Validate() error {
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry.max_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.Retry.BaseDelay.Duration < 0 || c.Retry.MaxDelay.Duration < c.Retry.BaseDelay.Duration {
		return fmt.Errorf("%w: retry delays must satisfy 0 <= base_delay <= max_delay", ErrInvalidConfig)
	}
	if c.Throttle.Interval.Duration < 0 || c.Throttle.PerMinute < 0 {
		return fmt.Errorf("%w: throttle settings must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadEnvFile loads KEY=VALUE pairs from a .env file into the process environment.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides paths and log level with SYNCX_* environment variables.
//
// Setting SYNCX_DATA_DIR alone relocates the log, cache and database paths under it.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if dir, ok := get("SYNCX_DATA_DIR"); ok {
		c.Paths.DataDir = dir
		c.Paths.LogDir = dir + "/logs"
		c.Paths.CacheDir = dir + "/cache"
		c.Paths.Database = dir + "/syncx.db"
	}
	if v, ok := get("SYNCX_LOG_DIR"); ok {
		c.Paths.LogDir = v
	}
	if v, ok := get("SYNCX_CACHE_DIR"); ok {
		c.Paths.CacheDir = v
	}
	if v, ok := get("SYNCX_DATABASE"); ok {
		c.Paths.Database = v
	}
	if v, ok := get("SYNCX_LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
}
