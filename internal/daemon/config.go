// Package daemon manages the Quill runtime lifecycle and configuration.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// EnvPrefix prefixes every environment override, e.g. QUILL_API_PORT.
const EnvPrefix = "QUILL_"

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds all daemon configuration. Values come from defaults, then
// config.toml, then QUILL_* environment variables.
type Config struct {
	User       UserConfig       `toml:"user" envPrefix:"USER_"`
	API        APIConfig        `toml:"api" envPrefix:"API_"`
	Storage    StorageConfig    `toml:"storage" envPrefix:"STORAGE_"`
	Redis      RedisConfig      `toml:"redis" envPrefix:"REDIS_"`
	Engagement EngagementConfig `toml:"engagement" envPrefix:"ENGAGEMENT_"`
	Logging    LoggingConfig    `toml:"logging" envPrefix:"LOG_"`
	Telemetry  TelemetryConfig  `toml:"telemetry" envPrefix:"TELEMETRY_"`
}

// UserConfig identifies the local writer. An empty ID gets a generated one
// on the first run.
type UserConfig struct {
	ID string `toml:"id" env:"ID"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host" env:"HOST"`
	Port        int      `toml:"port" env:"PORT"`
	CORSOrigins []string `toml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
}

// StorageConfig selects where the progress record lives.
type StorageConfig struct {
	Backend string `toml:"backend" env:"BACKEND"`
	Slot    string `toml:"slot" env:"SLOT"`
	Dir     string `toml:"dir" env:"DIR"`
}

// RedisConfig is used when Storage.Backend is "redis".
type RedisConfig struct {
	Addr       string `toml:"addr" env:"ADDR"`
	Password   string `toml:"password" env:"PASSWORD"`
	DB         int    `toml:"db" env:"DB"`
	MaxRetries uint64 `toml:"max_retries" env:"MAX_RETRIES"`
}

// EngagementConfig tunes the progress engine.
type EngagementConfig struct {
	ActivityThresholdChars int    `toml:"activity_threshold_chars" env:"ACTIVITY_THRESHOLD_CHARS"`
	Timezone               string `toml:"timezone" env:"TIMEZONE"`
	Debug                  bool   `toml:"debug" env:"DEBUG"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level" env:"LEVEL"`
	Format string `toml:"format" env:"FORMAT"`
	File   string `toml:"file" env:"FILE"`
}

// TelemetryConfig controls the Prometheus endpoint.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus" env:"PROMETHEUS"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        7878,
			CORSOrigins: []string{"*"},
		},
		Storage: StorageConfig{
			Backend: BackendSQLite,
			Slot:    "user_progress",
			Dir:     quillHome(),
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			MaxRetries: 5,
		},
		Engagement: EngagementConfig{
			ActivityThresholdChars: 50,
			Timezone:               "Local",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// ConfigPath returns the location of config.toml.
func ConfigPath() string {
	return filepath.Join(quillHome(), "config.toml")
}

// LoadConfig reads config from ~/.quill/config.toml, falling back to
// defaults, then applies .env and QUILL_* overrides.
func LoadConfig() (Config, error) {
	return loadConfigFrom(ConfigPath(), filepath.Join(quillHome(), ".env"))
}

func loadConfigFrom(path, dotenv string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("stat config: %w", err)
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(dotenv); err == nil {
		logrus.WithField("file", dotenv).Debug("loaded environment from .env")
	} else if !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load %s: %w", dotenv, err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate rejects configurations the daemon cannot run with.
func (c Config) Validate() error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api.port: %d (must be 1-65535)", c.API.Port)
	}
	switch c.Storage.Backend {
	case BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("invalid storage.backend: %q (must be %s or %s)", c.Storage.Backend, BackendSQLite, BackendRedis)
	}
	if strings.TrimSpace(c.Storage.Slot) == "" {
		return errors.New("storage.slot must not be empty")
	}
	if c.Storage.Backend == BackendRedis && c.Redis.Addr == "" {
		return errors.New("redis.addr is required for the redis backend")
	}
	if c.Engagement.ActivityThresholdChars < 0 {
		return fmt.Errorf("invalid engagement.activity_threshold_chars: %d", c.Engagement.ActivityThresholdChars)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging.format: %q (must be text or json)", c.Logging.Format)
	}
	return nil
}

// Location resolves engagement.timezone. "" and "Local" mean the system zone.
func (c Config) Location() (*time.Location, error) {
	switch c.Engagement.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Engagement.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid engagement.timezone: %w", err)
	}
	return loc, nil
}

// SaveConfig writes the config to ~/.quill/config.toml.
func SaveConfig(cfg Config) error {
	return saveConfigTo(ConfigPath(), cfg)
}

func saveConfigTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// quillHome returns the Quill data directory.
func quillHome() string {
	if dir := os.Getenv("QUILL_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".quill")
}
