// Package config resolves client settings from defaults, an optional YAML
// file, an optional .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the resolved client configuration.
type Config struct {
	API     API     `yaml:"api"`
	Storage Storage `yaml:"storage"`
	Log     Log     `yaml:"log"`
	Metrics Metrics `yaml:"metrics"`
}

// API configures the remote catalog transport.
type API struct {
	URL       string        `yaml:"url" env:"FOODIE_API_URL"`
	Timeout   time.Duration `yaml:"timeout" env:"FOODIE_API_TIMEOUT"`
	RateLimit float64       `yaml:"rate_limit" env:"FOODIE_API_RATE_LIMIT"` // requests per second, 0 disables
}

// Storage selects the local store holding the credential slot.
type Storage struct {
	Driver      string `yaml:"driver" env:"FOODIE_STORAGE_DRIVER"` // memory|fs|s3|sqlite|postgres
	Key         string `yaml:"key" env:"FOODIE_STORAGE_KEY"`
	FSRoot      string `yaml:"fs_root" env:"FOODIE_STORAGE_FS_ROOT"`
	SQLitePath  string `yaml:"sqlite_path" env:"FOODIE_STORAGE_SQLITE_PATH"`
	PostgresDSN string `yaml:"postgres_dsn" env:"FOODIE_STORAGE_POSTGRES_DSN"`
	S3Bucket    string `yaml:"s3_bucket" env:"FOODIE_STORAGE_S3_BUCKET"`
	S3Region    string `yaml:"s3_region" env:"FOODIE_STORAGE_S3_REGION"`
	S3Endpoint  string `yaml:"s3_endpoint" env:"FOODIE_STORAGE_S3_ENDPOINT"`
	S3PathStyle bool   `yaml:"s3_path_style" env:"FOODIE_STORAGE_S3_PATH_STYLE"`
	S3KeyPrefix string `yaml:"s3_key_prefix" env:"FOODIE_STORAGE_S3_KEY_PREFIX"`
}

// Log configures the logrus logger.
type Log struct {
	Level  string `yaml:"level" env:"FOODIE_LOG_LEVEL"`
	Format string `yaml:"format" env:"FOODIE_LOG_FORMAT"` // text|json
}

// Metrics configures the recorder and the endpoint served by long running
// commands: prometheus exposes /metrics, expvar exposes /debug/vars.
type Metrics struct {
	Backend string `yaml:"backend" env:"FOODIE_METRICS_BACKEND"` // prometheus|expvar
	Addr    string `yaml:"addr" env:"FOODIE_METRICS_ADDR"`
}

// Metrics backends.
const (
	MetricsPrometheus = "prometheus"
	MetricsExpvar     = "expvar"
)

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		API: API{
			URL:     "http://127.0.0.1:13307",
			Timeout: 30 * time.Second,
		},
		Storage: Storage{
			Driver:     "fs",
			Key:        "key",
			FSRoot:     defaultDataDir(),
			SQLitePath: filepath.Join(defaultDataDir(), "foodie.db"),
			S3Region:   "us-east-1",
		},
		Log:     Log{Level: "info", Format: "text"},
		Metrics: Metrics{Backend: MetricsPrometheus},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "foodie")
	}
	return "./foodiedata"
}

// Load resolves the configuration. Empty paths skip the corresponding file.
// Variables already present in the environment win over the .env file.
func Load(path, envFile string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return cfg, fmt.Errorf("load env file: %w", err)
		}
	}
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return cfg, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings no component can work with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.API.URL) == "" {
		return errors.New("config: api url required")
	}
	if c.API.Timeout < 0 {
		return errors.New("config: api timeout must not be negative")
	}
	if c.API.RateLimit < 0 {
		return errors.New("config: api rate limit must not be negative")
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		return errors.New("config: storage key required")
	}
	switch c.Metrics.Backend {
	case MetricsPrometheus, MetricsExpvar:
	default:
		return fmt.Errorf("config: unknown metrics backend %q", c.Metrics.Backend)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// NewLogger builds a logrus logger writing to stderr at the configured level.
func (c Config) NewLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if lvl, err := logrus.ParseLevel(c.Log.Level); err == nil {
		l.SetLevel(lvl)
	}
	if strings.EqualFold(c.Log.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l
}
