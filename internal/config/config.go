// Package config provides environment-based configuration.
// All configuration is loaded from environment variables with the MC_ prefix.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration.
type Config struct {
	// Server addresses
	APIAddr  string
	HTTPAddr string

	// Targets
	ShapesFile string

	// Run limits
	DefaultSamples int
	MaxSamples     int
	HistorySize    int
	ProgressEvery  int
	RunTimeout     time.Duration

	// Artifact store (optional)
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	// Event publisher (optional)
	KafkaBrokers []string
	KafkaTopic   string

	// Observability
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		APIAddr:        envOrDefault("MC_API_ADDR", ":9090"),
		HTTPAddr:       envOrDefault("MC_HTTP_ADDR", ":8080"),
		ShapesFile:     os.Getenv("MC_SHAPES_FILE"),
		DefaultSamples: envIntOrDefault("MC_DEFAULT_SAMPLES", 5000),
		MaxSamples:     envIntOrDefault("MC_MAX_SAMPLES", 1_000_000),
		HistorySize:    envIntOrDefault("MC_HISTORY_SIZE", 50),
		ProgressEvery:  envIntOrDefault("MC_PROGRESS_EVERY", 0),
		RunTimeout:     envDurationOrDefault("MC_RUN_TIMEOUT", 60*time.Second),
		MinIOEndpoint:  os.Getenv("MC_MINIO_ENDPOINT"),
		MinIOAccessKey: os.Getenv("MC_MINIO_ACCESS_KEY"),
		MinIOSecretKey: os.Getenv("MC_MINIO_SECRET_KEY"),
		MinIOBucket:    envOrDefault("MC_MINIO_BUCKET", "montecarlo"),
		MinIOUseSSL:    envBoolOrDefault("MC_MINIO_USE_SSL", false),
		KafkaBrokers:   envListOrDefault("MC_KAFKA_BROKERS", nil),
		KafkaTopic:     envOrDefault("MC_KAFKA_TOPIC", "montecarlo.runs"),
		LogLevel:       envOrDefault("MC_LOG_LEVEL", "info"),
		LogFormat:      envOrDefault("MC_LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// writeGrace is the time allowed to render and write a response after a run.
const writeGrace = 30 * time.Second

// APIWriteTimeout returns the API response deadline for the configured run
// timeout. An unbounded run timeout gives an unbounded write deadline.
func (c *Config) APIWriteTimeout() time.Duration {
	if c.RunTimeout == 0 {
		return 0
	}
	return c.RunTimeout + writeGrace
}

// ArtifactsEnabled reports whether an object store is configured.
func (c *Config) ArtifactsEnabled() bool {
	return c.MinIOEndpoint != ""
}

// EventsEnabled reports whether a broker is configured.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) validate() error {
	if c.APIAddr == c.HTTPAddr {
		return errors.New("MC_API_ADDR and MC_HTTP_ADDR must differ")
	}

	if c.MaxSamples < 1 {
		return errors.New("MC_MAX_SAMPLES must be positive")
	}

	if c.DefaultSamples < 1 || c.DefaultSamples > c.MaxSamples {
		return fmt.Errorf("MC_DEFAULT_SAMPLES must be between 1 and %d", c.MaxSamples)
	}

	if c.HistorySize < 1 || c.HistorySize > 10000 {
		return errors.New("MC_HISTORY_SIZE must be between 1 and 10000")
	}

	if c.ProgressEvery < 0 {
		return errors.New("MC_PROGRESS_EVERY must not be negative")
	}

	if c.RunTimeout < 0 {
		return errors.New("MC_RUN_TIMEOUT must not be negative")
	}

	if c.ArtifactsEnabled() {
		if c.MinIOAccessKey == "" || c.MinIOSecretKey == "" {
			return errors.New("MC_MINIO_ACCESS_KEY and MC_MINIO_SECRET_KEY are required with MC_MINIO_ENDPOINT")
		}
		if c.MinIOBucket == "" {
			return errors.New("MC_MINIO_BUCKET must not be empty")
		}
	}

	if c.EventsEnabled() && c.KafkaTopic == "" {
		return errors.New("MC_KAFKA_TOPIC must not be empty")
	}

	return nil
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func envBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// envListOrDefault splits a comma-separated value, dropping empty items.
func envListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
