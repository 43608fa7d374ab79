// Package config provides environment-driven configuration for the oversight engine.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	DatabaseURL     Secret
	Port            string
	MetricsPort     string
	ListenHost      string
	CORSOrigins     []string
	LogLevel        string
	RedisAddr       string
	MonitorInterval time.Duration
	NotifyQueueSize int
	PolicyCacheTTL  time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: Secret(envOrDefault("DATABASE_URL", "")),
		Port:        envOrDefault("PORT", "4040"),
		MetricsPort: envOrDefault("METRICS_PORT", "9091"),
		ListenHost:  envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		RedisAddr:   envOrDefault("REDIS_ADDR", ""),
	}

	monitorInterval, err := time.ParseDuration(envOrDefault("MONITOR_INTERVAL", "15s"))
	if err != nil || monitorInterval < time.Second || monitorInterval > 10*time.Minute {
		return nil, fmt.Errorf("MONITOR_INTERVAL must be a duration between 1s and 10m")
	}
	cfg.MonitorInterval = monitorInterval

	cacheTTL, err := time.ParseDuration(envOrDefault("POLICY_CACHE_TTL", "30s"))
	if err != nil || cacheTTL < time.Second || cacheTTL > time.Hour {
		return nil, fmt.Errorf("POLICY_CACHE_TTL must be a duration between 1s and 1h")
	}
	cfg.PolicyCacheTTL = cacheTTL

	queueSize, err := strconv.Atoi(envOrDefault("NOTIFY_QUEUE_SIZE", "1000"))
	if err != nil || queueSize < 1 || queueSize > 100000 {
		return nil, fmt.Errorf("NOTIFY_QUEUE_SIZE must be an integer between 1 and 100000")
	}
	cfg.NotifyQueueSize = queueSize

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3000")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// MetricsAddr returns the metrics listen address in host:port format.
func (c *Config) MetricsAddr() string {
	return c.ListenHost + ":" + c.MetricsPort
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
