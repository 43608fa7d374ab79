package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

func (c *Config) validate() error {
	checks := []func() error{
		c.validateDatabase,
		c.validateNetwork,
		c.validateCORS,
		c.validateRedis,
	}

	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) validateDatabase() error {
	raw := c.DatabaseURL.Value()
	if raw == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	dbURL, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}

	if dbURL.Scheme != "postgres" && dbURL.Scheme != "postgresql" {
		return fmt.Errorf("DATABASE_URL scheme must be postgres:// or postgresql://")
	}

	host := dbURL.Hostname()
	if host == "" {
		return fmt.Errorf("DATABASE_URL must include a host")
	}

	// Plaintext connections are only acceptable on the same machine.
	if !isLoopback(host) && dbURL.Query().Get("sslmode") == "disable" {
		return fmt.Errorf("DATABASE_URL sslmode=disable is not allowed for non-local host %q", host)
	}

	return nil
}

func (c *Config) validateNetwork() error {
	port, err := parsePort("PORT", c.Port)
	if err != nil {
		return err
	}

	// Loopback covers local deployments; 0.0.0.0/:: covers containers where
	// the network boundary is enforced outside the process.
	switch c.ListenHost {
	case "127.0.0.1", "::1", "localhost", "0.0.0.0", "::":
	default:
		return fmt.Errorf("LISTEN_HOST must be a loopback address or 0.0.0.0/:: for containers (got %q)", c.ListenHost)
	}

	metricsPort, err := parsePort("METRICS_PORT", c.MetricsPort)
	if err != nil {
		return err
	}

	if metricsPort == port {
		return fmt.Errorf("METRICS_PORT must differ from PORT")
	}

	return nil
}

func (c *Config) validateCORS() error {
	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain wildcard '*'")
		}
		if strings.ContainsAny(origin, "*?[]") {
			return fmt.Errorf("CORS_ORIGINS must not contain glob characters (*?[]), got %q", origin)
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS_ORIGINS contains invalid origin %q (must have scheme and host)", origin)
		}
	}

	return nil
}

// validateRedis checks REDIS_ADDR when set. An empty address disables the
// policy cache pub/sub invalidation channel, which is fine for single-node
// deployments.
func (c *Config) validateRedis() error {
	if c.RedisAddr == "" {
		return nil
	}

	host, port, err := net.SplitHostPort(c.RedisAddr)
	if err != nil {
		return fmt.Errorf("REDIS_ADDR must be in host:port form: %w", err)
	}

	if host == "" {
		return fmt.Errorf("REDIS_ADDR must include a host")
	}

	if _, err := strconv.Atoi(port); err != nil {
		return fmt.Errorf("REDIS_ADDR port must be numeric: %w", err)
	}

	return nil
}

func parsePort(name, raw string) (int, error) {
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", name, err)
	}

	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%s must be between 1 and 65535", name)
	}

	return port, nil
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
