package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	AppURL    string `env:"APP_URL" default:"http://localhost:8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	StoreDriver string `env:"STORE_DRIVER" default:"sqlite"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" default:"posts.db"`

	RateLimitPerSecond float64 `env:"RATE_LIMIT_PER_SECOND" default:"0"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST" default:"20"`

	WSMaxConnections      int64 `env:"WS_MAX_CONNECTIONS" default:"1000"`
	WSMaxConnectionsPerIP int   `env:"WS_MAX_CONNECTIONS_PER_IP" default:"20"`

	// TrustedProxies is a comma-separated list of CIDRs whose X-Forwarded-For
	// header is believed. Empty means the peer address is the client address.
	TrustedProxies string `env:"TRUSTED_PROXIES"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// TrustedProxyRanges parses TrustedProxies.
func (c *Config) TrustedProxyRanges() ([]*net.IPNet, error) {
	var ranges []*net.IPNet
	for _, cidr := range strings.Split(c.TrustedProxies, ",") {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES contains an invalid CIDR %q: %w", cidr, err)
		}
		ranges = append(ranges, ipNet)
	}
	return ranges, nil
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.StoreDriver {
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required")
		}
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
		if cfg.IsProduction() {
			if err := checkSSLMode(cfg.DatabaseURL); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, cfg.StoreDriver)
	}

	if cfg.RateLimitPerSecond < 0 {
		return errors.New("RATE_LIMIT_PER_SECOND must not be negative")
	}
	if cfg.RateLimitPerSecond > 0 && cfg.RateLimitBurst < 1 {
		return errors.New("RATE_LIMIT_BURST must be at least 1 when rate limiting is enabled")
	}
	if cfg.WSMaxConnections < 1 {
		return errors.New("WS_MAX_CONNECTIONS must be at least 1")
	}
	if cfg.WSMaxConnectionsPerIP < 1 {
		return errors.New("WS_MAX_CONNECTIONS_PER_IP must be at least 1")
	}
	if _, err := cfg.TrustedProxyRanges(); err != nil {
		return err
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}

	return nil
}

func checkSSLMode(databaseURL string) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}
	mode := strings.ToLower(u.Query().Get("sslmode"))
	if mode == "disable" || mode == "allow" {
		return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
	}
	return nil
}
