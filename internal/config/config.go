package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/caarlos0/env/v11"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string `env:"SERVER_ADDR" envDefault:"0.0.0.0"`
	ServerPort int    `env:"SERVER_PORT" envDefault:"8080"`

	// Storage. The memory driver keeps everything in process.
	DBDriver   string `env:"DB_DRIVER" envDefault:"memory"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"data/tenancy.db"`

	// Database defaults (matches podman setup: make postgres-start)
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     int    `env:"DB_PORT" envDefault:"25432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName     string `env:"DB_NAME" envDefault:"simple_tenancy"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// AdminToken guards the /v1/admin routes.
	AdminToken string `env:"ADMIN_TOKEN"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`

	// LicenseSweepCron schedules the license expiry sweep.
	LicenseSweepCron string `env:"LICENSE_SWEEP_CRON" envDefault:"*/5 * * * *"`

	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	SecurityHeaders SecurityHeadersConfig `envPrefix:"SECURITY_HEADERS_"`
}

// RateLimitConfig holds the per-tenant rate limit of the /v1 routes.
type RateLimitConfig struct {
	Enabled  bool          `env:"ENABLED" envDefault:"true"`
	Requests int           `env:"REQUESTS" envDefault:"100"`
	Window   time.Duration `env:"WINDOW" envDefault:"1m"`
}

// SecurityHeadersConfig holds the response security headers. Empty values
// are not sent.
type SecurityHeadersConfig struct {
	Enabled            bool   `env:"ENABLED" envDefault:"true"`
	CSP                string `env:"CSP" envDefault:"default-src 'none'; frame-ancestors 'none'"`
	HSTSMaxAge         int    `env:"HSTS_MAX_AGE" envDefault:"0"`
	FrameOptions       string `env:"FRAME_OPTIONS" envDefault:"DENY"`
	ContentTypeOptions string `env:"CONTENT_TYPE_OPTIONS" envDefault:"nosniff"`
	XSSProtection      string `env:"XSS_PROTECTION" envDefault:"0"`
	ReferrerPolicy     string `env:"REFERRER_POLICY" envDefault:"no-referrer"`
	PermissionsPolicy  string `env:"PERMISSIONS_POLICY"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be expressed as defaults.
func (c *Config) Validate() error {
	if c.AdminToken == "" {
		return errors.New("ADMIN_TOKEN is required")
	}
	switch c.DBDriver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("DB_DRIVER must be one of memory, sqlite, postgres; got %q", c.DBDriver)
	}
	if !gronx.New().IsValid(c.LicenseSweepCron) {
		return fmt.Errorf("LICENSE_SWEEP_CRON is not a valid cron expression: %q", c.LicenseSweepCron)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}
	if c.MaxRequestBodySize <= 0 {
		return errors.New("MAX_REQUEST_BODY_SIZE must be positive")
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerAddr, c.ServerPort)
}

// UsesDatabase returns true if a SQL driver is configured.
func (c *Config) UsesDatabase() bool {
	return c.DBDriver != DriverMemory
}
