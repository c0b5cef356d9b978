package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration. It is parsed once at startup
// and handed to each component's constructor.
type Config struct {
	Environment string   `env:"ENVIRONMENT" envDefault:"development"`
	ServerPort  int      `env:"PORT" envDefault:"3000"`
	APIVersion  string   `env:"API_VERSION" envDefault:"1.0.0"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3001,http://localhost:4200"`

	DatabaseDriver       string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseURL          string `env:"DATABASE_URL" envDefault:"file:library.db"`
	DatabaseMaxOpenConns int    `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"25"`

	RedisURL     string        `env:"REDIS_URL"`
	BookCacheTTL time.Duration `env:"BOOK_CACHE_TTL" envDefault:"5m"`

	Auth AuthConfig

	AIProvider         string `env:"AI_PROVIDER" envDefault:"mock"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"300"`
	OTLPEndpoint       string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	CirculationSyncInterval time.Duration `env:"CIRCULATION_SYNC_INTERVAL" envDefault:"1m"`
}

// AuthConfig selects and parameterizes the token verification strategy.
type AuthConfig struct {
	DevAuthEnabled bool          `env:"DEV_AUTH_ENABLED" envDefault:"false"`
	JWTSecret      string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	DevTokenTTL    time.Duration `env:"DEV_TOKEN_TTL" envDefault:"24h"`
	OIDCIssuerURL  string        `env:"OIDC_ISSUER_URL"`
	OIDCAudience   string        `env:"OIDC_AUDIENCE"`
	JWKSCacheTTL   time.Duration `env:"JWKS_CACHE_TTL" envDefault:"10m"`
}

// AuthMode is the verification strategy in effect.
type AuthMode string

const (
	AuthModeNone AuthMode = "none"
	AuthModeOIDC AuthMode = "oidc"
	AuthModeDev  AuthMode = "dev"
)

// Mode resolves the single active strategy. An issuer URL always wins, so
// dev tokens are never accepted alongside issuer tokens.
func (a AuthConfig) Mode() AuthMode {
	switch {
	case a.OIDCIssuerURL != "":
		return AuthModeOIDC
	case a.DevAuthEnabled:
		return AuthModeDev
	default:
		return AuthModeNone
	}
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	for i, origin := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(origin)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER %q: want postgres or sqlite", c.DatabaseDriver)
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid PORT: %d", c.ServerPort)
	}
	if c.Auth.Mode() == AuthModeDev && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when DEV_AUTH_ENABLED is set")
	}
	return nil
}

// IsDevelopment reports whether the server runs in a development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
