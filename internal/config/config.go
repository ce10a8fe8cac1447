// Package config loads process settings from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// Config is the server configuration. Every field has a working default
// except the optional integrations (database, TLS).
type Config struct {
	Port             int           `env:"PORT,default=8080" validate:"min=1,max=65535"`
	LogLevel         string        `env:"LOG_LEVEL,default=info" validate:"oneof=debug info warn error"`
	Environment      string        `env:"FLOWSCAN_ENV,default=development" validate:"oneof=development production"`
	ModelDir         string        `env:"MODEL_DIR,default=models" validate:"required"`
	StaticDir        string        `env:"STATIC_DIR,default=static"`
	DatabaseURL      string        `env:"DATABASE_URL"`
	HistoryRetention time.Duration `env:"HISTORY_RETENTION,default=168h" validate:"gt=0"`
	GeoIPDB          string        `env:"GEOIP_DB"`
	TLSDomains       string        `env:"TLS_DOMAINS"`
	ACMEEmail        string        `env:"ACME_EMAIL" validate:"omitempty,email"`
	ClassifyRate     int           `env:"CLASSIFY_RATE,default=30" validate:"min=1"`
	ClassifyWindow   time.Duration `env:"CLASSIFY_WINDOW,default=1m" validate:"gt=0"`
	TrustProxy       bool          `env:"TRUST_PROXY,default=false"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return Parse(es)
}

// Parse builds a Config from an explicit variable set.
func Parse(es env.EnvSet) (*Config, error) {
	var cfg Config
	if err := env.Unmarshal(es, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and the TLS settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if len(c.Domains()) > 0 && c.ACMEEmail == "" && c.Production() {
		return fmt.Errorf("invalid config: ACME_EMAIL is required when TLS_DOMAINS is set in production")
	}
	return nil
}

// Production reports whether the server runs with production settings.
func (c *Config) Production() bool { return c.Environment == "production" }

// HistoryEnabled reports whether verdicts are persisted.
func (c *Config) HistoryEnabled() bool { return c.DatabaseURL != "" }

// Domains splits TLS_DOMAINS on commas.
func (c *Config) Domains() []string {
	var out []string
	for _, d := range strings.Split(c.TLSDomains, ",") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// Addr is the plain HTTP listen address.
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }
