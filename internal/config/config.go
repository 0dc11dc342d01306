// Package config loads service configuration from the environment and
// optional .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/magiclink/pkg/logger"
	"github.com/dmitrymomot/magiclink/pkg/ratelimit"
	"github.com/dmitrymomot/magiclink/pkg/redis"
	"github.com/dmitrymomot/magiclink/pkg/verification"
)

// ErrInvalid wraps configuration errors.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the full service configuration.
type Config struct {
	Vendor      string        `env:"MAGICLINK_VENDOR" envDefault:"sendgrid"`
	TemplateDir string        `env:"MAGICLINK_TEMPLATE_DIR"`
	Timeout     time.Duration `env:"MAGICLINK_TIMEOUT" envDefault:"10s"`
	MaxAge      time.Duration `env:"MAGICLINK_MAX_AGE" envDefault:"24h"`

	Verification verification.Config
	Server       Server
	Log          logger.Config
	Redis        redis.Config
	RateLimit    ratelimit.Config
}

// Server configures the webhook listener.
type Server struct {
	Addr            string        `env:"SERVER_ADDR" envDefault:":8080"`
	Token           string        `env:"SERVER_TOKEN"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load reads the given .env files, skipping missing ones, and parses the
// process environment. Variables already set take precedence over files.
func Load(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, f, err)
		}
	}
	return parse(env.Options{})
}

// Parse builds a Config from an explicit variable set instead of the
// process environment.
func Parse(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, errors.Join(ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the type system cannot.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("%w: MAGICLINK_TIMEOUT must not be negative", ErrInvalid)
	}
	if c.MaxAge <= 0 {
		return fmt.Errorf("%w: MAGICLINK_MAX_AGE must be positive", ErrInvalid)
	}
	if c.RateLimit.Limit < 0 || c.RateLimit.Window < 0 {
		return fmt.Errorf("%w: RATE_LIMIT and RATE_LIMIT_WINDOW must not be negative", ErrInvalid)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return errors.Join(ErrInvalid, err)
	}
	return nil
}

// RateLimited reports whether dispatches should go through a limiter.
func (c *Config) RateLimited() bool {
	return c.RateLimit.Limit > 0 && c.RateLimit.Window > 0
}
