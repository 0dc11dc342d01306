package redis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds connection settings. Zero values fall back to the defaults
// listed on each field.
type Config struct {
	URL           string        `env:"REDIS_URL"`
	PoolSize      int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	Attempts      int           `env:"REDIS_CONNECT_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`
	Timeout       time.Duration `env:"REDIS_TIMEOUT" envDefault:"3s"`
}

func (c Config) withDefaults() Config {
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 2 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Second
	}
	return c
}

// Options converts the config to go-redis options.
// Both redis:// and rediss:// (TLS) schemes are accepted.
func (c Config) Options() (*redis.Options, error) {
	if c.URL == "" {
		return nil, ErrEmptyConnectionURL
	}
	if !strings.HasPrefix(c.URL, "redis://") && !strings.HasPrefix(c.URL, "rediss://") {
		return nil, ErrFailedToParseURL
	}

	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseURL, err)
	}

	c = c.withDefaults()
	opts.PoolSize = c.PoolSize
	opts.MinIdleConns = max(c.PoolSize/2, 1)
	opts.ConnMaxIdleTime = 10 * time.Minute
	opts.ReadTimeout = c.Timeout
	opts.WriteTimeout = c.Timeout
	opts.DialTimeout = c.Timeout
	return opts, nil
}

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	logger *slog.Logger
}

// WithLogger logs failed connection attempts.
func WithLogger(l *slog.Logger) Option {
	return func(o *openOptions) {
		o.logger = l
	}
}

// Open connects to Redis, retrying with a linearly growing delay until
// Attempts pings have failed or ctx is done.
func Open(ctx context.Context, cfg Config, opts ...Option) (*redis.Client, error) {
	ro, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	o := &openOptions{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(o)
	}

	cfg = cfg.withDefaults()
	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		client := redis.NewClient(ro)
		lastErr = client.Ping(ctx).Err()
		if lastErr == nil {
			return client, nil
		}
		_ = client.Close()

		o.logger.WarnContext(ctx, "redis ping failed",
			slog.Int("attempt", attempt),
			slog.String("addr", ro.Addr),
			slog.Any("error", lastErr),
		)

		if attempt == cfg.Attempts {
			break
		}
		if err := wait(ctx, time.Duration(attempt)*cfg.RetryInterval); err != nil {
			return nil, errors.Join(ErrConnectionFailed, err)
		}
	}

	return nil, errors.Join(ErrConnectionFailed, lastErr)
}

// Closer adapts a client to a shutdown hook.
func Closer(client io.Closer) func(context.Context) error {
	return func(context.Context) error {
		return client.Close()
	}
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
