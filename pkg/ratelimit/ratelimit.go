// Package ratelimit provides fixed-window limiters keyed by an arbitrary
// string. Both implementations satisfy verification.Limiter.
//
// The window starts with the first hit for a key; once Limit hits have been
// counted, Allow reports false until the window expires.
package ratelimit

import (
	"errors"
	"time"
)

var (
	// ErrInvalidLimit is returned for a non-positive limit or window.
	ErrInvalidLimit = errors.New("ratelimit: limit and window must be positive")

	// ErrEmptyKey is returned when Allow is called without a key.
	ErrEmptyKey = errors.New("ratelimit: empty key")

	// ErrBackend wraps storage failures.
	ErrBackend = errors.New("ratelimit: backend failure")
)

// Config describes a fixed window.
type Config struct {
	Limit  int           `env:"RATE_LIMIT" envDefault:"5"`
	Window time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
}

func (c Config) validate() error {
	if c.Limit <= 0 || c.Window <= 0 {
		return ErrInvalidLimit
	}
	return nil
}
