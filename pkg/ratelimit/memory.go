package ratelimit

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is a process-local limiter. Counters are lost on restart and are
// not shared between replicas; use Redis for that.
type Memory struct {
	c   *gocache.Cache
	cfg Config
}

// NewMemory creates an in-memory limiter. Expired windows are purged every
// window interval.
func NewMemory(cfg Config) (*Memory, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Memory{
		c:   gocache.New(cfg.Window, cfg.Window),
		cfg: cfg,
	}, nil
}

// Allow counts a hit for key and reports whether it is within the limit.
func (m *Memory) Allow(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if key == "" {
		return false, ErrEmptyKey
	}

	for {
		// Add only succeeds for a new or expired key and opens the window.
		if err := m.c.Add(key, 1, m.cfg.Window); err == nil {
			return true, nil
		}
		// IncrementInt keeps the existing expiration; it fails if the
		// window expired between Add and here, so start over.
		n, err := m.c.IncrementInt(key, 1)
		if err == nil {
			return n <= m.cfg.Limit, nil
		}
	}
}

// Reset forgets the counter for key.
func (m *Memory) Reset(key string) {
	m.c.Delete(key)
}

// Remaining returns the hits left in the current window.
func (m *Memory) Remaining(key string) int {
	v, ok := m.c.Get(key)
	if !ok {
		return m.cfg.Limit
	}
	n, _ := v.(int)
	return max(m.cfg.Limit-n, 0)
}
