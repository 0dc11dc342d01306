package ratelimit

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// window increments the counter and starts its expiry on the first hit
// in one atomic step.
var window = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Redis is a limiter shared by every process using the same server.
type Redis struct {
	client redis.Scripter
	prefix string
	cfg    Config
}

// RedisOption configures a Redis limiter.
type RedisOption func(*Redis)

// WithPrefix namespaces keys as "{prefix}:{key}".
// Default: "ratelimit".
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// NewRedis creates a Redis-backed limiter. The client should come from
// pkg/redis.Open.
func NewRedis(client redis.Scripter, cfg Config, opts ...RedisOption) (*Redis, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	r := &Redis{client: client, cfg: cfg, prefix: "ratelimit"}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Allow counts a hit for key and reports whether it is within the limit.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}

	n, err := window.Run(ctx, r.client, []string{r.key(key)}, r.cfg.Window.Milliseconds()).Int()
	if err != nil {
		return false, errors.Join(ErrBackend, err)
	}
	return n <= r.cfg.Limit, nil
}

func (r *Redis) key(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}
