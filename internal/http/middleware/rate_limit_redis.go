package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindow increments the bucket, arms its expiry on first hit and returns
// {count, remaining ttl in ms}.
var fixedWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// RedisFixedWindowLimiter shares login, remind and api buckets between
// replicas. Keys are "<prefix>:<scope>:<client>".
type RedisFixedWindowLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisFixedWindowLimiter(client redis.UniversalClient, prefix string) *RedisFixedWindowLimiter {
	if prefix == "" {
		prefix = "cms:ratelimit"
	}
	return &RedisFixedWindowLimiter{client: client, prefix: prefix}
}

func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if l.client == nil {
		return false, window, errors.New("rate limit: redis client is nil")
	}
	if key == "" {
		key = "unknown"
	}
	if window < time.Millisecond {
		window = time.Second
	}
	res, err := fixedWindow.Run(ctx, l.client, []string{l.prefix + ":" + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, window, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 2 {
		return false, window, fmt.Errorf("rate limit script: expected 2 values, got %d", len(res))
	}
	count, ttl := res[0], time.Duration(res[1])*time.Millisecond
	if count <= int64(limit) {
		return true, 0, nil
	}
	if ttl <= 0 {
		ttl = window
	}
	return false, ttl, nil
}
