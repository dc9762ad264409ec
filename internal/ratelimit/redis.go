package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript increments a window counter and arms its expiry on first use.
var takeScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisLimiter shares window counters between server instances.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter over client.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix}
}

// Take counts one use of d at now.
func (l *RedisLimiter) Take(ctx context.Context, d Decision, now time.Time) (Result, error) {
	if d.Key == "" || !d.Rule.enabled() {
		return Result{Allowed: true}, nil
	}
	start, end := windowOf(now, d.Rule.Window)
	key := l.prefix + ":" + d.Key + ":" + strconv.FormatInt(start.UnixMilli(), 10)
	ttl := (d.Rule.Window + time.Second).Milliseconds()
	n, errRun := takeScript.Run(ctx, l.client, []string{key}, ttl).Int()
	if errRun != nil {
		return Result{}, fmt.Errorf("ratelimit: redis take %s: %w", d.Action, errRun)
	}
	if n > d.Rule.Limit {
		return Result{Reset: end}, nil
	}
	return Result{Allowed: true, Remaining: d.Rule.Limit - n, Reset: end}, nil
}

// Close releases the connection pool.
func (l *RedisLimiter) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}
