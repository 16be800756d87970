/**
 * @description
 * Distributed rate limiting for message posting, backed by Redis so the
 * limit holds across service replicas.
 */
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var messageRateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// MessageRateLimiter gates how often a sender may post to a thread.
type MessageRateLimiter interface {
	Allow(ctx context.Context, senderUserID int64) (bool, error)
}

// RedisMessageRateLimiter implements MessageRateLimiter with a fixed window
// counter per sender.
type RedisMessageRateLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int64
	window time.Duration
}

// NewRedisMessageRateLimiter creates a limiter allowing limit messages per
// window for each sender.
func NewRedisMessageRateLimiter(client redis.UniversalClient, prefix string, limit int64, window time.Duration) *RedisMessageRateLimiter {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "traslados:rate_limit"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	if limit <= 0 {
		limit = 20
	}
	if window <= 0 {
		window = time.Minute
	}

	return &RedisMessageRateLimiter{
		client: client,
		prefix: trimmedPrefix,
		limit:  limit,
		window: window,
	}
}

// Allow reports whether the sender is within the current window's budget.
func (l *RedisMessageRateLimiter) Allow(ctx context.Context, senderUserID int64) (bool, error) {
	key := fmt.Sprintf("%s:messages:%d", l.prefix, senderUserID)
	current, err := messageRateLimitScript.Run(ctx, l.client, []string{key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return current <= l.limit, nil
}
