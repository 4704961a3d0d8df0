package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "feedlink:ratelimit:"

// slidingWindowScript trims, counts and admits atomically. Scores are unix
// milliseconds. Returns {allowed, count, resetAtMillis}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', key, window)
local reset = now + window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
  reset = tonumber(oldest[2]) + window
end
return {allowed, count, reset}
`)

// Redis shares windows between instances using one sorted set per key.
type Redis struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client, now: time.Now}
}

func (l *Redis) Allow(ctx context.Context, key string, limit int, win time.Duration) (Result, error) {
	now := l.now()
	raw, err := slidingWindowScript.Run(ctx, l.client, []string{keyPrefix + key},
		now.UnixMilli(), win.Milliseconds(), limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if len(raw) != 3 {
		return Result{}, fmt.Errorf("rate limit %s: unexpected reply %v", key, raw)
	}
	return Result{
		Allowed:   raw[0] == 1,
		Limit:     limit,
		Remaining: max(limit-int(raw[1]), 0),
		ResetAt:   time.UnixMilli(raw[2]),
	}, nil
}
