package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// luaClaimWindow keeps one sorted-set member per accepted hit, scored by its
// time in ms. A rejected hit is not recorded.
//
// KEYS[1] hit log
// ARGV    now_ms, window_ms, limit, member
// returns {allowed, hits in window, retry_ms}
const luaClaimWindow = `
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local hits = redis.call('ZCARD', KEYS[1])

if hits >= limit then
  local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
  local retry = tonumber(oldest[2]) + window - now
  if retry < 1 then retry = 1 end
  return {0, hits, retry}
end

redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return {1, hits + 1, 0}
`

// SlidingWindowLimiter allows limit hits per holder in any window-long span.
type SlidingWindowLimiter struct {
	rdb    *redis.Client
	scope  string
	limit  int
	window time.Duration
	now    func() time.Time
	script *redis.Script
}

// NewSlidingWindowLimiter returns nil when rdb is nil or limit is not
// positive. A nil limiter allows every request.
func NewSlidingWindowLimiter(
	rdb *redis.Client,
	scope string,
	limit int,
	window time.Duration,
) *SlidingWindowLimiter {
	if rdb == nil || limit <= 0 {
		return nil
	}

	return &SlidingWindowLimiter{
		rdb:    rdb,
		scope:  scope,
		limit:  limit,
		window: window,
		now:    time.Now,
		script: redis.NewScript(luaClaimWindow),
	}
}

// Allow records one hit for id if it fits in the window. retryAfter is how
// long until the oldest hit leaves the window.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, id string) (allowed bool, current int64, retryAfter time.Duration, err error) {
	if l == nil {
		return true, 0, 0, nil
	}

	res, err := l.script.Run(
		ctx,
		l.rdb,
		[]string{KeyRateLimit(l.scope, id)},
		l.now().UnixMilli(), l.window.Milliseconds(), l.limit, uuid.NewString(),
	).Result()
	if err != nil {
		return false, 0, 0, err
	}

	return parseWindowResult(res)
}

func parseWindowResult(res any) (allowed bool, current int64, retryAfter time.Duration, err error) {
	arr, ok := res.([]any)
	if !ok || len(arr) != 3 {
		return false, 0, 0, fmt.Errorf("bad script result: %v", res)
	}

	vals := make([]int64, len(arr))
	for i, v := range arr {
		switch t := v.(type) {
		case int64:
			vals[i] = t
		case string:
			if vals[i], err = strconv.ParseInt(t, 10, 64); err != nil {
				return false, 0, 0, fmt.Errorf("bad script result: %w", err)
			}
		default:
			return false, 0, 0, fmt.Errorf("bad script result: %T", v)
		}
	}

	return vals[0] == 1, vals[1], time.Duration(vals[2]) * time.Millisecond, nil
}
