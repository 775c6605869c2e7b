package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/fintrackhq/fintrack/pkg/redis"
)

// Limiter is the admission decision consumed by the HTTP layer. It only
// answers allow/deny; callers never see window bookkeeping.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// slidingWindowScript counts the current fixed window plus the weighted
// tail of the previous one, so a burst straddling a window boundary cannot
// double the quota. Check and increment happen in one round trip.
const slidingWindowScript = `
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local previous = tonumber(redis.call("GET", KEYS[2]) or "0")
local limit = tonumber(ARGV[1])
local weight = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local used = current + math.floor(previous * weight)
if used >= limit then
  return -1
end

current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ttl)
end
return limit - used - 1
`

type SlidingWindow struct {
	adapter redis.RedisAdapter
	limit   int64
	window  time.Duration
	prefix  string

	// now is swappable in tests
	now func() time.Time
}

func NewSlidingWindow(adapter redis.RedisAdapter, limit int, window time.Duration) *SlidingWindow {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &SlidingWindow{
		adapter: adapter,
		limit:   int64(limit),
		window:  window,
		prefix:  "ratelimit:",
		now:     time.Now,
	}
}

// Allow reports whether one more request under key fits in the window.
// A denied request is not counted against the quota.
func (l *SlidingWindow) Allow(ctx context.Context, key string) (bool, error) {
	now := l.now()
	windowMs := l.window.Milliseconds()
	windowID := now.UnixMilli() / windowMs
	elapsed := now.UnixMilli() % windowMs
	weight := float64(windowMs-elapsed) / float64(windowMs)

	currentKey := fmt.Sprintf("%s%s:%d", l.prefix, key, windowID)
	previousKey := fmt.Sprintf("%s%s:%d", l.prefix, key, windowID-1)

	// Keys live for two windows so the previous window is still readable
	// when the next one starts.
	res, err := l.adapter.Eval(ctx, slidingWindowScript,
		[]string{currentKey, previousKey},
		l.limit, fmt.Sprintf("%.6f", weight), 2*windowMs)
	if err != nil {
		return false, err
	}

	remaining, ok := res.(int64)
	if !ok {
		return false, fmt.Errorf("ratelimit: unexpected script result %T", res)
	}
	return remaining >= 0, nil
}
