package ratelimitsvc

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/studyplan/core"
)

const keyPrefix = "rate_limit:"

// incrScript increments the window counter, starting the window on the first hit.
// It returns {count, ttl in ms}.
var incrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

// redisLimiter is a fixed window limiter shared by every process using the same redis.
type redisLimiter struct {
	rdb    redis.Scripter
	max    int
	window time.Duration
}

var _ core.RateLimiter = (*redisLimiter)(nil)

func NewRedisLimiter(rdb redis.Scripter, limit int, win time.Duration) core.RateLimiter {
	return &redisLimiter{rdb: rdb, max: limit, window: win}
}

// NewRedisClient connects to the configured redis and pings it.
func NewRedisClient(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        conf.Addr,
		Password:    conf.Password,
		DB:          conf.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return rdb, nil
}

func (l *redisLimiter) Check(ctx context.Context, key string) (core.RateLimitResult, error) {
	vals, err := incrScript.Run(ctx, l.rdb, []string{keyPrefix + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return core.RateLimitResult{}, errors.Wrap(err, "incrementing rate limit window")
	}
	if len(vals) != 2 {
		return core.RateLimitResult{}, errors.Errorf("unexpected rate limit script result: %v", vals)
	}

	count, ttl := int(vals[0]), time.Duration(vals[1])*time.Millisecond
	if ttl < 0 {
		ttl = l.window
	}
	res := core.RateLimitResult{
		Allowed:   count <= l.max,
		Limit:     l.max,
		Remaining: l.max - count,
		ResetTime: nowFunc().Add(ttl),
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	return res, nil
}
