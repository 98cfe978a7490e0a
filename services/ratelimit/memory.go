package ratelimitsvc

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/studyplan/core"
)

var nowFunc = time.Now // mockable

// cleanupThreshold is the number of tracked keys above which expired windows are evicted.
const cleanupThreshold = 1000

type window struct {
	count     int
	resetTime time.Time
}

// memoryLimiter is a process-local fixed window limiter.
type memoryLimiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*window
}

var _ core.RateLimiter = (*memoryLimiter)(nil)

func NewMemoryLimiter(limit int, win time.Duration) core.RateLimiter {
	return &memoryLimiter{
		max:     limit,
		window:  win,
		windows: make(map[string]*window),
	}
}

func (l *memoryLimiter) Check(_ context.Context, key string) (core.RateLimitResult, error) {
	now := nowFunc()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetTime) {
		w = &window{count: 1, resetTime: now.Add(l.window)}
		l.windows[key] = w
		if len(l.windows) > cleanupThreshold {
			l.evict(now)
		}
		return core.RateLimitResult{Allowed: true, Limit: l.max, Remaining: l.max - 1, ResetTime: w.resetTime}, nil
	}

	if w.count >= l.max {
		return core.RateLimitResult{Allowed: false, Limit: l.max, Remaining: 0, ResetTime: w.resetTime}, nil
	}
	w.count++
	return core.RateLimitResult{Allowed: true, Limit: l.max, Remaining: l.max - w.count, ResetTime: w.resetTime}, nil
}

func (l *memoryLimiter) evict(now time.Time) {
	for k, w := range l.windows {
		if now.After(w.resetTime) {
			delete(l.windows, k)
		}
	}
}
