package core

import (
	"context"
	"time"
)

type (
	RateLimitResult struct {
		Allowed   bool
		Limit     int
		Remaining int
		ResetTime time.Time
	}

	// RateLimiter counts requests per key within a fixed window.
	RateLimiter interface {
		Check(ctx context.Context, key string) (RateLimitResult, error)
	}
)
