package ratelimit

import (
	"context"
	"fmt"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// StoreLimiter adapts a ulule limiter store to Limiter. Windows are fixed rather than
// sliding, which is acceptable for the single-process fallback.
type StoreLimiter struct {
	Store limiter.Store
}

// NewMemoryLimiter returns a process-local limiter used when Redis is not configured.
func NewMemoryLimiter(prefix string) StoreLimiter {
	return StoreLimiter{Store: memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: time.Minute,
	})}
}

// Allow implements Limiter.
func (l StoreLimiter) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	if l.Store == nil || max <= 0 || window <= 0 {
		return true, max, time.Now().Add(window), nil
	}
	rate := limiter.Rate{Period: window, Limit: int64(max)}
	res, err := limiter.New(l.Store, rate).Get(ctx, key)
	if err != nil {
		return false, 0, time.Now().Add(window), fmt.Errorf("limiter store %s: %w", key, err)
	}
	return !res.Reached, int(res.Remaining), time.Unix(res.Reset, 0), nil
}
