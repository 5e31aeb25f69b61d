package repository

import (
	"context"
	"sync/atomic"
	"time"

	"bookvalley/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverRateLimiter uses primary until it fails, then serves from fallback
// and probes primary again once per RetryAfter.
type FailoverRateLimiter struct {
	primary    domain.RateLimiter
	fallback   domain.RateLimiter
	logger     *zerolog.Logger
	RetryAfter time.Duration

	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverRateLimiter(primary, fallback domain.RateLimiter, logger *zerolog.Logger) *FailoverRateLimiter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverRateLimiter{
		primary:    primary,
		fallback:   fallback,
		logger:     logger,
		RetryAfter: time.Minute,
		now:        time.Now,
	}
}

func (r *FailoverRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.isDown.Load() && r.now().Sub(time.Unix(0, r.lastCheck.Load())) > r.RetryAfter {
		allowed, err := r.primary.Allow(ctx, key, limit, window)
		if err == nil {
			r.logger.Info().Msg("primary rate limiter recovered")
			r.isDown.Store(false)
			return allowed, nil
		}
		r.lastCheck.Store(r.now().UnixNano())
	}

	if !r.isDown.Load() {
		allowed, err := r.primary.Allow(ctx, key, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.logger.Error().Err(err).Msg("primary rate limiter failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck.Store(r.now().UnixNano())
	}

	return r.fallback.Allow(ctx, key, limit, window)
}

// Degraded reports whether requests are currently served by the fallback.
func (r *FailoverRateLimiter) Degraded() bool {
	return r.isDown.Load()
}
