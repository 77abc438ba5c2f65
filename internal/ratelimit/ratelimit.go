package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/planpilot/planpilot/internal/config"
	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/kv"
	"github.com/planpilot/planpilot/internal/logger"
)

const (
	keyPrefix = "ratelimit:"
	window    = 60 * time.Second

	// DefaultRequestsPerMinute is the budget applied when configuration does
	// not specify one.
	DefaultRequestsPerMinute = 60
)

// Limiter bounds request rate per caller identity using fixed one-minute
// windows on the shared counter store. The scheme is intentionally imprecise
// at window boundaries: a caller can burst up to twice the budget across a
// boundary. That approximation is acceptable here; this is not a
// sliding-window guarantee.
//
// A second approximation: the key can expire between the read and the
// increment, in which case INCR recreates it without a TTL. Check detects
// that case (the increment came back 1) and re-arms the window expiry, so
// the counter never persists past its window.
//
// If the store is unreachable the limiter fails open: the request is admitted
// and the failure logged. Availability of the API is preferred over strict
// enforcement of a best-effort budget.
type Limiter struct {
	store             kv.Store
	log               *logger.Logger
	requestsPerMinute int
}

func NewLimiter(store kv.Store, log *logger.Logger, cfg config.RateLimitConfig) *Limiter {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultRequestsPerMinute
	}
	return &Limiter{
		store:             store,
		log:               log,
		requestsPerMinute: rpm,
	}
}

// Check decides admit/reject for one request from the given identity. It
// returns nil to admit, or an error marked ErrRateLimitExceeded to reject.
func (l *Limiter) Check(ctx context.Context, identity string) error {
	key := keyPrefix + identity

	current, found, err := l.store.Get(ctx, key)
	if err != nil {
		l.log.Warnw("rate limiter store unavailable, admitting request", "identity", identity, "error", err)
		return nil
	}

	if !found {
		// First request in this window
		if err := l.store.Set(ctx, key, "1", window); err != nil {
			l.log.Warnw("rate limiter store unavailable, admitting request", "identity", identity, "error", err)
		}
		return nil
	}

	count, parseErr := strconv.Atoi(current)
	if parseErr == nil && count >= l.requestsPerMinute {
		return ierr.NewError("rate limit exceeded").
			WithHint("Too many requests. Please try again later.").
			WithReportableDetails(map[string]interface{}{
				"limit":  l.requestsPerMinute,
				"window": window.String(),
			}).
			Mark(ierr.ErrRateLimitExceeded)
	}

	n, err := l.store.Incr(ctx, key)
	if err != nil {
		l.log.Warnw("rate limiter store unavailable, admitting request", "identity", identity, "error", err)
		return nil
	}
	if n == 1 {
		// The key expired between the read and the increment, so INCR
		// recreated it without a TTL. Start a fresh window.
		if err := l.store.Set(ctx, key, "1", window); err != nil {
			l.log.Warnw("failed to re-arm rate limit window", "identity", identity, "error", err)
		}
	}
	return nil
}
