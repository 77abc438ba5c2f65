package breaker

import (
	"context"
	"strconv"
	"time"

	"github.com/planpilot/planpilot/internal/config"
	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/kv"
	"github.com/planpilot/planpilot/internal/logger"
)

// State is the circuit state shared by all replicas through the counter store.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

const (
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 60 * time.Second
)

// Breaker is a per-name circuit breaker whose state lives entirely in the
// shared counter store: state, failure count and last-failure timestamp under
// circuit:<name>:*. No in-process memory is authoritative, so horizontally
// replicated callers observe a single logical breaker.
//
// The OPEN -> HALF_OPEN transition is guarded by a SETNX probe lock with a
// reset-timeout TTL, so at most one caller is admitted as the recovery probe
// at a time; concurrent callers observing an expired OPEN state are rejected.
// The remaining read-modify-write paths (failure counting in CLOSED) tolerate
// races: INCR is atomic and an over-count only trips the breaker earlier.
//
// If the store itself is unreachable the breaker fails open in the admission
// sense: the call is executed and the failure logged. A store outage must not
// take down an otherwise healthy downstream.
type Breaker struct {
	name             string
	store            kv.Store
	log              *logger.Logger
	failureThreshold int
	resetTimeout     time.Duration

	// now is injectable for tests
	now func() time.Time
}

func NewBreaker(name string, store kv.Store, log *logger.Logger, cfg config.BreakerConfig) *Breaker {
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	resetTimeout := cfg.ResetTimeout
	if resetTimeout <= 0 {
		resetTimeout = DefaultResetTimeout
	}

	return &Breaker{
		name:             name,
		store:            store,
		log:              log,
		failureThreshold: threshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
}

// SetNowFunc overrides the clock. Test hook.
func (b *Breaker) SetNowFunc(now func() time.Time) {
	b.now = now
}

func (b *Breaker) stateKey() string       { return "circuit:" + b.name + ":state" }
func (b *Breaker) failuresKey() string    { return "circuit:" + b.name + ":failures" }
func (b *Breaker) lastFailureKey() string { return "circuit:" + b.name + ":last_failure" }
func (b *Breaker) probeKey() string       { return "circuit:" + b.name + ":probe" }

// Call admits or rejects op based on the current circuit state, executes it
// only when admitted, and records the outcome. Rejection returns an error
// marked ErrCircuitOpen, distinguishable from op's own errors; op errors are
// returned verbatim.
func (b *Breaker) Call(ctx context.Context, op func(ctx context.Context) error) error {
	state, err := b.getState(ctx)
	if err != nil {
		b.log.Warnw("breaker store unavailable, executing without protection",
			"breaker", b.name, "error", err)
		return op(ctx)
	}

	probing := false

	switch state {
	case StateOpen:
		if !b.shouldTryReset(ctx) {
			return b.rejectErr()
		}
		if !b.acquireProbe(ctx) {
			return b.rejectErr()
		}
		b.setState(ctx, StateHalfOpen)
		probing = true

	case StateHalfOpen:
		// Another replica already flipped to HALF_OPEN. Only the probe-lock
		// holder may call; everyone else is rejected. If the lock has
		// expired the previous probe died, so take over.
		if !b.acquireProbe(ctx) {
			return b.rejectErr()
		}
		probing = true
	}

	opErr := op(ctx)

	if opErr != nil {
		b.onFailure(ctx, probing)
		return opErr
	}

	b.onSuccess(ctx, probing)
	return nil
}

func (b *Breaker) onSuccess(ctx context.Context, probing bool) {
	if !probing {
		return
	}
	// Probe succeeded: downstream has recovered.
	b.setState(ctx, StateClosed)
	if err := b.store.Del(ctx, b.failuresKey(), b.lastFailureKey(), b.probeKey()); err != nil {
		b.log.Warnw("failed to reset breaker counters", "breaker", b.name, "error", err)
	}
	b.log.Infow("circuit closed after successful probe", "breaker", b.name)
}

func (b *Breaker) onFailure(ctx context.Context, probing bool) {
	if probing {
		// Probe failed: trip again without touching the failure count, and
		// restart the reset window from this failure.
		b.setState(ctx, StateOpen)
		b.setLastFailure(ctx)
		if err := b.store.Del(ctx, b.probeKey()); err != nil {
			b.log.Warnw("failed to release probe lock", "breaker", b.name, "error", err)
		}
		b.log.Warnw("circuit re-opened after failed probe", "breaker", b.name)
		return
	}

	count, err := b.store.Incr(ctx, b.failuresKey())
	if err != nil {
		b.log.Warnw("failed to record breaker failure", "breaker", b.name, "error", err)
		return
	}
	b.setLastFailure(ctx)

	if count >= int64(b.failureThreshold) {
		b.setState(ctx, StateOpen)
		b.log.Warnw("circuit opened",
			"breaker", b.name, "failures", count, "threshold", b.failureThreshold)
	}
}

// getState returns the shared state, defaulting to CLOSED when no state key
// exists.
func (b *Breaker) getState(ctx context.Context) (State, error) {
	value, found, err := b.store.Get(ctx, b.stateKey())
	if err != nil {
		return StateClosed, err
	}
	if !found {
		return StateClosed, nil
	}
	return State(value), nil
}

func (b *Breaker) setState(ctx context.Context, state State) {
	if err := b.store.Set(ctx, b.stateKey(), string(state), 0); err != nil {
		b.log.Warnw("failed to persist breaker state",
			"breaker", b.name, "state", state, "error", err)
	}
}

func (b *Breaker) setLastFailure(ctx context.Context) {
	ts := strconv.FormatInt(b.now().UTC().UnixMilli(), 10)
	if err := b.store.Set(ctx, b.lastFailureKey(), ts, 0); err != nil {
		b.log.Warnw("failed to persist breaker last failure", "breaker", b.name, "error", err)
	}
}

// shouldTryReset reports whether the reset timeout has elapsed since the last
// recorded failure. A missing timestamp counts as elapsed.
func (b *Breaker) shouldTryReset(ctx context.Context) bool {
	value, found, err := b.store.Get(ctx, b.lastFailureKey())
	if err != nil || !found {
		return true
	}
	millis, parseErr := strconv.ParseInt(value, 10, 64)
	if parseErr != nil {
		return true
	}
	lastFailure := time.UnixMilli(millis)
	return b.now().UTC().Sub(lastFailure) > b.resetTimeout
}

// acquireProbe takes the probe lock. The TTL bounds how long a crashed probe
// can block recovery.
func (b *Breaker) acquireProbe(ctx context.Context) bool {
	ok, err := b.store.SetNX(ctx, b.probeKey(), "1", b.resetTimeout)
	if err != nil {
		b.log.Warnw("failed to acquire probe lock", "breaker", b.name, "error", err)
		return false
	}
	return ok
}

func (b *Breaker) rejectErr() error {
	return ierr.NewErrorf("circuit breaker %s is open", b.name).
		WithHint("Downstream service is temporarily unavailable. Please try again later.").
		WithReportableDetails(map[string]interface{}{
			"breaker": b.name,
		}).
		Mark(ierr.ErrCircuitOpen)
}

// Reset clears all shared state for the breaker, returning it to CLOSED.
func (b *Breaker) Reset(ctx context.Context) error {
	return b.store.Del(ctx, b.stateKey(), b.failuresKey(), b.lastFailureKey(), b.probeKey())
}
