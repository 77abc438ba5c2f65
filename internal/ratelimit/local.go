package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LocalLimiter is an in-process token-bucket limiter for single-node
// deployments where no shared store is configured. Unlike Limiter it is not
// coordinated across replicas.
type LocalLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	ttl      time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter creates a limiter admitting rps requests per second with
// the given burst. Idle identities are evicted after ttl.
func NewLocalLimiter(rps float64, burst int, ttl time.Duration) *LocalLimiter {
	l := &LocalLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
	}

	go l.cleanup()

	return l
}

func (l *LocalLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		for identity, v := range l.visitors {
			if time.Since(v.lastSeen) > l.ttl {
				delete(l.visitors, identity)
			}
		}
		l.mu.Unlock()
	}
}

// Allow reports whether a request from identity should be admitted.
func (l *LocalLimiter) Allow(identity string) bool {
	l.mu.Lock()
	v, exists := l.visitors[identity]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[identity] = v
	}
	v.lastSeen = time.Now()
	l.mu.Unlock()

	return v.limiter.Allow()
}
