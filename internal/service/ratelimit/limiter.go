package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultIdle = 10 * time.Minute

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter keeps one token bucket per key. Every key starts full at capacity and
// refills at refill tokens per second; keys idle for longer than the idle window
// are forgotten on the next sweep.
type Limiter struct {
	mu        sync.Mutex
	m         map[string]*entry
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func New(capacity, refillPerSec float64) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	if refillPerSec < 0 {
		refillPerSec = 0
	}
	return &Limiter{
		m:     make(map[string]*entry),
		limit: rate.Limit(refillPerSec),
		burst: int(capacity),
		idle:  defaultIdle,
		now:   time.Now,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	if l.lastSweep.IsZero() {
		l.lastSweep = now
	}
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweepLocked(now)
	}
	e, ok := l.m[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.m[key] = e
	}
	e.seen = now
	l.mu.Unlock()

	return e.lim.AllowN(now, 1)
}

// Sweep drops keys idle for longer than idle; a dropped key starts full again.
func (l *Limiter) Sweep(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.idle = idle
	return l.sweepLocked(l.now())
}

func (l *Limiter) sweepLocked(now time.Time) int {
	cutoff := now.Add(-l.idle)
	n := 0
	for k, e := range l.m {
		if e.seen.Before(cutoff) {
			delete(l.m, k)
			n++
		}
	}
	l.lastSweep = now
	return n
}
