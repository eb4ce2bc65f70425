package firewall

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is an in-process per-IP token bucket. It sits in front of the
// store-backed ban machinery as a cheap admission gate: a request refused
// here never reaches storage at all.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	limit rate.Limit
	burst int

	// idleAfter is how long an untouched bucket survives before the next
	// sweep evicts it.
	idleAfter time.Duration
	lastSweep time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithRate sets the sustained events-per-second rate and burst size.
func WithRate(perSecond float64, burst int) LimiterOption {
	return func(l *Limiter) {
		l.limit = rate.Limit(perSecond)
		l.burst = burst
	}
}

// WithIdleEviction sets how long idle buckets are kept.
func WithIdleEviction(d time.Duration) LimiterOption {
	return func(l *Limiter) { l.idleAfter = d }
}

// NewLimiter creates a Limiter. Defaults: 5 events/s, burst 10, idle
// buckets evicted after 10 minutes.
func NewLimiter(opts ...LimiterOption) *Limiter {
	l := &Limiter{
		buckets:   make(map[string]*bucket),
		limit:     rate.Limit(5),
		burst:     10,
		idleAfter: 10 * time.Minute,
		lastSweep: time.Now(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether the IP may proceed, consuming one token.
func (l *Limiter) Allow(ip string) bool {
	now := time.Now()

	l.mu.Lock()
	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.seen = now

	if now.Sub(l.lastSweep) > l.idleAfter {
		l.sweepLocked(now)
	}
	l.mu.Unlock()

	return b.lim.Allow()
}

// sweepLocked evicts idle buckets. Caller holds l.mu.
func (l *Limiter) sweepLocked(now time.Time) {
	for ip, b := range l.buckets {
		if now.Sub(b.seen) > l.idleAfter {
			delete(l.buckets, ip)
		}
	}
	l.lastSweep = now
}

// Len reports the number of tracked IPs.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
