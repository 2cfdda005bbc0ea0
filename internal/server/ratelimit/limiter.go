// Implements a per-client token bucket rate limiter.

// Package ratelimit limits how often each client can call the API.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Result is the outcome of one check.
type Result struct {
	Allowed    bool
	Limit      int           // requests per window
	Remaining  int           // approximate requests left before throttling
	ResetAt    time.Time     // when the bucket is full again
	RetryAfter time.Duration // 0 when allowed
}

// Limiter keeps one token bucket per client key.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    rate.Limit
	limit   int
	burst   int
	idle    time.Duration
	stop    chan struct{}
	once    sync.Once
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter allows requests per window to each key, with bursts of up to
// burst requests. Close must be called to stop the background sweep.
func NewLimiter(requests int, window time.Duration, burst int) *Limiter {
	l := &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate.Limit(float64(requests) / window.Seconds()),
		limit:   requests,
		burst:   burst,
		idle:    max(window, 10*time.Minute),
		stop:    make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Allow consumes one token of key's bucket if one is available.
func (l *Limiter) Allow(key string) Result {
	now := time.Now()
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	res := Result{
		Allowed:   allowed,
		Limit:     l.limit,
		Remaining: max(int(tokens), 0),
		ResetAt:   now.Add(time.Duration((float64(l.burst) - tokens) / float64(l.rate) * float64(time.Second))),
	}
	if !allowed {
		res.RetryAfter = max(time.Duration(float64(time.Second)/float64(l.rate)), time.Second)
	}
	return res
}

// Close stops the background sweep. It is safe to call more than once.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			l.sweep(now)
		case <-l.stop:
			return
		}
	}
}

// sweep forgets clients that are idle and whose bucket is full.
func (l *Limiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	threshold := now.Add(-l.idle)
	for key, b := range l.buckets {
		if b.lastSeen.Before(threshold) && b.limiter.TokensAt(now) >= float64(l.burst) {
			delete(l.buckets, key)
		}
	}
}

// size returns the number of tracked clients.
func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
