// Package ratelimit limits requests per client IP with token buckets.
package ratelimit

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limitedMessage = "Too many requests from this IP, please try again later."

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per client. A client may send up to
// requests requests at once, refilled evenly over window.
type Limiter struct {
	mu       sync.Mutex
	clients  map[string]*entry
	rate     rate.Limit
	burst    int
	interval time.Duration
	now      func() time.Time
}

// New creates a limiter allowing requests per window for each client
func New(requests int, window time.Duration) *Limiter {
	if requests < 1 {
		requests = 1
	}
	interval := window / time.Duration(requests)
	return &Limiter{
		clients:  make(map[string]*entry),
		rate:     rate.Every(interval),
		burst:    requests,
		interval: interval,
		now:      time.Now,
	}
}

// Allow consumes a token for key and reports whether the request may proceed
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	e, ok := l.clients[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Cleanup forgets clients idle for longer than idle and returns how many
// were removed
func (l *Limiter) Cleanup(idle time.Duration) int {
	cutoff := l.now().Add(-idle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, e := range l.clients {
		if e.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Middleware rejects requests over the limit with 429. It keys on the host
// of r.RemoteAddr; put RealIP in front of it when running behind a proxy.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.Allow(clientIP(r)) {
			next.ServeHTTP(w, r)
			return
		}

		retryAfter := int(math.Ceil(l.interval.Seconds()))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "rate_limited",
			"error_description": limitedMessage,
		})
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
