package main

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"inboxd/internal/httputil"
	"inboxd/internal/metrics"
)

// visitorTTL is how long an idle client keeps its limiter before the entry
// is pruned.
const visitorTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter throttles agent send endpoints per client IP so one
// misbehaving dashboard cannot exhaust the Graph API quota.
type ipRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
}

func newIPRateLimiter(perSec float64, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(perSec),
		burst:    burst,
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()

	l.pruneLocked()
	return v.limiter.Allow()
}

func (l *ipRateLimiter) pruneLocked() {
	cutoff := time.Now().Add(-visitorTTL)
	for ip, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, ip)
		}
	}
}

// middleware rejects over-limit requests with 429.
func (l *ipRateLimiter) middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(httputil.GetClientIP(r)) {
			metrics.IncrementCounter("rate_limited_requests")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "rate limit exceeded",
			})
			return
		}
		next(w, r)
	}
}
