package httpapi

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientLimiter keeps one token bucket per client IP for booking writes.
// A bucket idle for longer than a full refill is dropped on the next sweep;
// a fresh bucket behaves the same.
type clientLimiter struct {
	mu        sync.Mutex
	clients   map[string]*limitedClient
	every     time.Duration
	burst     int
	idleAfter time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type limitedClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(perMinute, burst int) *clientLimiter {
	if burst <= 0 {
		burst = 1
	}
	every := time.Minute / time.Duration(perMinute)
	idle := every * time.Duration(burst)
	if idle < time.Minute {
		idle = time.Minute
	}
	return &clientLimiter{
		clients:   make(map[string]*limitedClient),
		every:     every,
		burst:     burst,
		idleAfter: idle,
		now:       time.Now,
	}
}

func (c *clientLimiter) get(ip string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= c.idleAfter {
		for key, cl := range c.clients {
			if now.Sub(cl.lastSeen) >= c.idleAfter {
				delete(c.clients, key)
			}
		}
		c.lastSweep = now
	}

	cl, ok := c.clients[ip]
	if !ok {
		cl = &limitedClient{limiter: rate.NewLimiter(rate.Every(c.every), c.burst)}
		c.clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// rateLimit rejects writes with 429 once a client spends its bucket.
// perMinute <= 0 disables limiting.
func rateLimit(log *slog.Logger, perMinute, burst int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := newClientLimiter(perMinute, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !limiter.get(ip).Allow() {
				log.Warn("rate limit exceeded", slog.String("ip", ip), slog.String("path", r.URL.Path))
				respondError(w, r, http.StatusTooManyRequests, "rate_limited", "Too many booking requests. Try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
