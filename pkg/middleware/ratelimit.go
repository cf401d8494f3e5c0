package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/httputil"
)

// clientIdleTTL is how long a client's limiter survives without traffic.
const clientIdleTTL = 10 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters holds one token bucket per client address. Idle entries are
// swept on access once per TTL, so no background goroutine is needed.
type clientLimiters struct {
	mu        sync.Mutex
	clients   map[string]*client
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiters(rps, burst int, ttl time.Duration) *clientLimiters {
	return &clientLimiters{
		clients: make(map[string]*client),
		limit:   rate.Limit(rps),
		burst:   burst,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *clientLimiters) allow(addr string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= c.ttl {
		for key, cl := range c.clients {
			if now.Sub(cl.lastSeen) >= c.ttl {
				delete(c.clients, key)
			}
		}
		c.lastSweep = now
	}

	cl, ok := c.clients[addr]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.clients[addr] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

func (c *clientLimiters) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

// RateLimit throttles each client to rps requests per second with the given
// burst. Throttled requests get 429 with a RATE_LIMITED error envelope. A
// non-positive rps disables limiting.
func RateLimit(rps, burst int, logger *slog.Logger) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = rps
	}
	limiters := newClientLimiters(rps, burst, clientIdleTTL)
	return rateLimit(limiters, logger)
}

func rateLimit(limiters *clientLimiters, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := clientAddr(r)
			if !limiters.allow(addr) {
				logger.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("client", addr),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", "1")
				httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "RATE_LIMITED", Message: "too many requests"},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
