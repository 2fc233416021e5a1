package echomw

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per client IP. Buckets are dropped after idle.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
	idle    time.Duration
}

// NewLimiter allows rateLimit requests per second with the given burst per client.
func NewLimiter(rateLimit, burst int) *Limiter {
	return &Limiter{
		clients: make(map[string]*rate.Limiter),
		limit:   rate.Limit(rateLimit),
		burst:   burst,
		idle:    time.Minute,
	}
}

// getLimiter returns the rate limiter for the given IP address.
func (l *Limiter) getLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.clients[ip]
	if !exists {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.clients[ip] = limiter

		// Forget the client after a minute.
		go func() {
			time.Sleep(l.idle)
			l.mu.Lock()
			delete(l.clients, ip)
			l.mu.Unlock()
		}()
	}
	return limiter
}

// Middleware rejects requests above the client's rate with 429.
func (l *Limiter) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		limiter := l.getLimiter(c.RealIP())
		if !limiter.Allow() {
			return c.String(http.StatusTooManyRequests, "Too many requests")
		}
		return next(c)
	}
}
