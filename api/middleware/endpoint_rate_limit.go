package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// EndpointRateLimiter applies extra limits to selected routes. It runs after
// JWTAuth, so callers are keyed by operator and fall back to client IP.
type EndpointRateLimiter struct {
	limiters map[string]*RateLimiter
}

func NewEndpointRateLimiter() *EndpointRateLimiter {
	return &EndpointRateLimiter{limiters: make(map[string]*RateLimiter)}
}

// AddEndpoint registers a limit for a route pattern as reported by gin's
// FullPath. Register every route before calling Middleware.
func (erl *EndpointRateLimiter) AddEndpoint(route string, limit int, window time.Duration) {
	erl.limiters[route] = NewRateLimiter(limit, window)
}

func (erl *EndpointRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter, ok := erl.limiters[c.FullPath()]
		if !ok {
			c.Next()
			return
		}

		key := GetOperator(c)
		if key == "" {
			key = c.ClientIP()
		}
		if !limiter.Allow(key) {
			tooManyRequests(c, limiter, "rate limit exceeded for this endpoint")
			return
		}
		c.Next()
	}
}

// TokenRateLimiter bounds token requests per client IP per minute, which
// also bounds bcrypt work from a single caller.
func TokenRateLimiter(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		perMinute = 5
	}
	limiter := NewRateLimiter(perMinute, time.Minute)

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			tooManyRequests(c, limiter, "too many token requests")
			return
		}
		c.Next()
	}
}
