package auth

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// Middleware bundles JWT authentication and rate limiting for the gin
// gateway.
type Middleware struct {
	jwt         *JWTService
	logger      *zap.Logger
	rateLimiter *limiter.Limiter
}

// NewMiddleware builds a Middleware with the given rate (requests per
// period, e.g. 50 per second).
func NewMiddleware(jwtService *JWTService, logger *zap.Logger, requestsPerSecond, burst int) *Middleware {
	rate := limiter.Rate{Period: time.Second, Limit: int64(requestsPerSecond)}
	if burst > requestsPerSecond {
		rate.Limit = int64(burst)
	}
	return &Middleware{
		jwt:         jwtService,
		logger:      logger,
		rateLimiter: limiter.New(memory.NewStore(), rate),
	}
}

// JWTAuth validates the bearer token and stores its Claims in the gin
// context under "claims".
func (m *Middleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			c.Abort()
			return
		}

		claims, err := m.jwt.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			m.logger.Warn("rejected invalid token", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("claims", claims)
		c.Next()
	}
}

// RateLimit throttles requests per client IP.
func (m *Middleware) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := m.rateLimiter.Get(c.Request.Context(), c.ClientIP())
		if err != nil {
			m.logger.Error("rate limiter error", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(ctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(ctx.Reset, 10))

		if ctx.Reached {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// ClaimsFromContext extracts the Claims a prior JWTAuth call stored.
func ClaimsFromContext(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get("claims")
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}
