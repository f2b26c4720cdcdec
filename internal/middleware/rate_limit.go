package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DarshikR/Chat-App/internal/service"
	"github.com/DarshikR/Chat-App/pkg/logger"
)

const (
	// authAttemptLimit caps credential-guessing per client IP within one
	// window. Register, login and refresh share the budget.
	authAttemptLimit = 100
	authWindow       = time.Minute

	authAttemptKeyPrefix = "auth_attempts:"
)

type RateLimitMiddleware struct {
	rateLimitService service.RateLimitService
	log              logger.Logger
}

func NewRateLimitMiddleware(rateLimitService service.RateLimitService, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		log:              log,
	}
}

func (m *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := authAttemptKeyPrefix + c.ClientIP()

		allowed, err := m.rateLimitService.CheckLimit(c.Request.Context(), key, authAttemptLimit, authWindow)
		if err != nil {
			m.log.Error("Rate limit check failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			c.Abort()
			return
		}

		if !allowed {
			c.Header("X-RateLimit-Limit", strconv.Itoa(authAttemptLimit))
			c.Header("X-RateLimit-Remaining", "0")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		count, err := m.rateLimitService.Increment(c.Request.Context(), key, authWindow)
		if err != nil {
			m.log.Error("Rate limit increment failed", "error", err)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(authAttemptLimit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(authAttemptLimit-int(count)))
		c.Next()
	}
}
