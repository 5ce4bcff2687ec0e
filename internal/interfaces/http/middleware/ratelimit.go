package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vulntrack/internal/infrastructure/ratelimit"
	"vulntrack/internal/shared/constants"
	"vulntrack/internal/shared/logger"
	"vulntrack/internal/shared/utils"
)

// RateLimiter throttles mutating calls per authenticated subject, falling
// back to the client IP before authentication.
type RateLimiter struct {
	limiter ratelimit.RateLimiter
	cfg     ratelimit.Config
	logger  logger.Interface
}

func NewRateLimiter(limiter ratelimit.RateLimiter, cfg ratelimit.Config, logger logger.Interface) *RateLimiter {
	return &RateLimiter{limiter: limiter, cfg: cfg, logger: logger}
}

func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limiter == nil || !rl.cfg.IsEnabled() || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		key := "ip:" + c.ClientIP()
		if subject := c.GetString(constants.ContextKeySubject); subject != "" {
			key = "subject:" + subject
		}

		allowed, err := rl.limiter.Allow(c.Request.Context(), key, rl.cfg)
		if err != nil {
			// Fail open while redis is unavailable.
			rl.logger.Warnw("rate limit check failed, allowing request", "key", key, "error", err)
			c.Next()
			return
		}
		if !allowed {
			rl.logger.Infow("rate limit exceeded", "key", key, "path", c.Request.URL.Path)
			utils.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
