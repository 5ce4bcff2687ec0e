package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appauthz "vulntrack/internal/application/authz"
	"vulntrack/internal/shared/constants"
)

// RequestID echoes the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(constants.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(constants.ContextKeyRequestID, id)
		c.Header(constants.HeaderXRequestID, id)
		c.Next()
	}
}

// RequestMemo gives each request its own authorization memo, so policies
// and enforcers are resolved at most once per request.
func RequestMemo() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(appauthz.WithRequestMemo(c.Request.Context()))
		c.Next()
	}
}
