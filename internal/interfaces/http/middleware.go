package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/update-requests/internal/infrastructure/identity"
	"github.com/garyjia/update-requests/pkg/utils"
)

// loggingMiddleware logs every request after it is served
func loggingMiddleware(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		// Process request
		c.Next()

		user, _ := identity.UserFrom(c.Request.Context())

		// Log request details
		logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"user", user,
		)
	}
}

// identityMiddleware puts the user named in header on the request context.
// Requests without one are refused.
func identityMiddleware(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := utils.SanitizeString(c.GetHeader(header))
		if user == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing " + header + " header",
				Kind:    "AuthenticationError",
			})
			return
		}

		c.Request = c.Request.WithContext(identity.WithUser(c.Request.Context(), user))
		c.Next()
	}
}
