// Package middleware holds the gin middleware shared across API routes.
package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// ActingUserKey is the gin context key holding the acting user ID.
const ActingUserKey = "acting_user"

// actingUserHeader identifies the user performing the request. Auth proper is
// handled upstream; the API only needs the identity for audit stamps.
const actingUserHeader = "X-User-ID"

// ActingUser extracts the acting user from the request header, defaulting to
// "system" when absent.
func ActingUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.GetHeader(actingUserHeader)
		if user == "" {
			user = "system"
		}
		c.Set(ActingUserKey, user)
		c.Next()
	}
}

// ActingUserFrom reads the acting user set by the ActingUser middleware.
func ActingUserFrom(c *gin.Context) string {
	if user, ok := c.Get(ActingUserKey); ok {
		if s, ok := user.(string); ok && s != "" {
			return s
		}
	}
	return "system"
}

// Logging logs one line per request through the structured logger.
func Logging(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"user", ActingUserFrom(c))
	}
}
