package middleware

import (
	"github.com/gin-gonic/gin"
)

// ContextIPKey is the gin context key holding the resolved client IP.
// The audit logger reads it when recording who triggered an event.
const ContextIPKey = "client_ip"

// IPMiddleware resolves the client IP once per request, honoring proxy
// headers through gin's trusted-proxy handling, and stores it for the
// audit trail.
func IPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextIPKey, c.ClientIP())
		c.Next()
	}
}
