package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// MetricsAuthMiddleware guards the Prometheus scrape endpoint with a static
// bearer token. An empty configured token leaves the endpoint open.
func MetricsAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			c.Next()
			return
		}

		presented, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok {
			rejectScrape(c, "bearer token required")
			return
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
			rejectScrape(c, "invalid token")
			return
		}

		c.Next()
	}
}

func rejectScrape(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", `Bearer realm="metrics"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthorized",
		"message": message,
	})
}
