package util

import (
	"context"

	"github.com/MattPM-ai/matt-git-review-sub002/internal/session"

	"github.com/gin-gonic/gin"
)

// GetIPFromContext extracts the client IP address from the context
func GetIPFromContext(ctx context.Context) string {
	// Try to extract from Gin context first
	if ginCtx, ok := ctx.(*gin.Context); ok {
		return ginCtx.ClientIP()
	}

	// Try to get from context value (set by middleware)
	if ip, ok := ctx.Value("client_ip").(string); ok {
		return ip
	}

	return ""
}

// GetLoginFromContext extracts the login from the session artifact in context
func GetLoginFromContext(ctx context.Context) string {
	// Try to extract from Gin context first
	if ginCtx, ok := ctx.(*gin.Context); ok {
		if artifactVal, exists := ginCtx.Get("session"); exists {
			if artifact, ok := artifactVal.(*session.Artifact); ok {
				return artifact.Login
			}
		}
	}

	return ""
}
