package middleware

import (
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/MattPM-ai/matt-git-review-sub002/internal/metrics"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/models"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/services"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/session"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/token"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/util"

	"github.com/gin-gonic/gin"
)

// Machine-readable error codes surfaced on the error page
const (
	ErrorCodeAccessDenied = "AccessDenied"
	ErrorCodeInvalidToken = "InvalidToken"
)

// Paths the organization gate never inspects
var gateExcludedPrefixes = []string{
	"/api/",
	"/static/",
	"/favicon.ico",
	"/metrics",
	"/health",
	"/auth/",
	"/login",
	"/error",
}

// OrgTokenGate inspects org-scoped page requests for a `token` query
// parameter. A valid token scoped to the requested organization is staged for
// finalization further down the chain; a token for a different organization or
// a token that fails validation redirects to the error page with a
// machine-readable code. Requests without a token pass through unchanged.
func OrgTokenGate(
	validator *token.Validator,
	bridge *session.Bridge,
	rec metrics.Recorder,
	audit *services.AuditService,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range gateExcludedPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		org := orgFromPath(c)
		if org == "" {
			c.Next()
			return
		}

		rawToken := c.Query("token")
		if rawToken == "" {
			rec.RecordGateDecision("no_token")
			c.Next()
			return
		}

		claims, err := validator.Validate(rawToken)
		if err != nil {
			reason := token.ValidationMessage(err)
			log.Printf("[Gate] rejected token for org %s: %s", org, reason)
			rec.RecordGateDecision("denied_invalid_token")
			audit.Log(c, services.AuditLogEntry{
				EventType:    models.EventGateRejected,
				Severity:     models.SeverityWarning,
				ResourceType: models.ResourceOrganization,
				ResourceName: org,
				Action:       "org gate rejected token",
				Success:      false,
				ErrorMessage: reason,
				RequestPath:  path,
			})
			redirectGateError(c, ErrorCodeInvalidToken, reason)
			return
		}

		if claims.Organization != org {
			log.Printf("[Gate] token for org %s used on org %s", claims.Organization, org)
			rec.RecordGateDecision("denied_org_mismatch")
			audit.Log(c, services.AuditLogEntry{
				EventType:     models.EventGateRejected,
				Severity:      models.SeverityWarning,
				ActorUsername: claims.Username,
				ResourceType:  models.ResourceOrganization,
				ResourceName:  org,
				Action:        "org gate rejected cross-org token",
				Success:       false,
				ErrorMessage:  "token is scoped to a different organization",
				RequestPath:   path,
			})
			redirectGateError(c, ErrorCodeAccessDenied, "")
			return
		}

		bridge.Stage(c, rawToken, org)
		rec.RecordGateDecision("staged")
		audit.Log(c, services.AuditLogEntry{
			EventType:     models.EventTokenStaged,
			Severity:      models.SeverityInfo,
			ActorUserID:   claims.Subject,
			ActorUsername: claims.Username,
			ResourceType:  models.ResourceOrganization,
			ResourceName:  org,
			Action:        "org token staged",
			Success:       true,
			RequestPath:   path,
			Details: models.AuditDetails{
				// Hash only; repeated use of the same link stays
				// correlatable without storing the raw token
				"token_hash": util.HashToken(rawToken, org),
			},
		})
		c.Next()
	}
}

// orgFromPath extracts the organization from an /org/:org path. The route
// parameter is preferred; the raw path is parsed when the gate runs before
// route matching.
func orgFromPath(c *gin.Context) string {
	if org := c.Param("org"); org != "" {
		return org
	}

	path := c.Request.URL.Path
	if !strings.HasPrefix(path, "/org/") {
		return ""
	}
	rest := strings.TrimPrefix(path, "/org/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// redirectGateError sends the browser to the error page with a
// machine-readable code and, for validation failures, a reason message
func redirectGateError(c *gin.Context, code, message string) {
	target := "/error?error=" + url.QueryEscape(code)
	if message != "" {
		target += "&message=" + url.QueryEscape(message)
	}
	c.Redirect(http.StatusFound, target)
	c.Abort()
}
