package middleware

import (
	"log"
	"net/http"
	"net/url"

	"github.com/MattPM-ai/matt-git-review-sub002/internal/metrics"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/models"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/services"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/session"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/util"

	"github.com/gin-gonic/gin"
)

const (
	// ContextSessionKey is the gin context key holding the bound artifact
	ContextSessionKey = "session"
)

// RequireSession guards org-scoped pages. A bound session is loaded into the
// request context, but only for the organization it was issued for; sessions
// bound elsewhere carry no rights here regardless of how they were obtained.
// Without a matching session, an unexpired staged token (from the gate's
// staging cookies or the query string directly) is finalized into a session
// on the spot; otherwise the request is sent to the login page.
func RequireSession(
	bridge *session.Bridge,
	users *services.UserService,
	rec metrics.Recorder,
	audit *services.AuditService,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		org := orgFromPath(c)

		bound, sessionErr := bridge.SessionFrom(c)
		if sessionErr == nil && bound.Organization == org {
			// A raw token riding along with a live session must still be
			// scrubbed from the address bar
			if c.Query("token") != "" {
				bridge.ClearStaging(c)
				clean := util.StripQueryParam(c.Request.URL.String(), "token")
				c.Redirect(http.StatusFound, clean)
				c.Abort()
				return
			}
			if _, ok := bridge.StagedFrom(c); ok {
				bridge.ClearStaging(c)
			}
			c.Set(ContextSessionKey, bound)
			c.Next()
			return
		}

		staged, viaQuery := stagedFromRequest(c, bridge)
		if staged != nil && staged.Organization != org {
			bridge.ClearStaging(c)
			staged = nil
		}
		if staged == nil {
			if sessionErr == nil {
				// Valid session, wrong organization, and no fresh
				// credential for this one
				log.Printf("[Auth] session for %s rejected on org %s (user %s)",
					bound.Organization, org, bound.Login)
				rec.RecordGateDecision("denied_org_mismatch")
				audit.Log(c, services.AuditLogEntry{
					EventType:     models.EventGateRejected,
					Severity:      models.SeverityWarning,
					ActorUserID:   bound.UserID,
					ActorUsername: bound.Login,
					ResourceType:  models.ResourceSession,
					ResourceName:  org,
					Action:        "session scoped to another organization",
					Success:       false,
					RequestPath:   c.Request.URL.Path,
				})
				redirectGateError(c, ErrorCodeAccessDenied, "")
				return
			}
			redirectToLogin(c)
			return
		}

		artifact, signed, err := bridge.Finalize(staged)
		if err != nil {
			log.Printf("[Auth] staged token finalization failed: %v", err)
			bridge.ClearStaging(c)
			redirectToLogin(c)
			return
		}

		bridge.SetSession(c, signed)
		bridge.ClearStaging(c)
		rec.RecordSessionBound(artifact.Source)

		if _, err := users.SyncSessionIdentity(
			c, artifact.Identity, artifact.Organization, artifact.Source,
		); err != nil {
			log.Printf("[Auth] user sync failed for %s: %v", artifact.Login, err)
		}

		audit.Log(c, services.AuditLogEntry{
			EventType:     models.EventSessionBound,
			Severity:      models.SeverityInfo,
			ActorUserID:   artifact.UserID,
			ActorUsername: artifact.Login,
			ResourceType:  models.ResourceSession,
			ResourceName:  artifact.Organization,
			Action:        "staged token bound to session",
			Success:       true,
			RequestPath:   c.Request.URL.Path,
		})

		if viaQuery {
			// The raw token must not survive in the address bar or history
			clean := util.StripQueryParam(c.Request.URL.String(), "token")
			c.Redirect(http.StatusFound, clean)
			c.Abort()
			return
		}

		c.Set(ContextSessionKey, artifact)
		c.Next()
	}
}

// stagedFromRequest builds a staged pair from the query string when the gate
// staged this very request, falling back to the staging cookies. Reports
// whether the token came from the query string.
func stagedFromRequest(c *gin.Context, bridge *session.Bridge) (*session.Staged, bool) {
	if rawToken := c.Query("token"); rawToken != "" {
		if org := orgFromPath(c); org != "" {
			return bridge.NewStaged(rawToken, org), true
		}
	}

	if staged, ok := bridge.StagedFrom(c); ok {
		return staged, false
	}
	return nil, false
}

// SessionFromContext returns the bound artifact placed by RequireSession
func SessionFromContext(c *gin.Context) (*session.Artifact, bool) {
	val, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil, false
	}
	artifact, ok := val.(*session.Artifact)
	return artifact, ok
}

func redirectToLogin(c *gin.Context) {
	redirectURL := c.Request.URL.Path
	c.Redirect(http.StatusFound, "/login?redirect="+url.QueryEscape(redirectURL))
	c.Abort()
}
