package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/MattPM-ai/matt-git-review-sub002/internal/metrics"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/middleware"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/models"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/services"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/session"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/token"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/util"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles token login, logout and the login/error pages
type AuthHandler struct {
	validator     *token.Validator
	bridge        *session.Bridge
	users         *services.UserService
	audit         *services.AuditService
	metrics       metrics.Recorder
	githubEnabled bool
	baseURL       string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	validator *token.Validator,
	bridge *session.Bridge,
	users *services.UserService,
	audit *services.AuditService,
	m metrics.Recorder,
	githubEnabled bool,
	baseURL string,
) *AuthHandler {
	return &AuthHandler{
		validator:     validator,
		bridge:        bridge,
		users:         users,
		audit:         audit,
		metrics:       m,
		githubEnabled: githubEnabled,
		baseURL:       baseURL,
	}
}

// tokenLoginRequest is the JSON body of POST /api/auth/token-login
type tokenLoginRequest struct {
	JWTToken string `json:"jwtToken"`
	OrgName  string `json:"orgName"`
}

// TokenLogin exchanges an organization token for a session cookie.
// Responses: 400 missing fields, 401 invalid token, 403 org mismatch,
// 500 internal error, 200 {"success": true} with the session cookie set.
func (h *AuthHandler) TokenLogin(c *gin.Context) {
	var req tokenLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.JWTToken == "" || req.OrgName == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "jwtToken and orgName are required",
		})
		return
	}

	claims, err := h.validator.Validate(req.JWTToken)
	if err != nil {
		reason := token.ValidationMessage(err)
		h.metrics.RecordTokenLogin(false)
		h.audit.Log(c, services.AuditLogEntry{
			EventType:    models.EventTokenSignInDenied,
			Severity:     models.SeverityWarning,
			ResourceType: models.ResourceOrganization,
			ResourceName: req.OrgName,
			Action:       "token login rejected",
			Success:      false,
			ErrorMessage: reason,
		})
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_token",
			"message": reason,
		})
		return
	}

	artifact, signed, err := h.bridge.Bind(claims, req.OrgName)
	if err != nil {
		if errors.Is(err, session.ErrOrgMismatch) {
			h.metrics.RecordTokenLogin(false)
			h.audit.Log(c, services.AuditLogEntry{
				EventType:     models.EventTokenSignInDenied,
				Severity:      models.SeverityWarning,
				ActorUsername: claims.Username,
				ResourceType:  models.ResourceOrganization,
				ResourceName:  req.OrgName,
				Action:        "token login rejected for foreign organization",
				Success:       false,
				ErrorMessage:  "token is scoped to a different organization",
			})
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "access_denied",
				"message": "token is scoped to a different organization",
			})
			return
		}

		log.Printf("[Auth] token login bind failed: %v", err)
		h.metrics.RecordTokenLogin(false)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "failed to create session",
		})
		return
	}

	if _, err := h.users.SyncTokenUser(c, claims); err != nil {
		log.Printf("[Auth] user sync failed for %s: %v", claims.Username, err)
	}

	h.bridge.SetSession(c, signed)
	h.metrics.RecordTokenLogin(true)
	h.metrics.RecordSessionBound(session.SourceOrgToken)
	h.audit.Log(c, services.AuditLogEntry{
		EventType:     models.EventTokenSignIn,
		Severity:      models.SeverityInfo,
		ActorUserID:   artifact.UserID,
		ActorUsername: artifact.Login,
		ResourceType:  models.ResourceSession,
		ResourceName:  artifact.Organization,
		Action:        "token login",
		Success:       true,
	})

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Logout clears the session cookie
func (h *AuthHandler) Logout(c *gin.Context) {
	var sessionAge time.Duration
	var login string
	if artifact, err := h.bridge.SessionFrom(c); err == nil {
		sessionAge = time.Since(artifact.IssuedAt)
		login = artifact.Login
	}

	h.bridge.ClearSession(c)
	h.bridge.ClearStaging(c)
	h.metrics.RecordLogout(sessionAge)
	h.audit.Log(c, services.AuditLogEntry{
		EventType:     models.EventLogout,
		Severity:      models.SeverityInfo,
		ActorUsername: login,
		ResourceType:  models.ResourceSession,
		Action:        "logout",
		Success:       true,
	})

	// Browser form posts get a redirect, API clients get JSON
	if c.GetHeader("Accept") == "application/json" {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

// LoginPage renders the sign-in page
func (h *AuthHandler) LoginPage(c *gin.Context) {
	redirect := c.Query("redirect")
	if !util.IsRedirectSafe(redirect, h.baseURL) {
		redirect = ""
	}

	c.HTML(http.StatusOK, "login.html", gin.H{
		"Title":         "Sign in",
		"GitHubEnabled": h.githubEnabled,
		"Redirect":      redirect,
	})
}

// Human-readable labels for machine-readable error codes
var errorCodeLabels = map[string]string{
	middleware.ErrorCodeAccessDenied: "Access denied: this link belongs to a different organization.",
	middleware.ErrorCodeInvalidToken: "The access link is invalid or has expired.",
}

// ErrorPage renders the error page; the code stays machine-readable in the
// markup so scripted clients can branch on it
func (h *AuthHandler) ErrorPage(c *gin.Context) {
	code := c.Query("error")
	label, known := errorCodeLabels[code]
	if !known {
		label = "An unexpected error occurred."
	}

	c.HTML(http.StatusOK, "error.html", gin.H{
		"Title":     "Error",
		"Code":      code,
		"CodeLabel": label,
		"Message":   c.Query("message"),
	})
}
