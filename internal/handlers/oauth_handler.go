package handlers

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"

	"github.com/MattPM-ai/matt-git-review-sub002/internal/auth"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/metrics"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/models"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/services"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/session"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/util"

	ginsessions "github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

const oauthProviderGitHub = "github"

// OAuthHandler handles the GitHub OAuth web flow
type OAuthHandler struct {
	provider   *auth.GitHubProvider
	bridge     *session.Bridge
	users      *services.UserService
	audit      *services.AuditService
	metrics    metrics.Recorder
	httpClient *http.Client // Custom HTTP client for OAuth requests
	defaultOrg string
	baseURL    string
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(
	provider *auth.GitHubProvider,
	bridge *session.Bridge,
	users *services.UserService,
	audit *services.AuditService,
	m metrics.Recorder,
	httpClient *http.Client,
	defaultOrg string,
	baseURL string,
) *OAuthHandler {
	return &OAuthHandler{
		provider:   provider,
		bridge:     bridge,
		users:      users,
		audit:      audit,
		metrics:    m,
		httpClient: httpClient,
		defaultOrg: defaultOrg,
		baseURL:    baseURL,
	}
}

// GitHubLogin redirects the user to GitHub's authorization page
func (h *OAuthHandler) GitHubLogin(c *gin.Context) {
	if h.provider == nil {
		h.renderError(c, http.StatusBadRequest,
			"GitHub sign-in is not configured on this server.")
		return
	}

	// Generate state for CSRF protection
	state, err := generateRandomState(32)
	if err != nil {
		log.Printf("[OAuth] failed to generate state: %v", err)
		h.renderError(c, http.StatusInternalServerError,
			"Failed to initiate GitHub sign-in.")
		return
	}

	// The organization the session will be bound to; a specific login link
	// can name one, otherwise the configured default applies
	org := c.Query("org")
	if org == "" {
		org = h.defaultOrg
	}

	sess := ginsessions.Default(c)
	sess.Set("oauth_state", state)
	sess.Set("oauth_org", org)

	if redirect := c.Query("redirect"); util.IsRedirectSafe(redirect, h.baseURL) && redirect != "" {
		sess.Set("oauth_redirect", redirect)
	}

	if err := sess.Save(); err != nil {
		log.Printf("[OAuth] failed to save session: %v", err)
		h.renderError(c, http.StatusInternalServerError,
			"Failed to initiate GitHub sign-in.")
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, h.provider.GetAuthURL(state))
}

// GitHubCallback completes the OAuth flow and binds a dashboard session
func (h *OAuthHandler) GitHubCallback(c *gin.Context) {
	if h.provider == nil {
		h.renderError(c, http.StatusBadRequest,
			"GitHub sign-in is not configured on this server.")
		return
	}

	sess := ginsessions.Default(c)
	savedState := sess.Get("oauth_state")
	if savedState == nil {
		h.renderError(c, http.StatusBadRequest,
			"Sign-in session expired or invalid. Please try again.")
		return
	}

	if c.Query("state") != savedState.(string) {
		h.metrics.RecordOAuthCallback(oauthProviderGitHub, false)
		h.renderError(c, http.StatusBadRequest,
			"State validation failed. Please try again.")
		return
	}

	org, _ := sess.Get("oauth_org").(string)
	redirect, _ := sess.Get("oauth_redirect").(string)
	sess.Delete("oauth_state")
	sess.Delete("oauth_org")
	sess.Delete("oauth_redirect")
	if err := sess.Save(); err != nil {
		log.Printf("[OAuth] failed to clear session state: %v", err)
	}

	// Use custom HTTP client for OAuth requests
	ctx := c.Request.Context()
	if h.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, h.httpClient)
	}

	oauthToken, err := h.provider.ExchangeCode(ctx, c.Query("code"))
	if err != nil {
		log.Printf("[OAuth] failed to exchange code: %v", err)
		h.metrics.RecordOAuthCallback(oauthProviderGitHub, false)
		h.renderError(c, http.StatusInternalServerError,
			"Failed to exchange the authorization code with GitHub.")
		return
	}

	info, err := h.provider.GetUserInfo(ctx, oauthToken)
	if err != nil {
		log.Printf("[OAuth] failed to get user info: %v", err)
		h.metrics.RecordOAuthCallback(oauthProviderGitHub, false)
		h.renderError(c, http.StatusInternalServerError,
			"Failed to retrieve your GitHub profile.")
		return
	}

	user, err := h.users.SyncGitHubUser(c.Request.Context(), info, org)
	if err != nil {
		log.Printf("[OAuth] user sync failed: %v", err)
		h.metrics.RecordOAuthCallback(oauthProviderGitHub, false)
		h.renderError(c, http.StatusInternalServerError,
			"Unable to sign you in at this time. Please try again later.")
		return
	}

	artifact, signed, err := h.bridge.BindIdentity(session.Identity{
		UserID:    info.UserID,
		Login:     info.Login,
		Name:      info.Name,
		AvatarURL: info.AvatarURL,
		HTMLURL:   info.HTMLURL,
	}, org)
	if err != nil {
		log.Printf("[OAuth] session bind failed: %v", err)
		h.metrics.RecordOAuthCallback(oauthProviderGitHub, false)
		h.renderError(c, http.StatusInternalServerError,
			"Unable to sign you in at this time. Please try again later.")
		return
	}

	h.bridge.SetSession(c, signed)
	h.metrics.RecordOAuthCallback(oauthProviderGitHub, true)
	h.metrics.RecordSessionBound(session.SourceGitHub)
	h.audit.Log(c, services.AuditLogEntry{
		EventType:     models.EventGitHubSignIn,
		Severity:      models.SeverityInfo,
		ActorUserID:   user.ID,
		ActorUsername: user.Login,
		ResourceType:  models.ResourceSession,
		ResourceName:  artifact.Organization,
		Action:        "github sign-in",
		Success:       true,
	})

	target := "/org/" + org
	if org == "" {
		target = "/login"
	}
	if redirect != "" {
		target = redirect
	}
	c.Redirect(http.StatusFound, target)
}

// renderError renders the error page with a human-readable message only;
// OAuth failures have no machine-readable code contract
func (h *OAuthHandler) renderError(c *gin.Context, status int, message string) {
	c.HTML(status, "error.html", gin.H{
		"Title":     "Error",
		"Code":      "",
		"CodeLabel": "GitHub sign-in failed.",
		"Message":   message,
	})
}

// generateRandomState generates a random state string for OAuth CSRF protection
func generateRandomState(length int64) (string, error) {
	bytes, err := util.CryptoRandomBytes(length)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
