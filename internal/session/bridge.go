package session

import (
	"net/http"
	"time"

	"github.com/MattPM-ai/matt-git-review-sub002/internal/token"

	"github.com/gin-gonic/gin"
)

// Cookie names
const (
	SessionCookie     = "mgr_session"
	StagedTokenCookie = "mgr_staged_token"
	StagedOrgCookie   = "mgr_staged_org"
)

// Staged is the first state of the auth bridge: a raw org token and target
// organization parked in short-lived, script-readable cookies, not yet
// validated into a session. Staging never grants access by itself; the token
// is validated again at bind time.
type Staged struct {
	Token        string
	Organization string
	ExpiresAt    time.Time
}

// Expired reports whether the staging window has passed
func (s *Staged) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Bridge converts external credentials into bound session artifacts and
// manages the cookies that carry both states.
type Bridge struct {
	validator     *token.Validator
	sessionSecret []byte
	sessionTTL    time.Duration
	stagingTTL    time.Duration
	secureCookies bool
}

// NewBridge creates a session bridge. secureCookies should be true in
// production so cookies require HTTPS transport.
func NewBridge(
	validator *token.Validator,
	sessionSecret string,
	sessionTTL, stagingTTL time.Duration,
	secureCookies bool,
) *Bridge {
	return &Bridge{
		validator:     validator,
		sessionSecret: []byte(sessionSecret),
		sessionTTL:    sessionTTL,
		stagingTTL:    stagingTTL,
		secureCookies: secureCookies,
	}
}

// Bind converts validated org-token claims into a bound session artifact.
// The org match is re-checked here so an artifact can never be created for a
// token scoped to a different organization, regardless of caller mistakes.
func (b *Bridge) Bind(claims *token.OrgClaims, org string) (*Artifact, string, error) {
	if claims.Organization != org {
		return nil, "", ErrOrgMismatch
	}

	now := time.Now()
	artifact := &Artifact{
		Identity: Identity{
			UserID:    claims.Subject,
			Login:     claims.Username,
			Name:      claims.Name,
			AvatarURL: claims.AvatarURL,
			HTMLURL:   claims.ProfileURL,
		},
		Organization: org,
		Source:       SourceOrgToken,
		IssuedAt:     now,
		// The artifact's window is fixed and independent of the external
		// token's own expiry.
		ExpiresAt: now.Add(b.sessionTTL),
	}

	signed, err := signArtifact(artifact, b.sessionSecret)
	if err != nil {
		return nil, "", err
	}
	return artifact, signed, nil
}

// BindIdentity creates a bound session artifact for an identity obtained
// through OAuth (no org token involved).
func (b *Bridge) BindIdentity(identity Identity, org string) (*Artifact, string, error) {
	now := time.Now()
	artifact := &Artifact{
		Identity:     identity,
		Organization: org,
		Source:       SourceGitHub,
		IssuedAt:     now,
		ExpiresAt:    now.Add(b.sessionTTL),
	}

	signed, err := signArtifact(artifact, b.sessionSecret)
	if err != nil {
		return nil, "", err
	}
	return artifact, signed, nil
}

// Finalize completes the staged → bound transition: the staged token is
// re-validated, matched against the staged organization, and bound.
func (b *Bridge) Finalize(staged *Staged) (*Artifact, string, error) {
	if staged.Expired() {
		return nil, "", ErrStagingExpired
	}

	claims, err := b.validator.Validate(staged.Token)
	if err != nil {
		return nil, "", err
	}

	return b.Bind(claims, staged.Organization)
}

// Validate re-verifies a signed artifact from a session cookie
func (b *Bridge) Validate(raw string) (*Artifact, error) {
	return parseArtifact(raw, b.sessionSecret)
}

// SetSession writes the bound session cookie. HttpOnly keeps the artifact
// out of script reach; SameSite=Lax is required for the OAuth callback.
func (b *Bridge) SetSession(c *gin.Context, signed string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, signed, int(b.sessionTTL.Seconds()), "/", "", b.secureCookies, true)
}

// ClearSession removes the bound session cookie
func (b *Bridge) ClearSession(c *gin.Context) {
	c.SetCookie(SessionCookie, "", -1, "/", "", b.secureCookies, true)
}

// SessionFrom reads and verifies the bound session cookie, if any
func (b *Bridge) SessionFrom(c *gin.Context) (*Artifact, error) {
	raw, err := c.Cookie(SessionCookie)
	if err != nil || raw == "" {
		return nil, ErrInvalidArtifact
	}
	return b.Validate(raw)
}

// Stage parks a token and organization in staging cookies for later
// finalization. The cookies are deliberately script-readable so a page can
// pick them up, and short-lived so the raw token is not retained.
func (b *Bridge) Stage(c *gin.Context, rawToken, org string) {
	maxAge := int(b.stagingTTL.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(StagedTokenCookie, rawToken, maxAge, "/", "", b.secureCookies, false)
	c.SetCookie(StagedOrgCookie, org, maxAge, "/", "", b.secureCookies, false)
}

// NewStaged builds a staged pair with a fresh staging window, for tokens
// arriving through the query string rather than staging cookies
func (b *Bridge) NewStaged(rawToken, org string) *Staged {
	return &Staged{
		Token:        rawToken,
		Organization: org,
		ExpiresAt:    time.Now().Add(b.stagingTTL),
	}
}

// StagedFrom reads the staged token/org pair from cookies, if present. The
// browser enforces the staging window through the cookie max-age.
func (b *Bridge) StagedFrom(c *gin.Context) (*Staged, bool) {
	rawToken, err := c.Cookie(StagedTokenCookie)
	if err != nil || rawToken == "" {
		return nil, false
	}
	org, err := c.Cookie(StagedOrgCookie)
	if err != nil || org == "" {
		return nil, false
	}
	return b.NewStaged(rawToken, org), true
}

// ClearStaging removes the staging cookies
func (b *Bridge) ClearStaging(c *gin.Context) {
	c.SetCookie(StagedTokenCookie, "", -1, "/", "", b.secureCookies, false)
	c.SetCookie(StagedOrgCookie, "", -1, "/", "", b.secureCookies, false)
}
