package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Auth source markers recorded in the artifact
const (
	SourceGitHub   = "github"
	SourceOrgToken = "org_token"
)

// Identity is the projection of a user carried inside a session artifact.
// It is all a page handler needs to render the navbar and attribute actions.
type Identity struct {
	UserID    string
	Login     string
	Name      string
	AvatarURL string
	HTMLURL   string
}

// Artifact is this system's internally signed proof of authentication. It is
// self-contained and independently verifiable: no server-side session state
// exists beyond the signed cookie that carries it.
type Artifact struct {
	Identity
	Organization string
	Source       string // "github" or "org_token"
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// signArtifact encodes an artifact as an HS256 JWT
func signArtifact(a *Artifact, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", ErrNoSigningSecret
	}

	claims := jwt.MapClaims{
		"sub":        a.Identity.UserID,
		"login":      a.Identity.Login,
		"name":       a.Identity.Name,
		"avatar_url": a.Identity.AvatarURL,
		"html_url":   a.Identity.HTMLURL,
		"org":        a.Organization,
		"src":        a.Source,
		"iat":        a.IssuedAt.Unix(),
		"exp":        a.ExpiresAt.Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session artifact: %w", err)
	}
	return signed, nil
}

// parseArtifact decodes and verifies a signed artifact
func parseArtifact(raw string, secret []byte) (*Artifact, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredArtifact
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidArtifact
	}

	a := &Artifact{}
	a.Identity.UserID, _ = claims["sub"].(string)
	a.Identity.Login, _ = claims["login"].(string)
	a.Identity.Name, _ = claims["name"].(string)
	a.Identity.AvatarURL, _ = claims["avatar_url"].(string)
	a.Identity.HTMLURL, _ = claims["html_url"].(string)
	a.Organization, _ = claims["org"].(string)
	a.Source, _ = claims["src"].(string)

	if a.Identity.UserID == "" || a.Source == "" {
		return nil, ErrInvalidArtifact
	}

	if iat, ok := claims["iat"].(float64); ok {
		a.IssuedAt = time.Unix(int64(iat), 0)
	}
	if exp, ok := claims["exp"].(float64); ok {
		a.ExpiresAt = time.Unix(int64(exp), 0)
	}

	return a, nil
}
