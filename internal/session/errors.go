package session

import "errors"

var (
	// ErrNoSigningSecret indicates the session signing secret is not configured
	ErrNoSigningSecret = errors.New("session signing secret unavailable")

	// ErrInvalidArtifact indicates a session cookie that fails to parse or verify
	ErrInvalidArtifact = errors.New("invalid session artifact")

	// ErrExpiredArtifact indicates a session cookie whose validity window passed
	ErrExpiredArtifact = errors.New("session artifact expired")

	// ErrOrgMismatch indicates a token whose embedded organization does not
	// match the organization being bound
	ErrOrgMismatch = errors.New("token organization mismatch")

	// ErrStagingExpired indicates a staged token that outlived its staging window
	ErrStagingExpired = errors.New("staged token expired")
)
