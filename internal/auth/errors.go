package auth

import "errors"

var (
	// ErrExchangeFailed is returned when the authorization code exchange fails
	ErrExchangeFailed = errors.New("authorization code exchange failed")

	// ErrUserInfoFailed is returned when the provider user lookup fails
	ErrUserInfoFailed = errors.New("failed to fetch user info")

	// ErrStateMismatch is returned when the OAuth state parameter does not match
	ErrStateMismatch = errors.New("oauth state mismatch")
)
