package token

import "errors"

var (
	// ErrMalformedToken indicates the token could not be parsed at all
	ErrMalformedToken = errors.New("malformed token")

	// ErrSignatureInvalid indicates the token signature does not verify
	ErrSignatureInvalid = errors.New("token signature invalid")

	// ErrExpiredToken indicates the token has expired
	ErrExpiredToken = errors.New("token expired")

	// ErrMissingClaims indicates required claims (subject, organization) are absent
	ErrMissingClaims = errors.New("token missing required claims")
)

// ValidationMessage maps a validation error onto a stable, user-safe reason.
// The message never echoes token content.
func ValidationMessage(err error) string {
	switch {
	case errors.Is(err, ErrExpiredToken):
		return "token has expired"
	case errors.Is(err, ErrSignatureInvalid):
		return "token signature is invalid"
	case errors.Is(err, ErrMissingClaims):
		return "token is missing required claims"
	default:
		return "token is malformed"
	}
}
