package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Validator verifies externally issued organization tokens.
// Validation is a pure check: no side effects, no storage access.
type Validator struct {
	secret []byte
}

// NewValidator creates a validator that verifies HS256 signatures with the
// given shared secret.
func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

// Validate parses and verifies a raw token string and returns its decoded
// claims. Signature, expiry and claim shape are all checked; a token whose
// organization or subject claim is absent is rejected even when the
// signature verifies.
func (v *Validator) Validate(raw string) (*OrgClaims, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}

	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}

	if !tok.Valid {
		return nil, ErrSignatureInvalid
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", ErrMalformedToken)
	}

	sub, _ := claims["sub"].(string)
	org, _ := claims["org"].(string)
	if sub == "" || org == "" {
		return nil, fmt.Errorf("%w: sub and org are required", ErrMissingClaims)
	}

	username, _ := claims["username"].(string)
	if username == "" {
		username = sub
	}

	result := &OrgClaims{
		Subject:      sub,
		Username:     username,
		Organization: org,
	}
	result.Name, _ = claims["name"].(string)
	result.AvatarURL, _ = claims["avatar_url"].(string)
	result.ProfileURL, _ = claims["html_url"].(string)

	if exp, ok := claims["exp"].(float64); ok {
		result.ExpiresAt = time.Unix(int64(exp), 0)
	}

	return result, nil
}
