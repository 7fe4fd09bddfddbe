package models

import (
	"time"
)

// Auth source constants
const (
	AuthSourceGitHub   = "github"
	AuthSourceOrgToken = "org_token"
)

// User is a dashboard user materialized from either a GitHub OAuth login or
// an organization token sign-in. Identity is owned by the external provider;
// the row keeps a projection for display and audit attribution.
type User struct {
	ID        string `gorm:"primaryKey"`
	Login     string `gorm:"uniqueIndex;not null"`
	Name      string
	AvatarURL string
	HTMLURL   string

	// External identity
	ExternalID string `gorm:"index"`    // provider's user ID or token subject
	AuthSource string `gorm:"not null"` // "github" or "org_token"

	// Last organization the user viewed
	Organization string `gorm:"index"`

	LastSeenAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsTokenIssued returns true if the user signed in with an organization token
func (u *User) IsTokenIssued() bool {
	return u.AuthSource == AuthSourceOrgToken
}
