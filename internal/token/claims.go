package token

import "time"

// OrgClaims holds the decoded contents of an externally issued organization
// token. The token is a capability scoped to a single organization: holders
// may view that organization's dashboard without going through OAuth.
type OrgClaims struct {
	Subject      string // stable user identifier assigned by the issuer
	Username     string // login name, used for display and user upsert
	Organization string // organization the token grants access to
	Name         string // optional display name
	AvatarURL    string // optional avatar URL
	ProfileURL   string // optional profile URL
	ExpiresAt    time.Time
}
