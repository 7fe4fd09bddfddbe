package mattapi

import (
	"time"

	"github.com/MattPM-ai/matt-git-review-sub002/internal/feed"
)

// OrgConfig is the organization configuration served by the Matt API
type OrgConfig struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Timezone    string   `json:"timezone"`
	Repos       []string `json:"repos"`
	Members     []Member `json:"members"`
}

// Member is one organization member tracked by the backend
type Member struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// ActivityFilter narrows an activity query
type ActivityFilter struct {
	Kinds   []feed.Kind // empty means all kinds
	User    string      // filter to a single author login
	Since   time.Time
	Until   time.Time
	Page    int
	PerPage int
}

// ActivityPage is one page of activity records. Pages can overlap when
// records land between fetches; callers merge pages with feed.MergeActivities.
type ActivityPage struct {
	Items   []feed.Activity `json:"items"`
	Page    int             `json:"page"`
	HasMore bool            `json:"has_more"`
}

// StandupEntry is one member's slice of a standup report
type StandupEntry struct {
	Login     string   `json:"login"`
	Yesterday []string `json:"yesterday"`
	Today     []string `json:"today"`
	Blockers  []string `json:"blockers"`
}

// StandupReport is the generated standup summary for one day
type StandupReport struct {
	Org     string         `json:"org"`
	Date    string         `json:"date"` // YYYY-MM-DD
	Entries []StandupEntry `json:"entries"`
}

// MemberStats is one member's aggregate numbers for a period
type MemberStats struct {
	Login        string `json:"login"`
	Commits      int    `json:"commits"`
	IssuesOpened int    `json:"issues_opened"`
	IssuesClosed int    `json:"issues_closed"`
	PullsOpened  int    `json:"pulls_opened"`
	PullsMerged  int    `json:"pulls_merged"`
	Reviews      int    `json:"reviews"`
}

// PerformanceReport aggregates member activity over a period
type PerformanceReport struct {
	Org     string        `json:"org"`
	Period  string        `json:"period"` // "week", "month", "quarter"
	Members []MemberStats `json:"members"`
}

// Subscription is a standing report delivery for a user
type Subscription struct {
	ID        string    `json:"id"`
	Org       string    `json:"org"`
	UserLogin string    `json:"user_login"`
	Email     string    `json:"email"`
	Report    string    `json:"report"`    // "standup" or "performance"
	Frequency string    `json:"frequency"` // "daily", "weekly", "monthly"
	CreatedAt time.Time `json:"created_at"`
}

// apiError is the error envelope the Matt API returns on failures
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
