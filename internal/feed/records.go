package feed

import (
	"fmt"
	"time"
)

// Kind is the type of an activity record
type Kind string

const (
	KindCommit Kind = "commit"
	KindIssue  Kind = "issue"
	KindPull   Kind = "pull"
)

// Activity is one record in the organization activity feed. Records arrive
// from the Matt API in pages that can overlap, so each record carries a
// natural identity used for deduplication when merging fetches.
type Activity struct {
	Kind      Kind      `json:"kind"`
	Repo      string    `json:"repo"`
	SHA       string    `json:"sha,omitempty"`    // commits
	Number    int       `json:"number,omitempty"` // issues and pulls
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Key returns the natural identity of the record: the commit hash for
// commits, repo plus number for issues and pulls.
func (a Activity) Key() string {
	switch a.Kind {
	case KindCommit:
		return string(KindCommit) + ":" + a.SHA
	default:
		return fmt.Sprintf("%s:%s#%d", a.Kind, a.Repo, a.Number)
	}
}

// MergeActivities combines pages of activity records, dropping records whose
// identity already appeared.
func MergeActivities(existing, incoming []Activity) []Activity {
	return Merge(existing, incoming, Activity.Key)
}

// LatestActivity returns the newest record by creation time
func LatestActivity(list []Activity) (Activity, bool) {
	return Latest(list, func(a Activity) time.Time { return a.CreatedAt })
}
