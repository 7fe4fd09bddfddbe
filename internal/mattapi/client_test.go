package mattapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MattPM-ai/matt-git-review-sub002/internal/cache"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/client"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/feed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, serverURL string, withCache bool) *Client {
	t.Helper()

	retryClient, err := client.CreateRetryClient(
		"none", "",
		5*time.Second,
		false,
		1,
		10*time.Millisecond, 10*time.Millisecond,
		"X-API-Secret",
	)
	require.NoError(t, err)

	var configCache cache.Cache[OrgConfig]
	if withCache {
		configCache = cache.NewMemoryCache[OrgConfig]()
	}
	return New(serverURL, retryClient, configCache, time.Minute)
}

func TestClient_GetOrgConfig(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orgs/mattpm/config", r.URL.Path)
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(OrgConfig{
			Name:        "mattpm",
			DisplayName: "MattPM",
			Repos:       []string{"mattpm/app"},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, true)

	cfg, err := c.GetOrgConfig(context.Background(), "mattpm")
	require.NoError(t, err)
	assert.Equal(t, "MattPM", cfg.DisplayName)
	assert.Equal(t, int32(1), hits.Load())

	// Second lookup is served from the config cache
	cfg, err = c.GetOrgConfig(context.Background(), "mattpm")
	require.NoError(t, err)
	assert.Equal(t, "mattpm", cfg.Name)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_GetOrgConfig_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, false)

	_, err := c.GetOrgConfig(context.Background(), "ghost-org")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_ListActivity_Filter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orgs/mattpm/activity", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "commit,pull", q.Get("kinds"))
		assert.Equal(t, "octocat", q.Get("user"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "50", q.Get("per_page"))
		assert.NotEmpty(t, q.Get("since"))

		_ = json.NewEncoder(w).Encode(ActivityPage{
			Items: []feed.Activity{
				{Kind: feed.KindCommit, SHA: "abc", Author: "octocat"},
			},
			Page:    2,
			HasMore: false,
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, false)

	page, err := c.ListActivity(context.Background(), "mattpm", ActivityFilter{
		Kinds:   []feed.Kind{feed.KindCommit, feed.KindPull},
		User:    "octocat",
		Since:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Page:    2,
		PerPage: 50,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "abc", page.Items[0].SHA)
	assert.False(t, page.HasMore)
}

func TestClient_FetchAllActivity_MergesOverlappingPages(t *testing.T) {
	pages := map[string]ActivityPage{
		"1": {
			Items: []feed.Activity{
				{Kind: feed.KindCommit, SHA: "aaa"},
				{Kind: feed.KindIssue, Repo: "mattpm/app", Number: 1},
			},
			Page:    1,
			HasMore: true,
		},
		"2": {
			Items: []feed.Activity{
				// Overlaps with page 1
				{Kind: feed.KindIssue, Repo: "mattpm/app", Number: 1},
				{Kind: feed.KindCommit, SHA: "bbb"},
			},
			Page:    2,
			HasMore: false,
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		_ = json.NewEncoder(w).Encode(pages[page])
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, false)

	merged, err := c.FetchAllActivity(context.Background(), "mattpm", ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, merged, 3)
	assert.Equal(t, "aaa", merged[0].SHA)
	assert.Equal(t, 1, merged[1].Number)
	assert.Equal(t, "bbb", merged[2].SHA)
}

func TestClient_GetStandupReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orgs/mattpm/reports/standup", r.URL.Path)
		assert.Equal(t, "2026-03-02", r.URL.Query().Get("date"))
		_ = json.NewEncoder(w).Encode(StandupReport{
			Org:  "mattpm",
			Date: "2026-03-02",
			Entries: []StandupEntry{
				{Login: "octocat", Today: []string{"review PRs"}},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, false)

	report, err := c.GetStandupReport(context.Background(), "mattpm", "2026-03-02")
	require.NoError(t, err)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, "octocat", report.Entries[0].Login)
}

func TestClient_GetPerformanceReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orgs/mattpm/reports/performance", r.URL.Path)
		assert.Equal(t, "week", r.URL.Query().Get("period"))
		_ = json.NewEncoder(w).Encode(PerformanceReport{
			Org:    "mattpm",
			Period: "week",
			Members: []MemberStats{
				{Login: "octocat", Commits: 12, PullsMerged: 3},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, false)

	report, err := c.GetPerformanceReport(context.Background(), "mattpm", "week")
	require.NoError(t, err)
	require.Len(t, report.Members, 1)
	assert.Equal(t, 12, report.Members[0].Commits)
}

func TestClient_Subscriptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/orgs/mattpm/subscriptions":
			assert.Equal(t, "octocat", r.URL.Query().Get("user"))
			_ = json.NewEncoder(w).Encode([]Subscription{
				{ID: "sub-1", Org: "mattpm", UserLogin: "octocat", Report: "standup"},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/orgs/mattpm/subscriptions":
			var sub Subscription
			require.NoError(t, json.NewDecoder(r.Body).Decode(&sub))
			sub.ID = "sub-2"
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(sub)
		case r.Method == http.MethodPost && r.URL.Path == "/orgs/mattpm/subscriptions/sub-1/delete":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, false)
	ctx := context.Background()

	subs, err := c.ListSubscriptions(ctx, "mattpm", "octocat")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "sub-1", subs[0].ID)

	created, err := c.CreateSubscription(ctx, "mattpm", Subscription{
		UserLogin: "octocat",
		Email:     "octo@example.com",
		Report:    "performance",
		Frequency: "weekly",
	})
	require.NoError(t, err)
	assert.Equal(t, "sub-2", created.ID)
	assert.Equal(t, "performance", created.Report)

	assert.NoError(t, c.DeleteSubscription(ctx, "mattpm", "sub-1"))
}

func TestClient_RequestRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(apiError{Error: "bad_request", Message: "unknown report"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, false)

	_, err := c.GetStandupReport(context.Background(), "mattpm", "not-a-date")
	require.ErrorIs(t, err, ErrRequestRejected)
	assert.Contains(t, err.Error(), "unknown report")
}
