package mattapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MattPM-ai/matt-git-review-sub002/internal/cache"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/feed"

	retry "github.com/appleboy/go-httpretry"
)

// maxActivityPages bounds the pagination loop in FetchAllActivity
const maxActivityPages = 50

// Client is a thin wrapper over the Matt API's JSON REST endpoints.
// Authentication headers and retries are handled by the underlying retry
// client; requests abort when the caller's context is cancelled.
type Client struct {
	baseURL     string
	retryClient *retry.Client

	orgConfigCache cache.Cache[OrgConfig]
	orgConfigTTL   time.Duration
}

// New creates a Matt API client. orgConfigCache may be nil to disable
// config caching.
func New(
	baseURL string,
	retryClient *retry.Client,
	orgConfigCache cache.Cache[OrgConfig],
	orgConfigTTL time.Duration,
) *Client {
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		retryClient:    retryClient,
		orgConfigCache: orgConfigCache,
		orgConfigTTL:   orgConfigTTL,
	}
}

// doGet performs a GET request and decodes the JSON response into out
func (c *Client) doGet(ctx context.Context, path string, out any) error {
	resp, err := c.retryClient.Get(ctx, c.baseURL+path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	return c.decodeResponse(resp, out)
}

// doPost performs a POST request with a JSON body and decodes the response
func (c *Client) doPost(ctx context.Context, path string, reqBody, out any) error {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.retryClient.Post(
		ctx,
		c.baseURL+path,
		retry.WithBody("application/json", bytes.NewBuffer(jsonData)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	return c.decodeResponse(resp, out)
}

func (c *Client) decodeResponse(resp *http.Response, out any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response", ErrInvalidResponse)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("%w: HTTP %d - %s", ErrRequestRejected, resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("%w: HTTP %d", ErrRequestRejected, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// GetOrgConfig fetches the organization configuration, using the config
// cache when one is attached.
func (c *Client) GetOrgConfig(ctx context.Context, org string) (OrgConfig, error) {
	fetch := func(ctx context.Context, key string) (OrgConfig, error) {
		var cfg OrgConfig
		err := c.doGet(ctx, "/orgs/"+url.PathEscape(org)+"/config", &cfg)
		return cfg, err
	}

	if c.orgConfigCache == nil {
		return fetch(ctx, org)
	}
	return cache.GetWithFetch(ctx, c.orgConfigCache, "orgconfig:"+org, c.orgConfigTTL, fetch)
}

// ListActivity fetches one page of activity records matching the filter
func (c *Client) ListActivity(
	ctx context.Context,
	org string,
	filter ActivityFilter,
) (*ActivityPage, error) {
	q := url.Values{}
	if len(filter.Kinds) > 0 {
		kinds := make([]string, 0, len(filter.Kinds))
		for _, k := range filter.Kinds {
			kinds = append(kinds, string(k))
		}
		q.Set("kinds", strings.Join(kinds, ","))
	}
	if filter.User != "" {
		q.Set("user", filter.User)
	}
	if !filter.Since.IsZero() {
		q.Set("since", filter.Since.UTC().Format(time.RFC3339))
	}
	if !filter.Until.IsZero() {
		q.Set("until", filter.Until.UTC().Format(time.RFC3339))
	}
	if filter.Page > 0 {
		q.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(filter.PerPage))
	}

	path := "/orgs/" + url.PathEscape(org) + "/activity"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var page ActivityPage
	if err := c.doGet(ctx, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchAllActivity walks every page matching the filter and returns the
// merged feed. Overlapping pages are deduplicated by the records' natural
// identity, so re-fetching is idempotent.
func (c *Client) FetchAllActivity(
	ctx context.Context,
	org string,
	filter ActivityFilter,
) ([]feed.Activity, error) {
	var merged []feed.Activity

	filter.Page = 1
	for i := 0; i < maxActivityPages; i++ {
		page, err := c.ListActivity(ctx, org, filter)
		if err != nil {
			return nil, err
		}

		merged = feed.MergeActivities(merged, page.Items)
		if !page.HasMore {
			break
		}
		filter.Page++
	}

	return merged, nil
}

// GetStandupReport fetches the standup report for a given day.
// date is YYYY-MM-DD; empty means today.
func (c *Client) GetStandupReport(ctx context.Context, org, date string) (*StandupReport, error) {
	path := "/orgs/" + url.PathEscape(org) + "/reports/standup"
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}

	var report StandupReport
	if err := c.doGet(ctx, path, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// GetPerformanceReport fetches the aggregate performance report for a period
func (c *Client) GetPerformanceReport(
	ctx context.Context,
	org, period string,
) (*PerformanceReport, error) {
	path := "/orgs/" + url.PathEscape(org) + "/reports/performance"
	if period != "" {
		path += "?period=" + url.QueryEscape(period)
	}

	var report PerformanceReport
	if err := c.doGet(ctx, path, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListSubscriptions fetches a user's report subscriptions for an organization
func (c *Client) ListSubscriptions(
	ctx context.Context,
	org, userLogin string,
) ([]Subscription, error) {
	path := "/orgs/" + url.PathEscape(org) + "/subscriptions?user=" + url.QueryEscape(userLogin)

	var subs []Subscription
	if err := c.doGet(ctx, path, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// CreateSubscription registers a new report subscription
func (c *Client) CreateSubscription(
	ctx context.Context,
	org string,
	sub Subscription,
) (*Subscription, error) {
	var created Subscription
	err := c.doPost(ctx, "/orgs/"+url.PathEscape(org)+"/subscriptions", sub, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteSubscription removes a report subscription
func (c *Client) DeleteSubscription(ctx context.Context, org, subID string) error {
	path := "/orgs/" + url.PathEscape(org) + "/subscriptions/" + url.PathEscape(subID) + "/delete"
	return c.doPost(ctx, path, struct{}{}, nil)
}
