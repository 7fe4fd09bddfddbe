package handlers

import (
	"errors"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/MattPM-ai/matt-git-review-sub002/internal/feed"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/mattapi"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/metrics"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/middleware"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/models"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/services"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// PagesHandler renders the org-scoped dashboard pages backed by the Matt API
type PagesHandler struct {
	api     *mattapi.Client
	audit   *services.AuditService
	metrics metrics.Recorder
}

// NewPagesHandler creates a new pages handler
func NewPagesHandler(
	api *mattapi.Client,
	audit *services.AuditService,
	m metrics.Recorder,
) *PagesHandler {
	return &PagesHandler{api: api, audit: audit, metrics: m}
}

// activityFilterFromQuery parses the feed filter controls
func activityFilterFromQuery(c *gin.Context) (mattapi.ActivityFilter, gin.H) {
	filter := mattapi.ActivityFilter{}
	view := gin.H{
		"Kind":  c.Query("kind"),
		"User":  c.Query("user"),
		"Since": c.Query("since"),
		"Until": c.Query("until"),
	}

	switch kind := feed.Kind(c.Query("kind")); kind {
	case feed.KindCommit, feed.KindIssue, feed.KindPull:
		filter.Kinds = []feed.Kind{kind}
	default:
		view["Kind"] = ""
	}

	filter.User = c.Query("user")

	if since, err := time.Parse(dateLayout, c.Query("since")); err == nil {
		filter.Since = since
	} else {
		view["Since"] = ""
	}
	if until, err := time.Parse(dateLayout, c.Query("until")); err == nil {
		// The until date is inclusive
		filter.Until = until.Add(24*time.Hour - time.Second)
	} else {
		view["Until"] = ""
	}

	return filter, view
}

// Activity renders the organization activity feed
func (h *PagesHandler) Activity(c *gin.Context) {
	org := c.Param("org")
	artifact, _ := middleware.SessionFromContext(c)

	cfg, err := h.fetchOrgConfig(c, org)
	if err != nil {
		h.renderBackendError(c, err)
		return
	}

	filter, filterView := activityFilterFromQuery(c)

	start := time.Now()
	activities, err := h.api.FetchAllActivity(c.Request.Context(), org, filter)
	h.metrics.RecordBackendCall("activity", time.Since(start), err == nil)
	if err != nil {
		h.renderBackendError(c, err)
		return
	}

	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].CreatedAt.After(activities[j].CreatedAt)
	})

	c.HTML(http.StatusOK, "activity.html", gin.H{
		"Title":          cfg.DisplayName,
		"Org":            org,
		"OrgDisplayName": displayName(cfg, org),
		"User":           artifact,
		"Members":        cfg.Members,
		"Filter":         filterView,
		"Activities":     activities,
	})
}

// contribRow is one member's aggregate line on the contributions page
type contribRow struct {
	Login     string
	AvatarURL string
	Commits   int
	Issues    int
	Pulls     int
	Latest    *feed.Activity
}

// Contributions renders the per-member contribution summary
func (h *PagesHandler) Contributions(c *gin.Context) {
	org := c.Param("org")
	artifact, _ := middleware.SessionFromContext(c)

	cfg, err := h.fetchOrgConfig(c, org)
	if err != nil {
		h.renderBackendError(c, err)
		return
	}

	start := time.Now()
	activities, err := h.api.FetchAllActivity(c.Request.Context(), org, mattapi.ActivityFilter{})
	h.metrics.RecordBackendCall("activity", time.Since(start), err == nil)
	if err != nil {
		h.renderBackendError(c, err)
		return
	}

	avatars := make(map[string]string, len(cfg.Members))
	for _, member := range cfg.Members {
		avatars[member.Login] = member.AvatarURL
	}

	byAuthor := make(map[string][]feed.Activity)
	for _, activity := range activities {
		byAuthor[activity.Author] = append(byAuthor[activity.Author], activity)
	}

	rows := make([]contribRow, 0, len(byAuthor))
	for author, list := range byAuthor {
		row := contribRow{Login: author, AvatarURL: avatars[author]}
		for _, activity := range list {
			switch activity.Kind {
			case feed.KindCommit:
				row.Commits++
			case feed.KindIssue:
				row.Issues++
			case feed.KindPull:
				row.Pulls++
			}
		}
		if latest, ok := feed.LatestActivity(list); ok {
			row.Latest = &latest
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		ti := rows[i].Commits + rows[i].Issues + rows[i].Pulls
		tj := rows[j].Commits + rows[j].Issues + rows[j].Pulls
		if ti != tj {
			return ti > tj
		}
		return rows[i].Login < rows[j].Login
	})

	c.HTML(http.StatusOK, "contributions.html", gin.H{
		"Title":          "Contributions",
		"Org":            org,
		"OrgDisplayName": displayName(cfg, org),
		"User":           artifact,
		"Rows":           rows,
	})
}

// Standup renders the standup report for one day
func (h *PagesHandler) Standup(c *gin.Context) {
	org := c.Param("org")
	artifact, _ := middleware.SessionFromContext(c)

	date := c.Query("date")
	if _, err := time.Parse(dateLayout, date); err != nil {
		date = time.Now().Format(dateLayout)
	}

	cfg, err := h.fetchOrgConfig(c, org)
	if err != nil {
		h.renderBackendError(c, err)
		return
	}

	start := time.Now()
	report, err := h.api.GetStandupReport(c.Request.Context(), org, date)
	h.metrics.RecordBackendCall("standup", time.Since(start), err == nil)
	if err != nil {
		// A day without a report renders as an empty page, not an error
		if errors.Is(err, mattapi.ErrNotFound) {
			report = &mattapi.StandupReport{Org: org, Date: date}
		} else {
			h.renderBackendError(c, err)
			return
		}
	}

	c.HTML(http.StatusOK, "standup.html", gin.H{
		"Title":          "Standup",
		"Org":            org,
		"OrgDisplayName": displayName(cfg, org),
		"User":           artifact,
		"Date":           date,
		"Report":         report,
	})
}

// Performance renders the aggregate performance report
func (h *PagesHandler) Performance(c *gin.Context) {
	org := c.Param("org")
	artifact, _ := middleware.SessionFromContext(c)

	period := c.Query("period")
	switch period {
	case "week", "month", "quarter":
	default:
		period = "week"
	}

	cfg, err := h.fetchOrgConfig(c, org)
	if err != nil {
		h.renderBackendError(c, err)
		return
	}

	start := time.Now()
	report, err := h.api.GetPerformanceReport(c.Request.Context(), org, period)
	h.metrics.RecordBackendCall("performance", time.Since(start), err == nil)
	if err != nil {
		h.renderBackendError(c, err)
		return
	}

	c.HTML(http.StatusOK, "performance.html", gin.H{
		"Title":          "Performance",
		"Org":            org,
		"OrgDisplayName": displayName(cfg, org),
		"User":           artifact,
		"Period":         period,
		"Report":         report,
	})
}

// Subscriptions renders the current user's report subscriptions
func (h *PagesHandler) Subscriptions(c *gin.Context) {
	org := c.Param("org")
	artifact, _ := middleware.SessionFromContext(c)
	if artifact == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	start := time.Now()
	subs, err := h.api.ListSubscriptions(c.Request.Context(), org, artifact.Login)
	h.metrics.RecordBackendCall("subscriptions", time.Since(start), err == nil)
	if err != nil {
		h.renderBackendError(c, err)
		return
	}

	c.HTML(http.StatusOK, "subscriptions.html", gin.H{
		"Title":         "Subscriptions",
		"Org":           org,
		"User":          artifact,
		"Subscriptions": subs,
		"Email":         "",
	})
}

// Subscribe creates a report subscription for the current user
func (h *PagesHandler) Subscribe(c *gin.Context) {
	org := c.Param("org")
	artifact, _ := middleware.SessionFromContext(c)
	if artifact == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	report := c.PostForm("report")
	frequency := c.PostForm("frequency")
	email := c.PostForm("email")
	if report == "" || frequency == "" || email == "" {
		c.Redirect(http.StatusFound, "/org/"+org+"/subscriptions")
		return
	}

	start := time.Now()
	created, err := h.api.CreateSubscription(c.Request.Context(), org, mattapi.Subscription{
		UserLogin: artifact.Login,
		Email:     email,
		Report:    report,
		Frequency: frequency,
	})
	h.metrics.RecordBackendCall("subscriptions", time.Since(start), err == nil)
	if err != nil {
		h.renderBackendError(c, err)
		return
	}

	h.audit.Log(c, services.AuditLogEntry{
		EventType:     models.EventSubscriptionCreated,
		Severity:      models.SeverityInfo,
		ActorUserID:   artifact.UserID,
		ActorUsername: artifact.Login,
		ResourceType:  models.ResourceSubscription,
		ResourceID:    created.ID,
		ResourceName:  org,
		Action:        "subscription created",
		Success:       true,
		Details: models.AuditDetails{
			"report":    report,
			"frequency": frequency,
		},
	})

	c.Redirect(http.StatusFound, "/org/"+org+"/subscriptions")
}

// Unsubscribe deletes a report subscription
func (h *PagesHandler) Unsubscribe(c *gin.Context) {
	org := c.Param("org")
	artifact, _ := middleware.SessionFromContext(c)
	if artifact == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	subID := c.Param("id")

	start := time.Now()
	err := h.api.DeleteSubscription(c.Request.Context(), org, subID)
	h.metrics.RecordBackendCall("subscriptions", time.Since(start), err == nil)
	if err != nil && !errors.Is(err, mattapi.ErrNotFound) {
		h.renderBackendError(c, err)
		return
	}

	h.audit.Log(c, services.AuditLogEntry{
		EventType:     models.EventSubscriptionDeleted,
		Severity:      models.SeverityInfo,
		ActorUserID:   artifact.UserID,
		ActorUsername: artifact.Login,
		ResourceType:  models.ResourceSubscription,
		ResourceID:    subID,
		ResourceName:  org,
		Action:        "subscription deleted",
		Success:       true,
	})

	c.Redirect(http.StatusFound, "/org/"+org+"/subscriptions")
}

// fetchOrgConfig wraps the org config lookup with backend metrics
func (h *PagesHandler) fetchOrgConfig(c *gin.Context, org string) (mattapi.OrgConfig, error) {
	start := time.Now()
	cfg, err := h.api.GetOrgConfig(c.Request.Context(), org)
	h.metrics.RecordBackendCall("org_config", time.Since(start), err == nil)
	return cfg, err
}

func displayName(cfg mattapi.OrgConfig, org string) string {
	if cfg.DisplayName != "" {
		return cfg.DisplayName
	}
	return org
}

// renderBackendError renders a user-facing page for Matt API failures
func (h *PagesHandler) renderBackendError(c *gin.Context, err error) {
	log.Printf("[Pages] backend request failed: %v", err)

	message := "The review backend is temporarily unavailable. Please try again."
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, mattapi.ErrNotFound):
		message = "This organization is not known to the review backend."
		status = http.StatusNotFound
	case errors.Is(err, mattapi.ErrRequestRejected):
		message = "The review backend rejected the request."
		status = http.StatusBadGateway
	}

	c.HTML(status, "error.html", gin.H{
		"Title":     "Error",
		"Code":      "",
		"CodeLabel": "Backend error.",
		"Message":   message,
	})
}
