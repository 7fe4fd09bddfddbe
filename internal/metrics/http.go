package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	resultSuccess = "success"
	resultError   = "error"
	resultFailure = "failure"
)

// HTTPMetricsMiddleware creates a Gin middleware that records HTTP metrics
func HTTPMetricsMiddleware(m Recorder) gin.HandlerFunc {
	// If NoopMetrics, return a lightweight middleware that does nothing
	if _, ok := m.(*NoopMetrics); ok {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	// Type assert to concrete Metrics for Prometheus access
	metrics, ok := m.(*Metrics)
	if !ok {
		// Fallback if unknown implementation
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		// Skip metrics endpoint to avoid self-recording
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()

		// Increment in-flight counter
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		// Process request
		c.Next()

		// Record metrics after request completes
		duration := time.Since(start).Seconds()
		method := c.Request.Method
		path := normalizePath(c.FullPath()) // Use route pattern, not actual path
		status := strconv.Itoa(c.Writer.Status())

		// Record request count
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()

		// Record request duration
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// normalizePath converts the actual request path to route pattern
// Returns the route pattern (e.g., "/org/:org") or "unknown" if no match
func normalizePath(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}

// RecordGateDecision records one organization gate outcome
func (m *Metrics) RecordGateDecision(result string) {
	// result: staged, denied_org_mismatch, denied_invalid_token, no_token
	m.GateDecisionsTotal.WithLabelValues(result).Inc()
}

// RecordTokenLogin records an organization token login attempt
func (m *Metrics) RecordTokenLogin(success bool) {
	result := resultSuccess
	if !success {
		result = resultFailure
	}
	m.TokenLoginTotal.WithLabelValues(result).Inc()
}

// RecordOAuthCallback records OAuth callback
func (m *Metrics) RecordOAuthCallback(provider string, success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.AuthOAuthCallbackTotal.WithLabelValues(provider, result).Inc()
}

// RecordSessionBound records a session bound to an identity
func (m *Metrics) RecordSessionBound(source string) {
	m.SessionsBoundTotal.WithLabelValues(source).Inc()
	m.SessionsActive.Inc()
}

// RecordLogout records logout
func (m *Metrics) RecordLogout(sessionAge time.Duration) {
	m.AuthLogoutTotal.Inc()
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(sessionAge.Seconds())
}

// RecordBackendCall records a Matt API backend request
func (m *Metrics) RecordBackendCall(endpoint string, duration time.Duration, success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.BackendRequestsTotal.WithLabelValues(endpoint, result).Inc()
	m.BackendRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRateLimitExceeded records a request rejected by rate limiting
func (m *Metrics) RecordRateLimitExceeded(route string) {
	m.RateLimitExceededTotal.WithLabelValues(route).Inc()
}

// SetKnownUsersCount sets the current count of known users (for periodic updates)
func (m *Metrics) SetKnownUsersCount(authSource string, count int) {
	m.KnownUsers.WithLabelValues(authSource).Set(float64(count))
}

// RecordDatabaseQueryError records a database query error during metric collection
func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}
