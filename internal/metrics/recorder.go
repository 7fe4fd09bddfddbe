package metrics

import "time"

// Recorder defines the interface for recording application metrics.
// Implementations: Metrics (Prometheus) and NoopMetrics (disabled).
type Recorder interface {
	// Organization gate
	RecordGateDecision(result string)

	// Authentication
	RecordTokenLogin(success bool)
	RecordOAuthCallback(provider string, success bool)
	RecordSessionBound(source string)
	RecordLogout(sessionAge time.Duration)

	// Backend API
	RecordBackendCall(endpoint string, duration time.Duration, success bool)

	// Rate limiting
	RecordRateLimitExceeded(route string)

	// Gauge setters for periodic updates
	SetKnownUsersCount(authSource string, count int)

	// Database
	RecordDatabaseQueryError(operation string)
}
