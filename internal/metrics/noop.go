package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

// Organization Gate - noop implementations
func (n *NoopMetrics) RecordGateDecision(result string) {}

// Authentication - noop implementations
func (n *NoopMetrics) RecordTokenLogin(success bool)                     {}
func (n *NoopMetrics) RecordOAuthCallback(provider string, success bool) {}
func (n *NoopMetrics) RecordSessionBound(source string)                  {}
func (n *NoopMetrics) RecordLogout(sessionAge time.Duration)             {}

// Backend API - noop implementations
func (n *NoopMetrics) RecordBackendCall(endpoint string, duration time.Duration, success bool) {}

// Rate Limiting - noop implementations
func (n *NoopMetrics) RecordRateLimitExceeded(route string) {}

// Gauge Setters - noop implementations
func (n *NoopMetrics) SetKnownUsersCount(authSource string, count int) {}

// Database Operations - noop implementations
func (n *NoopMetrics) RecordDatabaseQueryError(operation string) {}
