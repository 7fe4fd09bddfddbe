package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Organization Gate Metrics
	GateDecisionsTotal *prometheus.CounterVec

	// Authentication Metrics
	TokenLoginTotal        *prometheus.CounterVec
	AuthOAuthCallbackTotal *prometheus.CounterVec
	AuthLogoutTotal        prometheus.Counter

	// Session Metrics
	SessionsBoundTotal *prometheus.CounterVec
	SessionsActive     prometheus.Gauge
	SessionDuration    prometheus.Histogram

	// Backend API Metrics
	BackendRequestsTotal   *prometheus.CounterVec
	BackendRequestDuration *prometheus.HistogramVec

	// Rate Limit Metrics
	RateLimitExceededTotal *prometheus.CounterVec

	// User Metrics
	KnownUsers *prometheus.GaugeVec

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database Query Metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	m := &Metrics{
		// Organization Gate Metrics
		GateDecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "org_gate_decisions_total",
				Help: "Total number of organization gate decisions",
			},
			[]string{"result"}, // staged, denied_org_mismatch, denied_invalid_token, no_token
		),

		// Authentication Metrics
		TokenLoginTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_token_login_total",
				Help: "Total number of organization token login attempts",
			},
			[]string{"result"}, // success, failure
		),
		AuthOAuthCallbackTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_oauth_callback_total",
				Help: "Total number of OAuth callback attempts",
			},
			[]string{"provider", "result"}, // provider: github; result: success, error
		),
		AuthLogoutTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "auth_logout_total",
				Help: "Total number of logouts",
			},
		),

		// Session Metrics
		SessionsBoundTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessions_bound_total",
				Help: "Total number of sessions bound to an identity",
			},
			[]string{"source"}, // github, org_token
		),
		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sessions_active",
				Help: "Current number of active sessions",
			},
		),
		SessionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "session_duration_seconds",
				Help: "Duration of user sessions at logout",
				Buckets: []float64{
					3600,
					14400,
					86400,
					259200,
					604800,
					1209600,
					2592000,
				}, // 1h, 4h, 1d, 3d, 1w, 2w, 30d
			},
		),

		// Backend API Metrics
		BackendRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_requests_total",
				Help: "Total number of requests to the Matt API backend",
			},
			[]string{"endpoint", "result"}, // result: success, error
		),
		BackendRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_request_duration_seconds",
				Help:    "Latency of Matt API backend requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),

		// Rate Limit Metrics
		RateLimitExceededTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_exceeded_total",
				Help: "Total number of requests rejected by rate limiting",
			},
			[]string{"route"},
		),

		// User Metrics
		KnownUsers: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "known_users",
				Help: "Current number of known users by auth source",
			},
			[]string{"auth_source"}, // github, org_token
		),

		// HTTP Request Metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request latency in seconds",
				Buckets: []float64{
					0.001,
					0.005,
					0.010,
					0.025,
					0.050,
					0.100,
					0.250,
					0.500,
					1.0,
					2.5,
					5.0,
					10.0,
				},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),

		// Database Query Metrics
		DatabaseQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Total number of database query errors during metric collection",
			},
			[]string{"operation"}, // count_users
		),
	}

	return m
}
