package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Matt API authentication mode constants
const (
	APIAuthModeNone   = "none"
	APIAuthModeSimple = "simple"
	APIAuthModeHMAC   = "hmac"
)

// Rate limit store constants
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

const (
	defaultSessionSecret  = "session-secret-change-in-production"
	defaultOrgTokenSecret = "org-token-secret-change-in-production"
)

type Config struct {
	// Server settings
	ServerAddr   string
	BaseURL      string
	IsProduction bool

	// Session settings
	SessionSecret string
	SessionMaxAge time.Duration // Lifetime of the signed session cookie (default: 30 days)

	// Organization token settings
	OrgTokenSecret string        // Shared secret used to verify externally issued org tokens
	StagingTTL     time.Duration // Lifetime of the staging cookies (default: 5 minutes)

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	// Matt API (backend collaborator)
	MattAPIURL                string
	MattAPITimeout            time.Duration
	MattAPIInsecureSkipVerify bool
	MattAPIAuthMode           string // "none", "simple", or "hmac"
	MattAPIAuthSecret         string
	MattAPIAuthHeader         string // Custom header name for simple mode
	MattAPIMaxRetries         int
	MattAPIRetryDelay         time.Duration
	MattAPIMaxRetryDelay      time.Duration

	// Org config cache
	OrgConfigCacheTTL time.Duration

	// GitHub OAuth
	GitHubClientID     string
	GitHubClientSecret string
	GitHubRedirectURL  string
	GitHubScopes       []string

	// Organization bound to sessions created through GitHub OAuth when the
	// login link does not name one
	DefaultOrganization string

	// Rate limiting
	EnableRateLimit          bool
	RateLimitStore           string // "memory" or "redis"
	RateLimitCleanupInterval time.Duration
	LoginRateLimit           int // requests per minute on /login
	TokenLoginRateLimit      int // requests per minute on /api/auth/token-login

	// Redis (rate limiting store)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Metrics
	MetricsEnabled bool
	MetricsToken   string

	// Audit logging
	EnableAuditLogging bool
	AuditLogBufferSize int
	AuditLogRetention  int // days, 0 disables cleanup
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", "review.db")
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
		IsProduction: getEnvBool("PRODUCTION", false),

		SessionSecret: getEnv("SESSION_SECRET", defaultSessionSecret),
		SessionMaxAge: getEnvDuration("SESSION_MAX_AGE", 720*time.Hour), // 30 days

		OrgTokenSecret: getEnv("ORG_TOKEN_SECRET", defaultOrgTokenSecret),
		StagingTTL:     getEnvDuration("STAGING_TTL", 5*time.Minute),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		// Matt API
		MattAPIURL:                getEnv("MATT_API_URL", "http://localhost:3001"),
		MattAPITimeout:            getEnvDuration("MATT_API_TIMEOUT", 10*time.Second),
		MattAPIInsecureSkipVerify: getEnvBool("MATT_API_INSECURE_SKIP_VERIFY", false),
		MattAPIAuthMode:           getEnv("MATT_API_AUTH_MODE", APIAuthModeNone),
		MattAPIAuthSecret:         getEnv("MATT_API_AUTH_SECRET", ""),
		MattAPIAuthHeader:         getEnv("MATT_API_AUTH_HEADER", "X-API-Secret"),
		MattAPIMaxRetries:         getEnvInt("MATT_API_MAX_RETRIES", 3),
		MattAPIRetryDelay:         getEnvDuration("MATT_API_RETRY_DELAY", 1*time.Second),
		MattAPIMaxRetryDelay:      getEnvDuration("MATT_API_MAX_RETRY_DELAY", 10*time.Second),

		OrgConfigCacheTTL: getEnvDuration("ORG_CONFIG_CACHE_TTL", 5*time.Minute),

		// GitHub OAuth
		GitHubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
		GitHubRedirectURL:  getEnv("GITHUB_REDIRECT_URL", ""),
		GitHubScopes:       getEnvSlice("GITHUB_SCOPES", []string{"read:user", "user:email"}),

		DefaultOrganization: getEnv("DEFAULT_ORGANIZATION", ""),

		// Rate limiting
		EnableRateLimit:          getEnvBool("ENABLE_RATE_LIMIT", true),
		RateLimitStore:           getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),
		RateLimitCleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		LoginRateLimit:           getEnvInt("LOGIN_RATE_LIMIT", 10),
		TokenLoginRateLimit:      getEnvInt("TOKEN_LOGIN_RATE_LIMIT", 20),

		// Redis
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		// Metrics
		MetricsEnabled: getEnvBool("METRICS_ENABLED", false),
		MetricsToken:   getEnv("METRICS_TOKEN", ""),

		// Audit logging
		EnableAuditLogging: getEnvBool("ENABLE_AUDIT_LOGGING", true),
		AuditLogBufferSize: getEnvInt("AUDIT_LOG_BUFFER_SIZE", 1000),
		AuditLogRetention:  getEnvInt("AUDIT_LOG_RETENTION_DAYS", 90),
	}
}

// Validate checks the configuration for settings that are unsafe or unusable
func (c *Config) Validate() error {
	if c.MattAPIURL == "" {
		return errors.New("MATT_API_URL is required")
	}

	switch c.MattAPIAuthMode {
	case APIAuthModeNone, APIAuthModeSimple, APIAuthModeHMAC:
	default:
		return fmt.Errorf(
			"invalid MATT_API_AUTH_MODE: %s (must be: none, simple, hmac)",
			c.MattAPIAuthMode,
		)
	}

	if c.MattAPIAuthMode != APIAuthModeNone && c.MattAPIAuthSecret == "" {
		return fmt.Errorf(
			"MATT_API_AUTH_SECRET is required when MATT_API_AUTH_MODE=%s",
			c.MattAPIAuthMode,
		)
	}

	switch c.RateLimitStore {
	case RateLimitStoreMemory, RateLimitStoreRedis:
	default:
		return fmt.Errorf(
			"invalid RATE_LIMIT_STORE: %s (must be: memory, redis)",
			c.RateLimitStore,
		)
	}

	if c.SessionMaxAge <= 0 {
		return errors.New("SESSION_MAX_AGE must be positive")
	}
	if c.StagingTTL <= 0 {
		return errors.New("STAGING_TTL must be positive")
	}

	if c.IsProduction {
		if c.SessionSecret == defaultSessionSecret {
			return errors.New("SESSION_SECRET must be changed in production")
		}
		if c.OrgTokenSecret == defaultOrgTokenSecret {
			return errors.New("ORG_TOKEN_SECRET must be changed in production")
		}
	}

	return nil
}

// GitHubOAuthEnabled reports whether GitHub OAuth is fully configured
func (c *Config) GitHubOAuthEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var parts []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}
