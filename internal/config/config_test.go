package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		MattAPIURL:      "http://localhost:3001",
		MattAPIAuthMode: APIAuthModeNone,
		RateLimitStore:  RateLimitStoreMemory,
		SessionSecret:   "s3cret",
		OrgTokenSecret:  "t0ken-s3cret",
		SessionMaxAge:   720 * time.Hour,
		StagingTTL:      5 * time.Minute,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid config",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name: "valid redis rate limit store",
			mutate: func(c *Config) {
				c.RateLimitStore = RateLimitStoreRedis
			},
			expectError: false,
		},
		{
			name: "missing matt api url",
			mutate: func(c *Config) {
				c.MattAPIURL = ""
			},
			expectError: true,
			errorMsg:    "MATT_API_URL is required",
		},
		{
			name: "invalid api auth mode",
			mutate: func(c *Config) {
				c.MattAPIAuthMode = "basic"
			},
			expectError: true,
			errorMsg:    "invalid MATT_API_AUTH_MODE",
		},
		{
			name: "simple auth mode without secret",
			mutate: func(c *Config) {
				c.MattAPIAuthMode = APIAuthModeSimple
			},
			expectError: true,
			errorMsg:    "MATT_API_AUTH_SECRET is required",
		},
		{
			name: "hmac auth mode with secret",
			mutate: func(c *Config) {
				c.MattAPIAuthMode = APIAuthModeHMAC
				c.MattAPIAuthSecret = "shared"
			},
			expectError: false,
		},
		{
			name: "invalid rate limit store",
			mutate: func(c *Config) {
				c.RateLimitStore = "memcache"
			},
			expectError: true,
			errorMsg:    "invalid RATE_LIMIT_STORE",
		},
		{
			name: "non-positive session max age",
			mutate: func(c *Config) {
				c.SessionMaxAge = 0
			},
			expectError: true,
			errorMsg:    "SESSION_MAX_AGE must be positive",
		},
		{
			name: "non-positive staging ttl",
			mutate: func(c *Config) {
				c.StagingTTL = -time.Second
			},
			expectError: true,
			errorMsg:    "STAGING_TTL must be positive",
		},
		{
			name: "default session secret in production",
			mutate: func(c *Config) {
				c.IsProduction = true
				c.SessionSecret = defaultSessionSecret
			},
			expectError: true,
			errorMsg:    "SESSION_SECRET must be changed",
		},
		{
			name: "default org token secret in production",
			mutate: func(c *Config) {
				c.IsProduction = true
				c.OrgTokenSecret = defaultOrgTokenSecret
			},
			expectError: true,
			errorMsg:    "ORG_TOKEN_SECRET must be changed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_GitHubOAuthEnabled(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.GitHubOAuthEnabled())

	cfg.GitHubClientID = "client-id"
	assert.False(t, cfg.GitHubOAuthEnabled())

	cfg.GitHubClientSecret = "client-secret"
	assert.True(t, cfg.GitHubOAuthEnabled())
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, 720*time.Hour, cfg.SessionMaxAge)
	assert.Equal(t, 5*time.Minute, cfg.StagingTTL)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, APIAuthModeNone, cfg.MattAPIAuthMode)
	assert.Equal(t, RateLimitStoreMemory, cfg.RateLimitStore)
}
