package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/MattPM-ai/matt-git-review-sub002/internal/metrics"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/services"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/session"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrgSecret = "org-token-secret"

func mintOrgToken(t *testing.T, secret, org string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":      "member-7",
		"username": "octocat",
		"org":      org,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func newGateRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	validator := token.NewValidator(testOrgSecret)
	bridge := session.NewBridge(validator, "session-secret", 30*24*time.Hour, 5*time.Minute, false)
	audit := services.NewAuditService(nil, false, 10)

	router := gin.New()
	router.Use(OrgTokenGate(validator, bridge, metrics.NewNoopMetrics(), audit))
	router.GET("/org/:org", func(c *gin.Context) {
		c.String(http.StatusOK, "org page")
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func stagingCookies(res *http.Response) (tokenValue, orgValue string) {
	for _, cookie := range res.Cookies() {
		switch cookie.Name {
		case session.StagedTokenCookie:
			tokenValue = cookie.Value
		case session.StagedOrgCookie:
			orgValue = cookie.Value
		}
	}
	return tokenValue, orgValue
}

func TestOrgTokenGate_ValidTokenStaged(t *testing.T) {
	router := newGateRouter(t)
	raw := mintOrgToken(t, testOrgSecret, "mattpm")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/org/mattpm?token="+raw, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	stagedToken, stagedOrg := stagingCookies(w.Result())
	assert.Equal(t, raw, stagedToken)
	assert.Equal(t, "mattpm", stagedOrg)
}

func TestOrgTokenGate_OrgMismatch(t *testing.T) {
	router := newGateRouter(t)
	raw := mintOrgToken(t, testOrgSecret, "other-org")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/org/mattpm?token="+raw, nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/error", loc.Path)
	assert.Equal(t, ErrorCodeAccessDenied, loc.Query().Get("error"))

	stagedToken, _ := stagingCookies(w.Result())
	assert.Empty(t, stagedToken)
}

func TestOrgTokenGate_InvalidToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", mustSign(jwt.MapClaims{
			"sub": "member-7", "org": "mattpm",
			"exp": time.Now().Add(time.Hour).Unix(),
		}, "wrong-secret")},
		{"expired", mustSign(jwt.MapClaims{
			"sub": "member-7", "org": "mattpm",
			"exp": time.Now().Add(-time.Hour).Unix(),
		}, testOrgSecret)},
		{"garbage", "not-a-jwt"},
		{"missing org claim", mustSign(jwt.MapClaims{
			"sub": "member-7",
			"exp": time.Now().Add(time.Hour).Unix(),
		}, testOrgSecret)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newGateRouter(t)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/org/mattpm?token="+url.QueryEscape(tt.token), nil)
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusFound, w.Code)
			loc, err := url.Parse(w.Header().Get("Location"))
			require.NoError(t, err)
			assert.Equal(t, "/error", loc.Path)
			assert.Equal(t, ErrorCodeInvalidToken, loc.Query().Get("error"))
			assert.NotEmpty(t, loc.Query().Get("message"))
		})
	}
}

func mustSign(claims jwt.MapClaims, secret string) string {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return raw
}

func TestOrgTokenGate_NoTokenPassesThrough(t *testing.T) {
	router := newGateRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/org/mattpm", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	stagedToken, _ := stagingCookies(w.Result())
	assert.Empty(t, stagedToken)
}

func TestOrgTokenGate_ExcludedPathsIgnored(t *testing.T) {
	router := newGateRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health?token=not-a-jwt", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOrgFromPath(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		path string
		want string
	}{
		{"/org/mattpm", "mattpm"},
		{"/org/mattpm/activity", "mattpm"},
		{"/org/", ""},
		{"/login", ""},
		{"/", ""},
	}

	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "http://example.com"+tt.path, nil)
		assert.Equal(t, tt.want, orgFromPath(c), "path %s", tt.path)
	}
}
