package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/MattPM-ai/matt-git-review-sub002/internal/auth"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/cache"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/client"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/config"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/handlers"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/mattapi"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/metrics"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/middleware"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/models"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/services"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/session"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/store"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/templates"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/token"
	"github.com/MattPM-ai/matt-git-review-sub002/internal/version"

	"github.com/appleboy/graceful"
	ginsessions "github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Define flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Usage = printUsage
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		version.PrintVersion()
		os.Exit(0)
	}

	// Check if command is provided
	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Handle subcommands
	switch args[0] {
	case "server":
		runServer()
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Usage: %s [OPTIONS] COMMAND\n\n", os.Args[0])
	fmt.Println("Organization git activity dashboard")
	fmt.Println("\nCommands:")
	fmt.Println("  server    Start the dashboard server")
	fmt.Println("\nOptions:")
	fmt.Println("  -v, --version    Show version information")
	fmt.Println("  -h, --help       Show this help message")
}

func runServer() {
	// Load configuration
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize store
	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize metrics
	prometheusMetrics := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}

	// Initialize audit service
	auditService := services.NewAuditService(db, cfg.EnableAuditLogging, cfg.AuditLogBufferSize)

	// Org token validation and the session bridge
	validator := token.NewValidator(cfg.OrgTokenSecret)
	bridge := session.NewBridge(
		validator,
		cfg.SessionSecret,
		cfg.SessionMaxAge,
		cfg.StagingTTL,
		cfg.IsProduction,
	)

	userService := services.NewUserService(db)

	// Matt API client with retrying transport and cached org configs
	retryClient, err := client.CreateRetryClient(
		cfg.MattAPIAuthMode,
		cfg.MattAPIAuthSecret,
		cfg.MattAPITimeout,
		cfg.MattAPIInsecureSkipVerify,
		cfg.MattAPIMaxRetries,
		cfg.MattAPIRetryDelay,
		cfg.MattAPIMaxRetryDelay,
		cfg.MattAPIAuthHeader,
	)
	if err != nil {
		log.Fatalf("Failed to create Matt API client: %v", err)
	}
	mattClient := mattapi.New(
		cfg.MattAPIURL,
		retryClient,
		cache.NewMemoryCache[mattapi.OrgConfig](),
		cfg.OrgConfigCacheTTL,
	)
	log.Printf("Matt API: %s (auth=%s)", cfg.MattAPIURL, cfg.MattAPIAuthMode)

	// GitHub OAuth provider (optional)
	githubProvider := initializeGitHubProvider(cfg)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(
		validator,
		bridge,
		userService,
		auditService,
		prometheusMetrics,
		githubProvider != nil,
		cfg.BaseURL,
	)
	oauthHandler := handlers.NewOAuthHandler(
		githubProvider,
		bridge,
		userService,
		auditService,
		prometheusMetrics,
		createOAuthHTTPClient(cfg),
		cfg.DefaultOrganization,
		cfg.BaseURL,
	)
	pagesHandler := handlers.NewPagesHandler(mattClient, auditService, prometheusMetrics)

	// Setup Gin
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	// Setup Prometheus metrics middleware (must be before other routes)
	r.Use(metrics.HTTPMetricsMiddleware(prometheusMetrics))
	r.Use(gin.Logger(), gin.Recovery())

	// Setup IP middleware (for audit logging)
	r.Use(middleware.IPMiddleware())

	// The org token gate runs globally so it sees requests before route
	// matching; excluded prefixes and non-org paths pass straight through
	r.Use(middleware.OrgTokenGate(validator, bridge, prometheusMetrics, auditService))

	// Cookie-backed session store; only the OAuth flow state rides in it,
	// the dashboard session itself is the signed artifact cookie
	flowStore := cookie.NewStore([]byte(cfg.SessionSecret))
	flowStore.Options(ginsessions.Options{
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction,
		SameSite: http.SameSiteLaxMode, // Lax mode required for OAuth callbacks
	})
	r.Use(ginsessions.Sessions("oauth_flow", flowStore))

	// Templates and embedded static files
	tmpl, err := templates.Load()
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}
	r.SetHTMLTemplate(tmpl)

	staticSubFS, err := fs.Sub(templates.FS, "static")
	if err != nil {
		log.Fatalf("Failed to create static sub filesystem: %v", err)
	}
	r.StaticFS("/static", http.FS(staticSubFS))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Prometheus metrics endpoint (with optional authentication)
	switch {
	case !cfg.MetricsEnabled:
		log.Printf("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Printf("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Setup rate limiting
	loginLimiter, tokenLoginLimiter := setupRateLimiting(cfg, prometheusMetrics)

	// Public routes
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/login")
	})
	r.GET("/login", loginLimiter, authHandler.LoginPage)
	r.GET("/error", authHandler.ErrorPage)

	// Auth API routes
	api := r.Group("/api/auth")
	{
		api.POST("/token-login", tokenLoginLimiter, authHandler.TokenLogin)
		api.POST("/logout", authHandler.Logout)
	}

	// GitHub OAuth routes
	r.GET("/auth/github/login", oauthHandler.GitHubLogin)
	r.GET("/auth/github/callback", oauthHandler.GitHubCallback)

	// Org-scoped dashboard pages; the global gate stages org tokens arriving
	// by link and the session middleware binds them
	org := r.Group("/org/:org")
	org.Use(middleware.RequireSession(bridge, userService, prometheusMetrics, auditService))
	{
		org.GET("", pagesHandler.Activity)
		org.GET("/contributions", pagesHandler.Contributions)
		org.GET("/standup", pagesHandler.Standup)
		org.GET("/performance", pagesHandler.Performance)
		org.GET("/subscriptions", pagesHandler.Subscriptions)
		org.POST("/subscriptions", pagesHandler.Subscribe)
		org.POST("/subscriptions/:id/delete", pagesHandler.Unsubscribe)
	}

	// Start server
	log.Printf("Dashboard server starting on %s", cfg.ServerAddr)
	log.Printf("Base URL: %s", cfg.BaseURL)

	// Create HTTP server
	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Create graceful manager
	m := graceful.NewManager()

	// Add server as a running job
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})

	// Add shutdown job for HTTP server
	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})

	// Add shutdown job for audit service
	m.AddShutdownJob(func() error {
		log.Println("Shutting down audit service...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := auditService.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down audit service: %v", err)
			return err
		}
		return nil
	})

	// Add cleanup job for old audit logs (runs daily)
	if cfg.EnableAuditLogging && cfg.AuditLogRetention > 0 {
		retention := time.Duration(cfg.AuditLogRetention) * 24 * time.Hour
		m.AddRunningJob(func(ctx context.Context) error {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()

			// Run cleanup immediately on startup
			runAuditCleanup(auditService, retention)

			for {
				select {
				case <-ticker.C:
					runAuditCleanup(auditService, retention)
				case <-ctx.Done():
					return nil
				}
			}
		})
	}

	// Add known-users gauge update job
	if cfg.MetricsEnabled {
		m.AddRunningJob(func(ctx context.Context) error {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()

			// Update immediately on startup
			updateKnownUsersGauge(db, prometheusMetrics)

			for {
				select {
				case <-ticker.C:
					updateKnownUsersGauge(db, prometheusMetrics)
				case <-ctx.Done():
					return nil
				}
			}
		})
	}

	// Wait for graceful shutdown
	<-m.Done()
}

// initializeGitHubProvider builds the OAuth provider when fully configured
func initializeGitHubProvider(cfg *config.Config) *auth.GitHubProvider {
	switch {
	case !cfg.GitHubOAuthEnabled():
		log.Println("GitHub OAuth disabled (CLIENT_ID or CLIENT_SECRET not set)")
		return nil
	case cfg.GitHubRedirectURL == "":
		log.Printf("Warning: GitHub OAuth enabled but GITHUB_REDIRECT_URL missing")
		return nil
	default:
		log.Printf("GitHub OAuth configured: redirect=%s", cfg.GitHubRedirectURL)
		return auth.NewGitHubProvider(auth.GitHubProviderConfig{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.GitHubRedirectURL,
			Scopes:       cfg.GitHubScopes,
		})
	}
}

// createOAuthHTTPClient builds the HTTP client used for OAuth exchanges
func createOAuthHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: client.CreateOptimizedTransport(cfg.MattAPIInsecureSkipVerify),
	}
}

// setupRateLimiting builds the login and token-login limiters. When rate
// limiting is disabled both are pass-through handlers.
func setupRateLimiting(
	cfg *config.Config,
	rec metrics.Recorder,
) (loginLimiter, tokenLoginLimiter gin.HandlerFunc) {
	passthrough := func(c *gin.Context) { c.Next() }
	if !cfg.EnableRateLimit {
		log.Println("Rate limiting disabled")
		return passthrough, passthrough
	}

	build := func(requestsPerMinute int) gin.HandlerFunc {
		var limiter gin.HandlerFunc
		var err error
		if cfg.RateLimitStore == config.RateLimitStoreRedis {
			limiter, err = middleware.NewRedisRateLimiter(
				requestsPerMinute,
				cfg.RedisAddr,
				cfg.RedisPassword,
				cfg.RedisDB,
				rec,
			)
		} else {
			limiter, err = middleware.NewMemoryRateLimiter(requestsPerMinute, rec)
		}
		if err != nil {
			log.Fatalf("Failed to create rate limiter: %v", err)
		}
		return limiter
	}

	log.Printf(
		"Rate limiting enabled (store=%s, login=%d/min, token-login=%d/min)",
		cfg.RateLimitStore,
		cfg.LoginRateLimit,
		cfg.TokenLoginRateLimit,
	)
	return build(cfg.LoginRateLimit), build(cfg.TokenLoginRateLimit)
}

func runAuditCleanup(auditService *services.AuditService, retention time.Duration) {
	if deleted, err := auditService.CleanupOldLogs(retention); err != nil {
		log.Printf("Failed to cleanup old audit logs: %v", err)
	} else if deleted > 0 {
		log.Printf("Cleaned up %d old audit logs", deleted)
	}
}

// updateKnownUsersGauge refreshes the per-source known user counts
func updateKnownUsersGauge(db *store.Store, rec metrics.Recorder) {
	for _, source := range []string{models.AuthSourceGitHub, models.AuthSourceOrgToken} {
		count, err := db.CountUsersByAuthSource(source)
		if err != nil {
			log.Printf("Failed to count users for gauge update: %v", err)
			rec.RecordDatabaseQueryError("count_users")
			continue
		}
		rec.SetKnownUsersCount(source, int(count))
	}
}
