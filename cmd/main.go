package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"

	"soundcheck/internal/analytics"
	"soundcheck/internal/caching"
	"soundcheck/internal/config"
	"soundcheck/internal/handlers"
	"soundcheck/internal/jobs/background"
	"soundcheck/internal/middleware"
	"soundcheck/internal/repositories"
	"soundcheck/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret = random.String(32) // Generate random secret for development
		log.Printf("WARNING: JWT_SECRET not set, using a generated secret; sessions will not survive restarts")
	}

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	tenantRepo := repositories.NewTenantRepo(pool)
	domainRepo := repositories.NewDomainRepo(pool)
	clientRepo := repositories.NewClientRepo(pool)
	deviceRepo := repositories.NewTrustedDeviceRepo(pool)
	resetTokenRepo := repositories.NewResetTokenRepo(pool)
	auditRepo := repositories.NewAuditLogsRepo(pool)

	// Cache
	cacheSvc, redisClient := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	// Services
	auditSvc := services.NewAuditService(auditRepo)
	mfaSvc := services.NewMFAService(userRepo, deviceRepo, cfg.TOTPIssuer, cfg.RememberDevice)
	authSvc := services.NewAuthService(userRepo, resetTokenRepo, mfaSvc, cacheSvc, jwtSecret, cfg.SessionTTL)
	tenantSvc := services.NewTenantService(tenantRepo, domainRepo, userRepo)
	userSvc := services.NewUserService(userRepo)
	clientSvc := services.NewClientService(clientRepo, cacheSvc)
	analyticsSvc := analytics.NewService(pool, clientRepo, cacheSvc, cfg.DefaultPageSize, cfg.MaxPageSize, cfg.CSVExportMaxRows)

	archiveSvc, err := services.NewMinioArchiveService(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.ExportBucket)
	if err != nil {
		log.Fatalf("Failed to initialize export archive: %v", err)
	}
	if err := archiveSvc.EnsureBucket(context.Background()); err != nil {
		log.Printf("WARN: export bucket unavailable: %v", err)
	}

	// Handlers
	healthHandlers := handlers.NewHealthHandlers(pool, redisClient)
	authHandlers := handlers.NewAuthHandlers(authSvc, auditSvc)
	mfaHandlers := handlers.NewMFAHandlers(mfaSvc, authSvc, auditSvc)
	dashboardHandlers := handlers.NewDashboardHandlers(analyticsSvc, auditSvc, archiveSvc)
	userHandlers := handlers.NewUserHandlers(userSvc, mfaSvc, auditSvc)
	clientHandlers := handlers.NewClientHandlers(clientSvc, auditSvc)
	auditHandlers := handlers.NewAuditHandlers(auditSvc)

	// Background jobs
	scheduler, err := background.NewJobScheduler(analyticsSvc, tenantRepo, resetTokenRepo, deviceRepo)
	if err != nil {
		log.Fatalf("Failed to create job scheduler: %v", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Printf("Failed to stop scheduler: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true

	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints answer on any host, before tenant resolution
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/detailed", healthHandlers.DetailedHealthCheck)

	v1 := e.Group("/v1", middleware.TenantResolver(tenantSvc))

	// Unauthenticated, rate limited per IP
	auth := v1.Group("/auth")
	auth.POST("/login", authHandlers.Login, middleware.RateLimitByIP(cacheSvc, "login", 10, time.Minute))
	auth.POST("/password-reset", authHandlers.RequestPasswordReset, middleware.RateLimitByIP(cacheSvc, "pwreset", 5, time.Minute))
	auth.POST("/password-reset/confirm/:token", authHandlers.ConfirmPasswordReset, middleware.RateLimitByIP(cacheSvc, "pwreset", 5, time.Minute))

	// Authenticated but MFA-exempt (the MFA flow itself, plus logout)
	session := v1.Group("", middleware.JWT(jwtSecret), middleware.Session(userRepo, cacheSvc))
	session.POST("/auth/logout", authHandlers.Logout)
	session.GET("/auth/mfa/setup", mfaHandlers.BeginSetup)
	session.POST("/auth/mfa/setup", mfaHandlers.ConfirmSetup)
	session.POST("/auth/mfa/verify", mfaHandlers.Verify, middleware.RateLimitByUser(cacheSvc, "mfa", 10, time.Minute))

	// Fully protected dashboard surface
	protected := session.Group("", middleware.RequireMFA())
	protected.GET("/me", dashboardHandlers.Me)
	protected.GET("/dashboard/summary", dashboardHandlers.Summary)
	protected.GET("/dashboard/transactions", dashboardHandlers.Transactions)
	protected.GET("/dashboard/transactions/export", dashboardHandlers.ExportTransactions)
	protected.GET("/dashboard/account-options", dashboardHandlers.AccountOptions)

	// Admin surface
	admin := protected.Group("/admin", middleware.RequireAdmin())
	admin.GET("/users", userHandlers.List)
	admin.POST("/users", userHandlers.Create)
	admin.GET("/users/:id", userHandlers.Get)
	admin.PUT("/users/:id", userHandlers.Update)
	admin.POST("/users/:id/reset-mfa", userHandlers.ResetMFA)
	admin.POST("/users/:id/recovery-codes", userHandlers.RegenerateRecoveryCodes)
	admin.GET("/clients", clientHandlers.List)
	admin.POST("/clients", clientHandlers.Create)
	admin.GET("/clients/:id", clientHandlers.Get)
	admin.PUT("/clients/:id", clientHandlers.Update)
	admin.POST("/clients/:id/accounts", clientHandlers.AddAccounts)
	admin.DELETE("/clients/:id/accounts/:mappingID", clientHandlers.RemoveAccount)
	admin.GET("/audit", auditHandlers.List)

	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", cfg.Port)))
}
