package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/newsroomhq/newsroom-api/internal/api/handler"
	"github.com/newsroomhq/newsroom-api/internal/api/middleware"
	"github.com/newsroomhq/newsroom-api/internal/core/domain"
	"github.com/newsroomhq/newsroom-api/internal/core/service"
	"github.com/newsroomhq/newsroom-api/internal/infrastructure/config"
	mongodb "github.com/newsroomhq/newsroom-api/internal/infrastructure/db/mongo"
	redisdb "github.com/newsroomhq/newsroom-api/internal/infrastructure/db/redis"
)

// NewRouter builds and returns the Echo instance with all routes
// registered. rdb may be nil; brute-force limiting is then disabled.
func NewRouter(db *mongo.Database, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("newsroom"))

	// --- Dependencies ---
	principalRepo := mongodb.NewPrincipalRepository(db)
	deviceRepo := mongodb.NewDeviceRepository(db)
	cacheRepo := mongodb.NewCacheRepository(db)

	var limiter service.LoginLimiter
	if rdb != nil {
		limiter = redisdb.NewLoginLimiter(rdb)
	}

	issuer := service.NewTokenIssuer(service.TokenConfig{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	deviceTracker := service.NewDeviceTracker(deviceRepo, log)
	sessions := service.NewSessionService(principalRepo, deviceTracker, issuer, limiter, service.SessionConfig{
		OTPTTL:     cfg.OTPTTL,
		RequireOTP: cfg.RequireOTP,
	}, log)
	cache := service.NewCacheService(cacheRepo, log)
	sync := service.NewSyncService(cache, log)

	authHandler := handler.NewAuthHandler(sessions, deviceTracker)
	syncHandler := handler.NewSyncHandler(sync, cache)
	authMW := middleware.Auth(cfg.JWTSecret)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/otp/verify", authHandler.VerifyOTP)
	e.POST("/auth/refresh", authHandler.Refresh)
	e.POST("/auth/password/forgot", authHandler.ForgotPassword)
	e.POST("/auth/password/reset", authHandler.ResetPassword)
	e.POST("/auth/guest", authHandler.Guest)
	e.POST("/auth/logout", authHandler.Logout, authMW)
	e.GET("/auth/devices", authHandler.Devices, authMW)
	e.PATCH("/auth/principals/:id/status", authHandler.SetStatus, authMW, middleware.RequireRole(domain.RoleAdmin))

	// --- Sync routes ---
	sg := e.Group("/v1/sync", authMW)
	sg.POST("", syncHandler.Push)
	sg.GET("/cache", syncHandler.List)
	sg.GET("/cache/:entity/:key", syncHandler.Get)
	sg.DELETE("/cache/:entity/:key", syncHandler.Delete)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
