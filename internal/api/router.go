package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/agrobolivia/farm-platform/internal/api/handler"
	"github.com/agrobolivia/farm-platform/internal/api/middleware"
	"github.com/agrobolivia/farm-platform/internal/core/domain"
	"github.com/agrobolivia/farm-platform/internal/core/ports"
	"github.com/agrobolivia/farm-platform/internal/core/service"
)

// Deps carries the wired services the router needs. Construction happens
// in cmd/server so tests can assemble routers from stubs.
type Deps struct {
	Auth       ports.AuthService
	TwoFactor  ports.TwoFactorService
	Tokens     ports.TokenService
	Sessions   *service.SessionRegistry
	Audit      *service.AuditService
	Recorder   ports.AuditRecorder
	APILimiter ports.RateLimiter

	Mongo *mongo.Client
	Redis *redis.Client
	Log   zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("agro"))

	authHandler := handler.NewAuthHandler(d.Auth, d.TwoFactor)
	securityHandler := handler.NewSecurityHandler(d.Audit, d.Recorder)
	healthHandler := handler.NewHealthHandler(d.Mongo, d.Redis)

	requireAuth := middleware.Auth(d.Tokens, d.Sessions)
	adminOnly := middleware.RBAC(d.Recorder, domain.RoleAdmin)
	apiLimit := middleware.RateLimit(d.APILimiter, d.Recorder)

	// --- Auth routes ---
	auth := e.Group("/auth", apiLimit)
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/verify-2fa", authHandler.VerifyTwoFactor)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout, requireAuth)
	auth.POST("/logout-all", authHandler.LogoutEverywhere, requireAuth)
	auth.POST("/change-password", authHandler.ChangePassword, requireAuth)
	auth.GET("/profile", authHandler.Profile, requireAuth)
	auth.PATCH("/profile", authHandler.UpdateProfile, requireAuth)
	auth.POST("/2fa/setup", authHandler.BeginTwoFactor, requireAuth)
	auth.POST("/2fa/enable", authHandler.EnableTwoFactor, requireAuth)
	auth.POST("/2fa/disable", authHandler.DisableTwoFactor, requireAuth)

	// --- Security dashboard (admin only) ---
	security := e.Group("/security", apiLimit, requireAuth, adminOnly)
	security.GET("/summary", securityHandler.Summary)
	security.GET("/events", securityHandler.Events)
	security.GET("/audit/:user_id", securityHandler.UserAuditTrail)

	// --- Operational surface ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
