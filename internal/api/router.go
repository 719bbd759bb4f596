package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/roadwatch/damage-portal/docs"
	"github.com/roadwatch/damage-portal/internal/api/handler"
	"github.com/roadwatch/damage-portal/internal/api/middleware"
	"github.com/roadwatch/damage-portal/internal/core/domain"
	"github.com/roadwatch/damage-portal/internal/core/ports"
)

const bodyLimit = "2M"

// Deps are the wired services the router exposes over HTTP.
type Deps struct {
	Auth        ports.AuthService
	Damages     ports.DamageService
	Stats       ports.StatsService
	Dispatcher  handler.DamageDispatcher
	Tokens      ports.TokenIssuer
	Revocations ports.RevocationStore // optional
	Readiness   map[string]handler.Pinger
	CORSOrigins []string
	Log         zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: func() string { return ksuid.New().String() },
	}))
	e.Use(middleware.Logger(d.Log))
	e.Use(middleware.Metrics())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: d.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomiddleware.BodyLimit(bodyLimit))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth)
	damageHandler := handler.NewDamageHandler(d.Damages, d.Dispatcher, d.Log)
	dashboardHandler := handler.NewDashboardHandler(d.Stats)
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.Readiness)

	authMiddleware := middleware.Auth(d.Tokens, d.Revocations, d.Log)
	callerIdentity := middleware.OptionalAuth(d.Tokens, d.Revocations, d.Log)
	reporters := middleware.RBAC(domain.RoleAdmin, domain.RoleInspector)

	// --- Operational endpoints (no auth required) ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// --- Health probes ---
	api.GET("/health", healthHandler.Liveness)
	api.GET("/health/ready", readinessHandler.Readiness)

	// --- Auth routes ---
	api.POST("/register", authHandler.Register, callerIdentity)
	api.POST("/login", authHandler.Login)

	// --- Protected routes ---
	protected := api.Group("", authMiddleware)
	protected.GET("/user", authHandler.Me)
	protected.POST("/logout", authHandler.Logout)
	protected.GET("/dashboard/stats", dashboardHandler.Stats)

	protected.GET("/damages", damageHandler.List)
	protected.GET("/fetch-damages", damageHandler.List)
	protected.GET("/damages/export", damageHandler.Export)
	protected.GET("/damages/:id", damageHandler.Get)
	protected.POST("/damages", damageHandler.Create, reporters)
	protected.POST("/damages/batch", damageHandler.CreateBatch, reporters)

	return e
}
