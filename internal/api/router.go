package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/99minutos/restaurant-directory/internal/api/handler"
	"github.com/99minutos/restaurant-directory/internal/api/middleware"
	"github.com/99minutos/restaurant-directory/internal/core/domain"
	"github.com/99minutos/restaurant-directory/internal/core/ports"
)

// Deps carries everything the router needs. Services are built by the caller
// so the same router serves either account store.
type Deps struct {
	AuthService      ports.AuthService
	DirectoryService ports.DirectoryService
	// Roles resolves the caller's current role set for the gate.
	Roles     middleware.RoleResolver
	JWTSecret string
	Logger    zerolog.Logger

	Session middleware.SessionConfig
	// Readiness lists the dependencies probed by GET /health/ready.
	Readiness map[string]handler.Pinger

	// Registerer receives the HTTP metrics. Defaults to the global registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	if d.Registerer == nil {
		d.Registerer = prometheus.DefaultRegisterer
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.AuthService)
	accountHandler := handler.NewAccountHandler(d.DirectoryService)
	authMiddleware := middleware.Auth(d.JWTSecret)
	sessionMiddleware := middleware.Session(d.Session)
	adminOnly := middleware.RequireRoles(d.Roles, middleware.RBACConfig{
		Required:       []string{domain.RoleAdmin},
		DisclosurePath: middleware.DefaultDisclosurePath,
		Logger:         d.Logger,
	})
	staff := middleware.RequireRoles(d.Roles, middleware.RBACConfig{
		Required:       []string{domain.RoleAdmin, domain.RoleManager},
		DisclosurePath: middleware.DefaultDisclosurePath,
		Logger:         d.Logger,
	})

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Role disclosure (public) ---
	e.GET(middleware.DefaultDisclosurePath, handler.Caution)

	// --- Administration ---
	v1 := e.Group("/v1", authMiddleware, sessionMiddleware)

	users := v1.Group("/users", adminOnly)
	users.GET("", accountHandler.List)
	users.GET("/:id", accountHandler.Show)
	users.PUT("/:id", accountHandler.Update)
	users.DELETE("/:id", accountHandler.Delete)

	v1.GET("/roles", accountHandler.Roles, staff)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Readiness)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
