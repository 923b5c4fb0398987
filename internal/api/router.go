package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/parceltrack/courier-system/internal/api/handler"
	"github.com/parceltrack/courier-system/internal/api/middleware"
	"github.com/parceltrack/courier-system/internal/core/domain"
	"github.com/parceltrack/courier-system/internal/core/ports"
	"github.com/parceltrack/courier-system/internal/infrastructure/config"
	"github.com/parceltrack/courier-system/internal/realtime"
)

// Deps carries the constructed services and infrastructure the router mounts.
type Deps struct {
	Auth     ports.AuthService
	Parcels  ports.ParcelService
	Presence ports.AgentPresence
	Gateway  *realtime.Gateway
	Mongo    *mongo.Database
	Redis    *redis.Client
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg *config.Config, deps Deps, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("courier"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth, cfg.TokenTTL)
	parcelHandler := handler.NewParcelHandler(deps.Parcels, deps.Presence, log)
	authMW := middleware.Auth(cfg.JWTSecret)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	v1 := e.Group("/api/v1")

	// --- Auth routes ---
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/me", authHandler.Me, authMW)
	auth.GET("/users", authHandler.ListUsers, authMW, adminOnly)
	auth.DELETE("/users/:id", authHandler.DeleteUser, authMW, adminOnly)

	// --- Parcel routes ---
	parcels := v1.Group("/parcels")
	parcels.POST("/bookAParcel", parcelHandler.Book, authMW, middleware.RBAC(domain.RoleCustomer, domain.RoleAdmin))
	parcels.GET("/:trackingId", parcelHandler.Track)
	parcels.PATCH("/:id/assign", parcelHandler.Assign, authMW, adminOnly)

	// --- Realtime tracking channel (authenticates via the session cookie) ---
	e.GET("/ws", deps.Gateway.Handle)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
