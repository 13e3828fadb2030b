// Package router wires the HTTP surface: which routes exist, which are
// public, and which roles may reach which group.  Route-level guards
// reject the obviously wrong callers early; the fine-grained checks
// (who owns this alert, whose booking is this) stay in the service.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/divyaflow/temple-ops/internal/config"
	"github.com/divyaflow/temple-ops/internal/handler"
	"github.com/divyaflow/temple-ops/internal/middleware"
	"github.com/divyaflow/temple-ops/internal/model"
)

// Handlers collects everything the router mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	Temples  *handler.TempleHandler
	Bookings *handler.BookingHandler
	Alerts   *handler.AlertHandler
	Stream   *handler.StreamHandler
}

// Register mounts all routes on the Echo instance.  rdb may be nil, in
// which case the cache and rate limit middleware are pass-throughs.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	rate := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Session endpoints: no token required.
	authGroup := e.Group("/v1/auth", rate)
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/logout", h.Auth.Logout)

	// Everything else needs a valid access token.
	v1 := e.Group("/v1", rate, middleware.JWTAuth(cfg.JWTSecret), middleware.RequireRole(model.Roles...))

	v1.GET("/me", h.Auth.Me)

	// Occupancy dashboard: visible to every role, cached briefly because
	// the engine rewrites it every tick anyway.
	v1.GET("/temples", h.Temples.List, cache)
	v1.GET("/temples/:id", h.Temples.Get, cache)
	v1.GET("/temples/:id/slots", h.Temples.Slots, cache)
	v1.POST("/temples/:id/status", h.Temples.SetStatus, middleware.RequireRole(model.RoleAdmin))
	v1.DELETE("/temples/:id/slots/:slotId", h.Temples.DeleteSlot, middleware.RequireRole(model.RoleAdmin))

	// Alerts: listing is role-filtered in the service (a devotee gets an
	// empty list); reporting and transitions are staff territory.
	v1.GET("/alerts", h.Alerts.List)
	v1.POST("/alerts", h.Alerts.Report, middleware.RequireStaff())
	v1.POST("/alerts/:id/status", h.Alerts.SetStatus, middleware.RequireStaff())

	// Bookings: anyone books for themselves; transitions are checked per
	// booking in the service.
	v1.GET("/bookings", h.Bookings.List)
	v1.GET("/bookings/:id", h.Bookings.Get)
	v1.POST("/bookings", h.Bookings.Create)
	v1.POST("/bookings/:id/cancel", h.Bookings.Cancel)
	v1.POST("/bookings/:id/check-in", h.Bookings.CheckIn)
	v1.POST("/bookings/:id/status", h.Bookings.SetStatus)

	// Live change feeds over SSE.
	v1.GET("/stream/:kind", h.Stream.Stream)
}
