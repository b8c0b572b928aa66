// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hotel-room-reservation/internal/config"
	"github.com/iliyamo/hotel-room-reservation/internal/handler"
	"github.com/iliyamo/hotel-room-reservation/internal/middleware"
	"github.com/iliyamo/hotel-room-reservation/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers authentication routes.  Unauthenticated
// operations live under /v1/auth; /v1/me requires a valid token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout accepts either a bearer token (revoke all sessions) or a
	// refresh_token body (revoke one), so no JWT middleware here.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleClient),
	)
	auth.GET("/me", a.Me)
}

// RegisterRooms registers the room catalogue.  Browsing and
// availability are public; mutations are ADMIN-only.  The availability
// listing goes through the Redis response cache when one is
// configured, since it is the hottest read path and tolerates the
// short TTL.
func RegisterRooms(e *echo.Echo, h *handler.RoomHandler, cfg config.CacheConfig, rdb *redis.Client, jwtSecret string) {
	if rdb != nil && cfg.Enabled {
		e.GET("/v1/rooms/available", h.Available, middleware.NewRedisCache(cfg, rdb))
	} else {
		e.GET("/v1/rooms/available", h.Available)
	}
	e.GET("/v1/rooms", h.List)
	e.GET("/v1/rooms/:id", h.Get)
	e.GET("/v1/rooms/:id/next-available", h.NextAvailable)

	admin := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	admin.POST("/rooms", h.Create)
	admin.PUT("/rooms/:id", h.Update)
	admin.DELETE("/rooms/:id", h.Delete)
}

// RegisterBookings registers booking endpoints.  All of them require a
// valid token; listings across clients are ADMIN-only.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleClient),
	)
	g.POST("/bookings", h.Create)
	g.GET("/bookings/:id", h.Get)
	g.DELETE("/bookings/:id", h.Cancel)
	g.GET("/bookings/check-availability/:roomId", h.CheckAvailability)
	g.GET("/bookings/client/:clientId", h.ListByClient)

	admin := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	admin.GET("/bookings", h.List)
	admin.GET("/bookings/room/:roomId", h.ListByRoom)
}

// RegisterPayments registers the payment flow.  Both endpoints are
// public: initiate is called before the guest has an account, and
// confirm is called by the payment provider's webhook.
func RegisterPayments(e *echo.Echo, h *handler.PaymentHandler) {
	g := e.Group("/v1/payments")
	g.POST("/initiate", h.Initiate)
	g.POST("/confirm", h.Confirm)
}
