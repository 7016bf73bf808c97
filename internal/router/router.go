package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/fishing-club-booking/internal/config"
	"github.com/iliyamo/fishing-club-booking/internal/handler"
	"github.com/iliyamo/fishing-club-booking/internal/middleware"
	"github.com/iliyamo/fishing-club-booking/internal/model"
)

// RegisterRoutes exposes the health check and the Prometheus scrape
// endpoint.  Neither requires authentication.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth mounts the token endpoints under /v1/auth and the profile
// endpoints of the authenticated user under /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// rotates the refresh token
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// accepts a refresh token body or a bearer access token
	g.POST("/logout", a.Logout)

	me := e.Group("/v1/me",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleClub, model.RoleFisher),
	)
	me.GET("", a.Me)
	me.POST("/device-tokens", a.AddDeviceToken)
}

// RegisterPublic registers the guest browse endpoints.  Club listings,
// ratings and rankings go through the Redis response cache; availability
// is always computed live so a fisher never sees a stale count.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cacheCfg config.CacheConfig, rdb *redis.Client) {
	cached := e.Group("/v1", middleware.NewRedisCache(cacheCfg, rdb))
	cached.GET("/clubs", p.ListClubs)
	cached.GET("/clubs/:id", p.GetClub)
	cached.GET("/clubs/:id/ratings", p.ClubRatings)
	cached.GET("/rankings", p.Rankings)

	e.GET("/v1/clubs/:id/availability", p.ClubAvailability)

	weather := cacheCfg.WithTTL(cacheCfg.WeatherTTL, "weather")
	e.GET("/v1/weather", p.Forecast, middleware.NewRedisCache(weather, rdb))
}

// RegisterNotifications mounts the inbox and the websocket for both roles.
// Browsers cannot set headers on a websocket handshake, so JWTAuth also
// accepts ?access_token= on upgrade requests.
func RegisterNotifications(e *echo.Echo, n *handler.NotificationHandler, jwtSecret string) {
	g := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleClub, model.RoleFisher),
	)
	g.GET("/notifications", n.List)
	g.GET("/notifications/unread-count", n.UnreadCount)
	g.PATCH("/notifications/:id/read", n.MarkRead)
	g.POST("/notifications/read-all", n.MarkAllRead)
	g.GET("/ws", n.Stream)
}

// NotFound renders unknown routes with the same error body as handlers.
func NotFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, map[string]string{"error": "route not found", "code": "NOT_FOUND"})
}
