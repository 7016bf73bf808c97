package router

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/fishing-club-booking/internal/config"
	"github.com/iliyamo/fishing-club-booking/internal/handler"
	"github.com/iliyamo/fishing-club-booking/internal/middleware"
	"github.com/iliyamo/fishing-club-booking/internal/model"
)

// FisherOptions carries the Redis-backed protections of the booking
// endpoint.  A nil client turns both into pass-through.
type FisherOptions struct {
	Redis          *redis.Client
	BookingLimit   config.RateLimitConfig
	IdempotencyTTL time.Duration
}

// RegisterFisher registers FISHER-scoped endpoints under /v1.
func RegisterFisher(e *echo.Echo, h *handler.FisherHandler, jwtSecret string, opts FisherOptions) {
	g := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleFisher),
	)
	// the limiter runs first so replays of a key still count against it
	g.POST("/reservations", h.Create,
		middleware.NewTokenBucket(opts.BookingLimit, opts.Redis),
		middleware.Idempotency(opts.Redis, opts.IdempotencyTTL, "idem:reservations"),
	)
	g.GET("/my-reservations", h.ListMine)
	g.GET("/reservations/:id", h.Get)
	g.PATCH("/reservations/:id", h.Modify)
	g.POST("/reservations/:id/cancel", h.Cancel)

	g.PUT("/clubs/:id/rating", h.Rate)
	g.GET("/clubs/:id/rating", h.MyRating)
}
