package router

import (
	"strconv"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/fishing-club-booking/internal/handler"
	"github.com/iliyamo/fishing-club-booking/internal/middleware"
	"github.com/iliyamo/fishing-club-booking/internal/model"
)

// RegisterClub registers CLUB-scoped endpoints under /v1/club.  The club id
// always comes from the token, never from the path.
func RegisterClub(e *echo.Echo, h *handler.ClubHandler, r *handler.ClubReservationHandler, jwtSecret string, logoMaxBytes int64) {
	g := e.Group("/v1/club",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleClub),
	)

	// ---- Profile ----
	g.GET("/profile", h.Profile)
	g.PUT("/profile", h.UpdateProfile)
	// multipart overhead on top of the file itself
	g.POST("/logo", h.UploadLogo, echomw.BodyLimit(bodyLimit(logoMaxBytes+64<<10)))

	// ---- Inventory ----
	g.GET("/boats", h.Boats)
	g.PUT("/boats", h.ReplaceBoats)
	g.PUT("/boats/item", h.UpsertBoat)
	g.DELETE("/boats", h.DeleteBoat)
	g.GET("/bait", h.Bait)
	g.PUT("/bait", h.SetBait)

	// ---- Reservations ----
	g.GET("/reservations", r.List)
	g.GET("/reservations/:id", r.Get)
	g.POST("/reservations/:id/confirm", r.Confirm)
	g.POST("/reservations/:id/cancel", r.Cancel)

	g.GET("/ratings", h.ListRatings)
}

// bodyLimit renders n in the unit syntax echo's BodyLimit expects.
func bodyLimit(n int64) string {
	if n <= 0 {
		n = 5 << 20
	}
	return strconv.FormatInt(n/1024+1, 10) + "K"
}
