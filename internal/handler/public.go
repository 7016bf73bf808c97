package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fishing-club-booking/internal/service"
	"github.com/iliyamo/fishing-club-booking/internal/utils"
)

// PublicHandler serves the unauthenticated browse endpoints.
type PublicHandler struct {
	Inventory    *service.InventoryService
	Availability *service.AvailabilityService
	Ratings      *service.RatingService
	Weather      *service.WeatherClient
}

func NewPublicHandler(inv *service.InventoryService, avail *service.AvailabilityService, ratings *service.RatingService, weather *service.WeatherClient) *PublicHandler {
	if inv == nil || avail == nil || ratings == nil {
		panic("nil service passed to NewPublicHandler")
	}
	return &PublicHandler{Inventory: inv, Availability: avail, Ratings: ratings, Weather: weather}
}

// ListClubs handles GET /v1/clubs.
func (h *PublicHandler) ListClubs(c echo.Context) error {
	clubs, err := h.Inventory.ListClubs(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": clubs})
}

// GetClub handles GET /v1/clubs/:id with its catalog and bait offer.
func (h *PublicHandler) GetClub(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid club id")
	}
	club, err := h.Inventory.Club(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, club)
}

// ClubAvailability handles GET /v1/clubs/:id/availability?date=YYYY-MM-DD.
// Without a date it reports today's availability in the booking zone.
func (h *PublicHandler) ClubAvailability(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid club id")
	}
	date := h.Availability.Today()
	if raw := c.QueryParam("date"); raw != "" {
		d, err := utils.ParseDate(raw)
		if err != nil {
			return badRequest(c, err.Error())
		}
		date = d
	}
	items, err := h.Availability.ForDate(c.Request().Context(), id, date)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"club_id": id,
		"date":    utils.FormatDate(date),
		"items":   items,
	})
}

// ClubRatings handles GET /v1/clubs/:id/ratings.
func (h *PublicHandler) ClubRatings(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid club id")
	}
	items, err := h.Ratings.ListForClub(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Rankings handles GET /v1/rankings?limit=.
func (h *PublicHandler) Rankings(c echo.Context) error {
	items, err := h.Ratings.Rankings(c.Request().Context(), queryInt(c, "limit", 20))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Forecast handles GET /v1/weather?location=&date=.  A club_id may be
// given instead of location to use the club's stored location.
func (h *PublicHandler) Forecast(c echo.Context) error {
	location := c.QueryParam("location")
	if location == "" {
		if id, err := parseUint(c.QueryParam("club_id")); err == nil && id > 0 {
			club, err := h.Inventory.Club(c.Request().Context(), id)
			if err != nil {
				return respondError(c, err)
			}
			location = club.Location
		}
	}
	w, err := h.Weather.Forecast(c.Request().Context(), location, c.QueryParam("date"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, w)
}
