package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fishing-club-booking/internal/model"
	"github.com/iliyamo/fishing-club-booking/internal/service"
	"github.com/iliyamo/fishing-club-booking/internal/utils"
)

// ClubReservationHandler serves a club's reservation inbox.
type ClubReservationHandler struct {
	Reservations *service.ReservationService
}

func NewClubReservationHandler(res *service.ReservationService) *ClubReservationHandler {
	if res == nil {
		panic("nil service passed to NewClubReservationHandler")
	}
	return &ClubReservationHandler{Reservations: res}
}

// List handles GET /v1/club/reservations?view=day|month&date=&state=&page=&per_page=.
func (h *ClubReservationHandler) List(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	f := service.ClubListFilter{
		View:    c.QueryParam("view"),
		State:   c.QueryParam("state"),
		Page:    queryInt(c, "page", 1),
		PerPage: queryInt(c, "per_page", 0),
	}
	if raw := c.QueryParam("date"); raw != "" {
		d, err := utils.ParseDate(raw)
		if err != nil {
			return badRequest(c, err.Error())
		}
		f.Date = d
	}
	page, err := h.Reservations.ListForClub(c.Request().Context(), actor, f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// Get handles GET /v1/club/reservations/:id.
func (h *ClubReservationHandler) Get(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	res, err := h.Reservations.Get(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type clubMessageReq struct {
	Message string `json:"message"`
}

// Confirm handles POST /v1/club/reservations/:id/confirm with an optional
// message for the fisher.
func (h *ClubReservationHandler) Confirm(c echo.Context) error {
	return h.decide(c, h.Reservations.Confirm)
}

// Cancel handles POST /v1/club/reservations/:id/cancel.
func (h *ClubReservationHandler) Cancel(c echo.Context) error {
	return h.decide(c, h.Reservations.CancelByClub)
}

func (h *ClubReservationHandler) decide(c echo.Context, op func(ctx context.Context, actor service.Actor, id uint64, message string) (model.Reservation, error)) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	var req clubMessageReq
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	res, err := op(c.Request().Context(), actor, id, req.Message)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
