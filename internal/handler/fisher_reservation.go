package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fishing-club-booking/internal/service"
	"github.com/iliyamo/fishing-club-booking/internal/utils"
)

// FisherHandler serves the fisher's booking and rating endpoints.  Routes
// are registered behind JWTAuth and RequireRole(FISHER).
type FisherHandler struct {
	Reservations *service.ReservationService
	Ratings      *service.RatingService
}

func NewFisherHandler(res *service.ReservationService, ratings *service.RatingService) *FisherHandler {
	if res == nil || ratings == nil {
		panic("nil service passed to NewFisherHandler")
	}
	return &FisherHandler{Reservations: res, Ratings: ratings}
}

type createReservationReq struct {
	ClubID       uint64 `json:"club_id"`
	BoatKind     string `json:"boat_kind"`
	Capacity     int    `json:"capacity"`
	Date         string `json:"date"`
	PartySize    int    `json:"party_size"`
	BaitPacks    int    `json:"bait_packs"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
}

// Create handles POST /v1/reservations.  The new reservation is pending
// and the club is notified.
func (h *FisherHandler) Create(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.ClubID == 0 {
		return badRequest(c, "club_id is required")
	}
	date, err := utils.ParseDate(req.Date)
	if err != nil {
		return badRequest(c, "date must be YYYY-MM-DD")
	}
	res, err := h.Reservations.Create(c.Request().Context(), actor, service.CreateInput{
		ClubID:       req.ClubID,
		BoatKind:     req.BoatKind,
		Capacity:     req.Capacity,
		Date:         date,
		PartySize:    req.PartySize,
		BaitPacks:    req.BaitPacks,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// ListMine handles GET /v1/my-reservations.
func (h *FisherHandler) ListMine(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	items, err := h.Reservations.ListForFisher(c.Request().Context(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/reservations/:id including the history.
func (h *FisherHandler) Get(c echo.Context) error {
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

type modifyReservationReq struct {
	PartySize *int    `json:"party_size"`
	BaitPacks *int    `json:"bait_packs"`
	Date      *string `json:"date"`
}

// Modify handles PATCH /v1/reservations/:id.  Any change sends the
// reservation back to pending.
func (h *FisherHandler) Modify(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	var req modifyReservationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	in := service.ModifyInput{PartySize: req.PartySize, BaitPacks: req.BaitPacks}
	if req.Date != nil && strings.TrimSpace(*req.Date) != "" {
		d, err := utils.ParseDate(*req.Date)
		if err != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
		in.Date = &d
	}
	if in.PartySize == nil && in.BaitPacks == nil && in.Date == nil {
		return badRequest(c, "nothing to change")
	}
	res, err := h.Reservations.Modify(c.Request().Context(), actor, id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Cancel handles POST /v1/reservations/:id/cancel.  Confirmed
// reservations can be cancelled only more than 48 hours ahead.
func (h *FisherHandler) Cancel(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	res, err := h.Reservations.CancelByFisher(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Rate handles PUT /v1/clubs/:id/rating and returns the club with its
// recomputed average.
func (h *FisherHandler) Rate(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	clubID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid club id")
	}
	var req struct {
		Score   int    `json:"score"`
		Comment string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	club, err := h.Ratings.Rate(c.Request().Context(), actor, clubID, req.Score, req.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, club)
}

// MyRating handles GET /v1/clubs/:id/rating.
func (h *FisherHandler) MyRating(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	clubID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid club id")
	}
	rt, err := h.Ratings.Mine(c.Request().Context(), actor, clubID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rt)
}
