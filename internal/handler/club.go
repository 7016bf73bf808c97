package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fishing-club-booking/internal/model"
	"github.com/iliyamo/fishing-club-booking/internal/service"
)

// ClubHandler serves a club's own profile, catalog, bait and ratings.  A
// club's id is its user id, so no club id appears in these paths.
type ClubHandler struct {
	Inventory *service.InventoryService
	Ratings   *service.RatingService
	Logos     *service.LogoStorage
}

func NewClubHandler(inv *service.InventoryService, ratings *service.RatingService, logos *service.LogoStorage) *ClubHandler {
	if inv == nil || ratings == nil {
		panic("nil service passed to NewClubHandler")
	}
	return &ClubHandler{Inventory: inv, Ratings: ratings, Logos: logos}
}

// Profile handles GET /v1/club/profile.
func (h *ClubHandler) Profile(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	club, err := h.Inventory.Club(c.Request().Context(), actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, club)
}

// UpdateProfile handles PUT /v1/club/profile.
func (h *ClubHandler) UpdateProfile(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	var req service.ProfileInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	club, err := h.Inventory.UpdateProfile(c.Request().Context(), actor, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, club)
}

// UploadLogo handles POST /v1/club/logo (multipart field "logo").
func (h *ClubHandler) UploadLogo(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	if h.Logos == nil {
		return respondError(c, service.ErrFeatureDisabled)
	}
	fh, err := c.FormFile("logo")
	if err != nil {
		return badRequest(c, "multipart field \"logo\" is required")
	}
	if fh.Size > h.Logos.MaxBytes() {
		return c.JSON(http.StatusRequestEntityTooLarge, errorBody("file too large", CodeValidation))
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "cannot read upload")
	}
	defer f.Close()

	ctx := c.Request().Context()
	url, err := h.Logos.StoreLogo(ctx, actor.ID, f)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Inventory.SetLogo(ctx, actor, url); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"logo_url": url})
}

// Boats handles GET /v1/club/boats.
func (h *ClubHandler) Boats(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	boats, err := h.Inventory.Catalog(c.Request().Context(), actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": boats})
}

// ReplaceBoats handles PUT /v1/club/boats with {"items": [...]}.
func (h *ClubHandler) ReplaceBoats(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	var req struct {
		Items []model.BoatType `json:"items"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	boats, err := h.Inventory.ReplaceCatalog(c.Request().Context(), actor, req.Items)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": boats})
}

// UpsertBoat handles PUT /v1/club/boats/item.
func (h *ClubHandler) UpsertBoat(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	var req model.BoatType
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	b, err := h.Inventory.UpsertBoatType(c.Request().Context(), actor, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// DeleteBoat handles DELETE /v1/club/boats?kind=&capacity=.
func (h *ClubHandler) DeleteBoat(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	capacity, err := strconv.Atoi(c.QueryParam("capacity"))
	if err != nil || c.QueryParam("kind") == "" {
		return badRequest(c, "kind and capacity are required")
	}
	key := model.BoatKey{Kind: c.QueryParam("kind"), Capacity: capacity}
	if err := h.Inventory.DeleteBoatType(c.Request().Context(), actor, key); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Bait handles GET /v1/club/bait.
func (h *ClubHandler) Bait(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	b, err := h.Inventory.Bait(c.Request().Context(), actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// SetBait handles PUT /v1/club/bait.
func (h *ClubHandler) SetBait(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	var req model.BaitOffer
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	b, err := h.Inventory.SetBait(c.Request().Context(), actor, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// ListRatings handles GET /v1/club/ratings.
func (h *ClubHandler) ListRatings(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	items, err := h.Ratings.ListForClub(c.Request().Context(), actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
