package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/fishing-club-booking/internal/realtime"
	"github.com/iliyamo/fishing-club-booking/internal/service"
)

// NotificationHandler serves the notification inbox of either role and
// the websocket that streams new notifications.
type NotificationHandler struct {
	Notifications *service.NotificationService
	Hub           *realtime.Hub
}

func NewNotificationHandler(ns *service.NotificationService, hub *realtime.Hub) *NotificationHandler {
	if ns == nil {
		panic("nil service passed to NewNotificationHandler")
	}
	return &NotificationHandler{Notifications: ns, Hub: hub}
}

// List handles GET /v1/notifications?unread=true&limit=.
func (h *NotificationHandler) List(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	unread := strings.EqualFold(c.QueryParam("unread"), "true") || c.QueryParam("unread") == "1"
	items, err := h.Notifications.List(c.Request().Context(), actor, unread, queryInt(c, "limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// UnreadCount handles GET /v1/notifications/unread-count.
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	n, err := h.Notifications.UnreadCount(c.Request().Context(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": n})
}

// MarkRead handles PATCH /v1/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid notification id")
	}
	if err := h.Notifications.MarkRead(c.Request().Context(), actor, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllRead handles POST /v1/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	n, err := h.Notifications.MarkAllRead(c.Request().Context(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

// Stream handles GET /v1/ws.  The connection then receives every new
// notification addressed to the caller.
func (h *NotificationHandler) Stream(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	if h.Hub == nil {
		return respondError(c, service.ErrFeatureDisabled)
	}
	if err := h.Hub.Serve(c.Response(), c.Request(), actor.ID, actor.Role); err != nil {
		// the upgrader has already written the HTTP error
		log.Debug().Err(err).Uint64("user_id", actor.ID).Msg("websocket upgrade failed")
	}
	return nil
}
