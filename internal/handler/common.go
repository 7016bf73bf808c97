package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fishing-club-booking/internal/middleware"
	"github.com/iliyamo/fishing-club-booking/internal/service"
)

// actorFrom builds the caller identity stored by the JWT middleware.
func actorFrom(c echo.Context) (service.Actor, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{ID: id, Role: middleware.Role(c)}, true
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// queryInt returns def when the parameter is absent or not a number.
func queryInt(c echo.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.QueryParam(name)); err == nil {
		return v
	}
	return def
}

func parseUint(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) }
