package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/fishing-club-booking/internal/middleware"
	"github.com/iliyamo/fishing-club-booking/internal/repository"
	"github.com/iliyamo/fishing-club-booking/internal/service"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeValidation   = "VALIDATION_FAILED"
	CodeUnavailable  = "UNAVAILABLE"
	CodeInternal     = "INTERNAL_SERVER_ERROR"
)

func errorBody(msg, code string) echo.Map {
	return echo.Map{"error": msg, "code": code}
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody(msg, CodeBadRequest))
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, errorBody(msg, CodeUnauthorized))
}

// classify maps service and repository errors onto a status and code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusUnprocessableEntity, CodeValidation
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, repository.ErrForbidden):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, service.ErrBoatTypeNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrEmailExists),
		errors.Is(err, service.ErrNoAvailability),
		errors.Is(err, service.ErrBaitUnavailable),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrCancelWindowClosed),
		errors.Is(err, service.ErrModifyWindowClosed):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, service.ErrAvailabilityUnknown), errors.Is(err, service.ErrFeatureDisabled):
		return http.StatusServiceUnavailable, CodeUnavailable
	}
	return http.StatusInternalServerError, CodeInternal
}

// respondError writes err as {"error","code"}.  Internal errors are logged
// and their text is not sent to the client.
func respondError(c echo.Context, err error) error {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", middleware.RequestIDFromContext(c.Request().Context())).
			Str("route", c.Path()).
			Msg("request failed")
		msg = "internal server error"
	}
	return c.JSON(status, errorBody(msg, code))
}
