package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/fishing-club-booking/internal/repository"
)

// Storage level sentinels are shared so errors.Is works across layers.
var (
	ErrNotFound  = repository.ErrNotFound
	ErrForbidden = repository.ErrForbidden
	ErrConflict  = repository.ErrConflict

	ErrEmailExists = repository.ErrEmailExists
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNoAvailability     = errors.New("no availability for the selected boat and date")
	ErrBoatTypeNotFound   = errors.New("boat type not offered by this club")
	ErrBaitUnavailable    = errors.New("bait is not available at this club")
	ErrInvalidTransition  = errors.New("reservation cannot change from its current state")
	ErrCancelWindowClosed = errors.New("confirmed reservations can only be cancelled more than 48 hours before the date")
	ErrModifyWindowClosed = errors.New("reservations can only be modified more than 24 hours before the date")
	// ErrAvailabilityUnknown means stock could not be loaded; callers
	// must treat every boat type as unavailable.
	ErrAvailabilityUnknown = errors.New("availability could not be determined")
	ErrFeatureDisabled     = errors.New("feature not configured")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// transitionError names the rule that refused a state change.
func transitionError(from, action string) error {
	return fmt.Errorf("%w: cannot %s a %s reservation", ErrInvalidTransition, action, from)
}
