package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/fishing-club-booking/internal/metrics"
	"github.com/iliyamo/fishing-club-booking/internal/model"
)

// BoatAvailability is the remaining stock of one catalog entry on a date.
type BoatAvailability struct {
	Kind       string `json:"kind"`
	Capacity   int    `json:"capacity"`
	Count      int    `json:"count"`
	Remaining  int    `json:"remaining"`
	PriceCents int64  `json:"price_cents"`
}

// Remaining derives per boat type stock for date.  Only pending and
// confirmed reservations carrying a date equal to date occupy a unit;
// matching is by (kind, capacity).  The result is never negative.
func Remaining(catalog []model.BoatType, reservations []model.Reservation, date time.Time) []BoatAvailability {
	day := DateOnly(date)
	active := make(map[model.BoatKey]int, len(catalog))
	for _, r := range reservations {
		if !r.HasDate() || !model.IsActiveState(r.State) || !DateOnly(r.Date).Equal(day) {
			continue
		}
		active[model.BoatKey{Kind: r.BoatKind, Capacity: r.Capacity}]++
	}
	out := make([]BoatAvailability, 0, len(catalog))
	for _, b := range catalog {
		left := b.Count - active[b.Key()]
		if left < 0 {
			left = 0
		}
		out = append(out, BoatAvailability{
			Kind:       b.Kind,
			Capacity:   b.Capacity,
			Count:      b.Count,
			Remaining:  left,
			PriceCents: b.PriceCents,
		})
	}
	return out
}

// DateOnly truncates t to its calendar day as a UTC midnight value.
func DateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type AvailabilityService struct {
	store Storage
	loc   *time.Location
	// Now is the clock; tests replace it.
	Now func() time.Time
}

// NewAvailabilityService reads stock through store.  loc is the booking
// zone that decides which calendar day "today" is; nil means UTC.
func NewAvailabilityService(store Storage, loc *time.Location) *AvailabilityService {
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityService{store: store, loc: loc, Now: time.Now}
}

// Today is the current calendar date in the booking zone.
func (s *AvailabilityService) Today() time.Time {
	return DateOnly(s.Now().In(s.loc))
}

// ForDate loads a club's catalog and the active reservations of date.  It
// fails closed: any load error yields ErrAvailabilityUnknown and no data.
func (s *AvailabilityService) ForDate(ctx context.Context, clubID uint64, date time.Time) ([]BoatAvailability, error) {
	if date.IsZero() {
		return nil, invalid("date is required")
	}
	repos := s.store.Repos()
	if _, err := repos.Clubs.GetByID(ctx, clubID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.failClosed(clubID, err)
	}
	catalog, err := repos.Clubs.ListBoatTypes(ctx, clubID)
	if err != nil {
		return nil, s.failClosed(clubID, err)
	}
	active, err := repos.Reservations.ListActiveByClubDate(ctx, clubID, DateOnly(date))
	if err != nil {
		return nil, s.failClosed(clubID, err)
	}
	return Remaining(catalog, active, date), nil
}

func (s *AvailabilityService) failClosed(clubID uint64, err error) error {
	metrics.AvailabilityFailures.Inc()
	log.Error().Err(err).Uint64("club_id", clubID).Msg("availability lookup failed")
	return fmt.Errorf("%w: %v", ErrAvailabilityUnknown, err)
}
