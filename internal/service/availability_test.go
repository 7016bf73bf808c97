package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fishing-club-booking/internal/model"
	"github.com/iliyamo/fishing-club-booking/internal/service"
)

func TestRemaining(t *testing.T) {
	day := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	catalog := []model.BoatType{
		{Kind: "motor", Capacity: 3, Count: 2, PriceCents: 100},
		{Kind: "tracker", Capacity: 4, Count: 1},
	}
	res := func(kind string, capacity int, state string, date time.Time) model.Reservation {
		return model.Reservation{BoatKind: kind, Capacity: capacity, State: state, Date: date}
	}
	reservations := []model.Reservation{
		res("motor", 3, model.StatePending, day),
		res("motor", 3, model.StateConfirmed, day.Add(15*time.Hour)),
		res("motor", 3, model.StateConfirmed, day),
		res("motor", 3, model.StateCancelled, day),
		res("motor", 3, model.StatePending, day.AddDate(0, 0, 1)),
		res("motor", 4, model.StatePending, day),
		res("tracker", 4, model.StatePending, time.Time{}),
	}

	got := service.Remaining(catalog, reservations, day)
	require.Equal(t, []service.BoatAvailability{
		{Kind: "motor", Capacity: 3, Count: 2, Remaining: 0, PriceCents: 100},
		{Kind: "tracker", Capacity: 4, Count: 1, Remaining: 1},
	}, got)
}

func TestDateOnly(t *testing.T) {
	loc := time.FixedZone("ART", -3*3600)
	in := time.Date(2026, 5, 2, 23, 30, 0, 0, loc)
	require.Equal(t, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), service.DateOnly(in))
	require.True(t, service.DateOnly(time.Time{}).IsZero())
}

func TestAvailability_TodayUsesBookingZone(t *testing.T) {
	loc := time.FixedZone("ART", -3*3600)
	svc := service.NewAvailabilityService(nil, loc)

	// 23:30 in the booking zone is already the next day in UTC
	svc.Now = func() time.Time { return time.Date(2026, 3, 2, 2, 30, 0, 0, time.UTC) }
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), svc.Today())

	svc.Now = func() time.Time { return time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC) }
	require.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), svc.Today())
}
