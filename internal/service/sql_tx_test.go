package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fishing-club-booking/internal/model"
	"github.com/iliyamo/fishing-club-booking/internal/repository"
	"github.com/iliyamo/fishing-club-booking/internal/service"
)

func newSQLStorage(t *testing.T) (service.Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return service.NewSQLStorage(repository.NewStore(db)), mock
}

var clubColumns = []string{"id", "name", "location", "phone", "logo_url", "average_rating", "rating_count", "created_at", "updated_at"}

func TestCreate_LastUnitCountIsLockingRead(t *testing.T) {
	store, mock := newSQLStorage(t)
	svc := service.NewReservationService(store, time.UTC, "reservation.events", 5)
	svc.Now = func() time.Time { return testNow }

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM clubs WHERE id=\?$`).WithArgs(3).
		WillReturnRows(sqlmock.NewRows(clubColumns).AddRow(3, "Laguna Club", "Cordoba", "", "", 0.0, 0, testNow, testNow))
	mock.ExpectQuery(`FROM boat_types\s+WHERE club_id=\? AND kind=\? AND capacity=\? FOR UPDATE`).
		WithArgs(3, "tracker", 5).
		WillReturnRows(sqlmock.NewRows([]string{"kind", "capacity", "unit_count", "price_cents"}).AddRow("tracker", 5, 1, 25000))
	mock.ExpectQuery(`FROM bait_offers WHERE club_id=\?`).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"available", "price_cents"}).AddRow(true, 500))
	// the unit committed by a concurrent booking is visible to the count
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM reservations(?s).*LOCK IN SHARE MODE`).
		WithArgs(3, "tracker", 5, "2026-03-10", 0).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), service.Actor{ID: 9, Role: model.RoleFisher}, service.CreateInput{
		ClubID: 3, BoatKind: "tracker", Capacity: 5, Date: testDate, PartySize: 2,
	})
	require.ErrorIs(t, err, service.ErrNoAvailability)
}

func TestRate_LocksClubBeforeRecompute(t *testing.T) {
	store, mock := newSQLStorage(t)
	svc := service.NewRatingService(store)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM clubs WHERE id=\? FOR UPDATE`).WithArgs(3).
		WillReturnRows(sqlmock.NewRows(clubColumns).AddRow(3, "Laguna Club", "Cordoba", "", "", 5.0, 1, testNow, testNow))
	mock.ExpectExec(`INSERT INTO ratings`).WithArgs(9, 3, 2, "slow boats").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// the other fisher's rating, committed while this one waited on the lock
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(score\),0\), COUNT\(\*\) FROM ratings`).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"sum", "count"}).AddRow(7, 2))
	mock.ExpectExec(`UPDATE clubs SET average_rating=\?, rating_count=\?`).WithArgs(3.5, 2, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	club, err := svc.Rate(context.Background(), service.Actor{ID: 9, Role: model.RoleFisher}, 3, 2, " slow boats ")
	require.NoError(t, err)
	require.Equal(t, 2, club.RatingCount)
	require.Equal(t, 3.5, club.AverageRating)
}
