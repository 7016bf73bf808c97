package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fishing-club-booking/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestTokenRepo_ValidateRefresh(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	query := q("SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1")
	cols := []string{"user_id", "expires_at", "revoked_at"}

	mock.ExpectQuery(query).WithArgs("ok").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(7, now.Add(time.Hour), nil))
	mock.ExpectQuery(query).WithArgs("revoked").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(7, now.Add(time.Hour), now.Add(-time.Minute)))
	mock.ExpectQuery(query).WithArgs("expired").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(7, now, nil))
	mock.ExpectQuery(query).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	id, err := repo.ValidateRefresh(context.Background(), "ok", now)
	require.NoError(t, err)
	require.EqualValues(t, 7, id)

	for _, hash := range []string{"revoked", "expired", "missing"} {
		_, err := repo.ValidateRefresh(context.Background(), hash, now)
		require.ErrorIs(t, err, ErrNotFound, hash)
	}
}

func TestTokenRepo_RevokeByHash(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	stmt := q("UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL")

	mock.ExpectExec(stmt).WithArgs("a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(stmt).WithArgs("a").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.RevokeByHash(context.Background(), "a"))
	require.ErrorIs(t, repo.RevokeByHash(context.Background(), "a"), ErrNotFound)
}

func TestClubRepo_LockBoatType(t *testing.T) {
	db, mock := newMock(t)
	repo := NewClubRepo(db)
	query := q(`SELECT kind, capacity, unit_count, price_cents FROM boat_types`)

	mock.ExpectQuery(query).WithArgs(uint64(3), "motor", 3).
		WillReturnRows(sqlmock.NewRows([]string{"kind", "capacity", "unit_count", "price_cents"}).AddRow("motor", 3, 2, 10000))
	mock.ExpectQuery(query).WithArgs(uint64(3), "canoe", 2).WillReturnError(sql.ErrNoRows)

	b, err := repo.LockBoatType(context.Background(), 3, model.BoatKey{Kind: "motor", Capacity: 3})
	require.NoError(t, err)
	require.Equal(t, model.BoatType{Kind: "motor", Capacity: 3, Count: 2, PriceCents: 10000}, b)

	_, err = repo.LockBoatType(context.Background(), 3, model.BoatKey{Kind: "canoe", Capacity: 2})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClubRepo_LockByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewClubRepo(db)
	query := q("SELECT "+clubCols+" FROM clubs WHERE id=? FOR UPDATE")
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(query).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "location", "phone", "logo_url", "average_rating", "rating_count", "created_at", "updated_at"}).
			AddRow(3, "Laguna Club", "Cordoba", "", "", 4.5, 2, created, created))
	mock.ExpectQuery(query).WithArgs(uint64(4)).WillReturnError(sql.ErrNoRows)

	c, err := repo.LockByID(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 2, c.RatingCount)

	_, err = repo.LockByID(context.Background(), 4)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClubRepo_ReplaceBoatTypes(t *testing.T) {
	db, mock := newMock(t)
	repo := NewClubRepo(db)

	mock.ExpectExec(q("DELETE FROM boat_types WHERE club_id=?")).WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(q("INSERT INTO boat_types (club_id, kind, capacity, unit_count, price_cents) VALUES")).
		WithArgs(uint64(3), "motor", 3, 2, int64(100), uint64(3), "tracker", 5, 1, int64(300)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.ReplaceBoatTypes(context.Background(), 3, []model.BoatType{
		{Kind: "motor", Capacity: 3, Count: 2, PriceCents: 100},
		{Kind: "tracker", Capacity: 5, Count: 1, PriceCents: 300},
	})
	require.NoError(t, err)
}

func TestReservationRepo_CountActive(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepo(db)
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("SELECT COUNT(*) FROM reservations") + `(?s).*LOCK IN SHARE MODE`).
		WithArgs(uint64(3), "motor", 3, "2026-03-10", uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))

	n, err := repo.CountActive(context.Background(), 3, model.BoatKey{Kind: "motor", Capacity: 3}, date, 9)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestOutboxRepo_ClaimPending(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOutboxRepo(db)
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("SELECT id, event_id, topic, payload, attempts, created_at FROM outbox_events")).
		WithArgs(20, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "topic", "payload", "attempts", "created_at"}).
			AddRow(1, "ev-1", "reservation.events", []byte(`{"a":1}`), 0, created).
			AddRow(2, "ev-2", "reservation.events", []byte(`{"a":2}`), 3, created))

	events, err := repo.ClaimPending(context.Background(), 50, 20)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "ev-2", events[1].EventID)
	require.Equal(t, 3, events[1].Attempts)
	require.JSONEq(t, `{"a":1}`, string(events[0].Payload))
}

func TestStore_InTx(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE outbox_events SET attempts=attempts+1 WHERE id=?")).WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	err := store.InTx(context.Background(), func(tx *Tx) error {
		return tx.Outbox.MarkFailed(context.Background(), 5)
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()
	err = store.InTx(context.Background(), func(*Tx) error { return boom })
	require.ErrorIs(t, err, boom)
}

func TestStore_InTxUsesReadCommitted(t *testing.T) {
	// reads after LockBoatType must not reuse a snapshot taken before it
	require.Equal(t, sql.LevelReadCommitted, txOptions.Isolation)
	require.False(t, txOptions.ReadOnly)
}
