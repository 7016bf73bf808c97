package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/fishing-club-booking/internal/model"
)

// ReservationRepo provides persistence for reservations and their
// append-only history.  Dates are DATE columns; a NULL date marks a
// legacy row that never occupies stock.
type ReservationRepo struct {
	db DBTX
}

// NewReservationRepo returns a ReservationRepo bound to db (pool or tx).
func NewReservationRepo(db DBTX) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationCols = `id, club_id, club_name, fisher_id, contact_name, contact_email, contact_phone,
	boat_kind, capacity, party_size, bait_packs, date, state, message,
	boat_price_cents, bait_price_cents, total_cents, created_at, updated_at`

func scanReservation(s interface{ Scan(...any) error }) (model.Reservation, error) {
	var (
		r       model.Reservation
		date    sql.NullTime
		message sql.NullString
	)
	err := s.Scan(&r.ID, &r.ClubID, &r.ClubName, &r.FisherID, &r.ContactName, &r.ContactEmail, &r.ContactPhone,
		&r.BoatKind, &r.Capacity, &r.PartySize, &r.BaitPacks, &date, &r.State, &message,
		&r.BoatPriceCents, &r.BaitPriceCents, &r.TotalCents, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	if date.Valid {
		r.Date = dateOnly(date.Time)
	}
	r.Message = message.String
	return r, nil
}

func collectReservations(rows *sql.Rows) ([]model.Reservation, error) {
	defer rows.Close()
	out := []model.Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Create inserts res and fills its ID and timestamps.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations (club_id, club_name, fisher_id, contact_name, contact_email, contact_phone,
		boat_kind, capacity, party_size, bait_packs, date, state, message,
		boat_price_cents, bait_price_cents, total_cents)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	result, err := r.db.ExecContext(ctx, q,
		res.ClubID, res.ClubName, res.FisherID, res.ContactName, res.ContactEmail, res.ContactPhone,
		res.BoatKind, res.Capacity, res.PartySize, res.BaitPacks, dateArg(res.Date), res.State, res.Message,
		res.BoatPriceCents, res.BaitPriceCents, res.TotalCents)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	// read back to populate defaults and timestamps
	stored, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*res = stored
	return nil
}

func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx,
		"SELECT "+reservationCols+" FROM reservations WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return res, ErrNotFound
	}
	return res, err
}

// GetForUpdate reads a reservation with a row lock; only meaningful
// inside a transaction.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, id uint64) (model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx,
		"SELECT "+reservationCols+" FROM reservations WHERE id=? FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return res, ErrNotFound
	}
	return res, err
}

// Update writes the mutable fields of res.
func (r *ReservationRepo) Update(ctx context.Context, res model.Reservation) error {
	const q = `UPDATE reservations SET party_size=?, bait_packs=?, date=?, state=?, message=?, total_cents=?
		WHERE id=?`
	result, err := r.db.ExecContext(ctx, q,
		res.PartySize, res.BaitPacks, dateArg(res.Date), res.State, res.Message, res.TotalCents, res.ID)
	return requireRow(result, err)
}

// ListActiveByClubDate returns pending and confirmed reservations of a
// club on date.
func (r *ReservationRepo) ListActiveByClubDate(ctx context.Context, clubID uint64, date time.Time) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reservationCols+` FROM reservations
		 WHERE club_id=? AND date=? AND state IN ('PENDING','CONFIRMED')`,
		clubID, dateArg(date))
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

// CountActive counts pending and confirmed reservations of one boat type
// on date, ignoring excludeID (0 excludes nothing).  It is a locking read
// so it sees rows committed while the caller waited on the boat type lock.
func (r *ReservationRepo) CountActive(ctx context.Context, clubID uint64, key model.BoatKey, date time.Time, excludeID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations
		 WHERE club_id=? AND boat_kind=? AND capacity=? AND date=? AND state IN ('PENDING','CONFIRMED') AND id<>?
		 LOCK IN SHARE MODE`,
		clubID, key.Kind, key.Capacity, dateArg(date), excludeID).Scan(&n)
	return n, err
}

// ListByFisher returns a fisher's reservations, newest date first.
func (r *ReservationRepo) ListByFisher(ctx context.Context, fisherID uint64) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reservationCols+" FROM reservations WHERE fisher_id=? ORDER BY date DESC, id DESC", fisherID)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

// ClubFilter narrows the club reservation list.  From/To bound the date
// (inclusive From, exclusive To) when non-zero; State empty means all.
type ClubFilter struct {
	ClubID uint64
	From   time.Time
	To     time.Time
	State  string
	Limit  int
	Offset int
}

func (f ClubFilter) where() (string, []any) {
	conds := []string{"club_id=?"}
	args := []any{f.ClubID}
	if !f.From.IsZero() {
		conds = append(conds, "date>=?")
		args = append(args, dateArg(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "date<?")
		args = append(args, dateArg(f.To))
	}
	if f.State != "" {
		conds = append(conds, "state=?")
		args = append(args, f.State)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListByClub returns one page of a club's reservations (newest date
// first) and the total number of matching rows.
func (r *ReservationRepo) ListByClub(ctx context.Context, f ClubFilter) ([]model.Reservation, int, error) {
	where, args := f.where()
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reservations"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 5
	}
	pageArgs := append(append([]any{}, args...), limit, f.Offset)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reservationCols+" FROM reservations"+where+" ORDER BY date DESC, id DESC LIMIT ? OFFSET ?",
		pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectReservations(rows)
	return items, total, err
}

// AppendHistory adds one history entry.
func (r *ReservationRepo) AppendHistory(ctx context.Context, h model.HistoryEntry) error {
	var details any
	if h.Details != "" {
		details = h.Details
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reservation_history (reservation_id, action, actor_role, actor_id, from_state, to_state, details)
		 VALUES (?,?,?,?,?,?,?)`,
		h.ReservationID, h.Action, h.ActorRole, h.ActorID, h.FromState, h.ToState, details)
	return err
}

// History returns the entries of a reservation in insertion order.
func (r *ReservationRepo) History(ctx context.Context, reservationID uint64) ([]model.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, reservation_id, action, actor_role, actor_id, from_state, to_state, details, created_at
		 FROM reservation_history WHERE reservation_id=? ORDER BY id`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.HistoryEntry{}
	for rows.Next() {
		var (
			h       model.HistoryEntry
			details sql.NullString
		)
		if err := rows.Scan(&h.ID, &h.ReservationID, &h.Action, &h.ActorRole, &h.ActorID,
			&h.FromState, &h.ToState, &details, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.Details = details.String
		out = append(out, h)
	}
	return out, rows.Err()
}
