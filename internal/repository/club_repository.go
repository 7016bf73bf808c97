package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/fishing-club-booking/internal/database"
	"github.com/iliyamo/fishing-club-booking/internal/model"
)

// ClubRepo covers clubs, their boat catalog and bait offer.  The catalog
// lives in boat_types with one row per (club_id, kind, capacity).
type ClubRepo struct{ db DBTX }

func NewClubRepo(db DBTX) *ClubRepo { return &ClubRepo{db: db} }

const clubCols = "id,name,location,phone,logo_url,average_rating,rating_count,created_at,updated_at"

func scanClub(s interface{ Scan(...any) error }) (model.Club, error) {
	var c model.Club
	err := s.Scan(&c.ID, &c.Name, &c.Location, &c.Phone, &c.LogoURL, &c.AverageRating, &c.RatingCount, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create inserts the club row; c.ID must be the owning user's id.
func (r *ClubRepo) Create(ctx context.Context, c model.Club) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO clubs (id, name, location, phone) VALUES (?,?,?,?)",
		c.ID, strings.TrimSpace(c.Name), strings.TrimSpace(c.Location), strings.TrimSpace(c.Phone))
	if database.IsDuplicateKey(err) {
		return ErrConflict
	}
	return err
}

func (r *ClubRepo) GetByID(ctx context.Context, id uint64) (model.Club, error) {
	c, err := scanClub(r.db.QueryRowContext(ctx, "SELECT "+clubCols+" FROM clubs WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

// LockByID reads the club row FOR UPDATE.  Rating writes for one club
// serialize on it so each recompute sees the ratings committed before it.
func (r *ClubRepo) LockByID(ctx context.Context, id uint64) (model.Club, error) {
	c, err := scanClub(r.db.QueryRowContext(ctx, "SELECT "+clubCols+" FROM clubs WHERE id=? FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

// List returns all clubs ordered by name.
func (r *ClubRepo) List(ctx context.Context) ([]model.Club, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+clubCols+" FROM clubs ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Club{}
	for rows.Next() {
		c, err := scanClub(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ClubRepo) UpdateProfile(ctx context.Context, id uint64, name, location, phone string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE clubs SET name=?, location=?, phone=? WHERE id=?",
		strings.TrimSpace(name), strings.TrimSpace(location), strings.TrimSpace(phone), id)
	return requireRow(res, err)
}

func (r *ClubRepo) SetLogo(ctx context.Context, id uint64, url string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE clubs SET logo_url=? WHERE id=?", url, id)
	return requireRow(res, err)
}

// SetRatingAggregate stores the recomputed rating average and count.
func (r *ClubRepo) SetRatingAggregate(ctx context.Context, id uint64, avg float64, count int) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE clubs SET average_rating=?, rating_count=? WHERE id=?", avg, count, id)
	return err
}

// Rankings lists rated clubs by average then count, best first.
func (r *ClubRepo) Rankings(ctx context.Context, limit int) ([]model.ClubRanking, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, logo_url, average_rating, rating_count FROM clubs
		 WHERE rating_count > 0 ORDER BY average_rating DESC, rating_count DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ClubRanking{}
	for rows.Next() {
		var cr model.ClubRanking
		if err := rows.Scan(&cr.ClubID, &cr.Name, &cr.LogoURL, &cr.AverageRating, &cr.RatingCount); err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

// ---- catalog ----

func (r *ClubRepo) ListBoatTypes(ctx context.Context, clubID uint64) ([]model.BoatType, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT kind, capacity, unit_count, price_cents FROM boat_types WHERE club_id=? ORDER BY kind, capacity", clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BoatType{}
	for rows.Next() {
		var b model.BoatType
		if err := rows.Scan(&b.Kind, &b.Capacity, &b.Count, &b.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// LockBoatType reads one catalog entry with a row lock.  Concurrent
// bookings of the same boat type serialize on this lock until commit.
func (r *ClubRepo) LockBoatType(ctx context.Context, clubID uint64, key model.BoatKey) (model.BoatType, error) {
	var b model.BoatType
	err := r.db.QueryRowContext(ctx,
		`SELECT kind, capacity, unit_count, price_cents FROM boat_types
		 WHERE club_id=? AND kind=? AND capacity=? FOR UPDATE`,
		clubID, key.Kind, key.Capacity).Scan(&b.Kind, &b.Capacity, &b.Count, &b.PriceCents)
	if errors.Is(err, sql.ErrNoRows) {
		return b, ErrNotFound
	}
	return b, err
}

// ReplaceBoatTypes swaps the whole catalog of a club.
func (r *ClubRepo) ReplaceBoatTypes(ctx context.Context, clubID uint64, boats []model.BoatType) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM boat_types WHERE club_id=?", clubID); err != nil {
		return err
	}
	if len(boats) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("INSERT INTO boat_types (club_id, kind, capacity, unit_count, price_cents) VALUES ")
	args := make([]any, 0, len(boats)*5)
	for i, b := range boats {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?,?,?,?,?)")
		args = append(args, clubID, b.Kind, b.Capacity, b.Count, b.PriceCents)
	}
	_, err := r.db.ExecContext(ctx, sb.String(), args...)
	if database.IsDuplicateKey(err) {
		return ErrConflict
	}
	return err
}

// UpsertBoatType inserts or updates a single catalog entry.
func (r *ClubRepo) UpsertBoatType(ctx context.Context, clubID uint64, b model.BoatType) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO boat_types (club_id, kind, capacity, unit_count, price_cents) VALUES (?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE unit_count=VALUES(unit_count), price_cents=VALUES(price_cents)`,
		clubID, b.Kind, b.Capacity, b.Count, b.PriceCents)
	return err
}

func (r *ClubRepo) DeleteBoatType(ctx context.Context, clubID uint64, key model.BoatKey) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM boat_types WHERE club_id=? AND kind=? AND capacity=?", clubID, key.Kind, key.Capacity)
	return requireRow(res, err)
}

// GetBait returns the bait offer; clubs without a row get the default
// (available, price 0).
func (r *ClubRepo) GetBait(ctx context.Context, clubID uint64) (model.BaitOffer, error) {
	b := model.BaitOffer{Available: true}
	err := r.db.QueryRowContext(ctx,
		"SELECT available, price_cents FROM bait_offers WHERE club_id=?", clubID).Scan(&b.Available, &b.PriceCents)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BaitOffer{Available: true}, nil
	}
	return b, err
}

func (r *ClubRepo) SetBait(ctx context.Context, clubID uint64, b model.BaitOffer) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bait_offers (club_id, available, price_cents) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE available=VALUES(available), price_cents=VALUES(price_cents)`,
		clubID, b.Available, b.PriceCents)
	return err
}

func requireRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
