package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/fishing-club-booking/internal/model"
)

// RatingRepo stores one rating per (fisher_id, club_id).
type RatingRepo struct{ db DBTX }

func NewRatingRepo(db DBTX) *RatingRepo { return &RatingRepo{db: db} }

// Upsert inserts the rating or overwrites the fisher's previous one.
func (r *RatingRepo) Upsert(ctx context.Context, rt model.Rating) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ratings (fisher_id, club_id, score, comment) VALUES (?,?,?,?)
		 ON DUPLICATE KEY UPDATE score=VALUES(score), comment=VALUES(comment)`,
		rt.FisherID, rt.ClubID, rt.Score, rt.Comment)
	return err
}

// Aggregate returns the score sum and count of a club's ratings.
func (r *RatingRepo) Aggregate(ctx context.Context, clubID uint64) (sum int, count int, err error) {
	err = r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(score),0), COUNT(*) FROM ratings WHERE club_id=?", clubID).Scan(&sum, &count)
	return sum, count, err
}

// Get returns the rating a fisher gave a club.
func (r *RatingRepo) Get(ctx context.Context, fisherID, clubID uint64) (model.Rating, error) {
	var (
		rt      model.Rating
		comment sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT rt.fisher_id, rt.club_id, u.name, rt.score, rt.comment, rt.created_at, rt.updated_at
		 FROM ratings rt JOIN users u ON u.id = rt.fisher_id
		 WHERE rt.fisher_id=? AND rt.club_id=?`, fisherID, clubID).
		Scan(&rt.FisherID, &rt.ClubID, &rt.FisherName, &rt.Score, &comment, &rt.CreatedAt, &rt.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rt, ErrNotFound
	}
	rt.Comment = comment.String
	return rt, err
}

// ListByClub returns a club's ratings, newest first.
func (r *RatingRepo) ListByClub(ctx context.Context, clubID uint64) ([]model.Rating, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT rt.fisher_id, rt.club_id, u.name, rt.score, rt.comment, rt.created_at, rt.updated_at
		 FROM ratings rt JOIN users u ON u.id = rt.fisher_id
		 WHERE rt.club_id=? ORDER BY rt.updated_at DESC`, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Rating{}
	for rows.Next() {
		var (
			rt      model.Rating
			comment sql.NullString
		)
		if err := rows.Scan(&rt.FisherID, &rt.ClubID, &rt.FisherName, &rt.Score, &comment, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
			return nil, err
		}
		rt.Comment = comment.String
		out = append(out, rt)
	}
	return out, rows.Err()
}
