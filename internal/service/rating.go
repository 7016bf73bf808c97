package service

import (
	"context"
	"math"
	"strings"

	"github.com/iliyamo/fishing-club-booking/internal/model"
)

type RatingService struct {
	store Storage
}

func NewRatingService(store Storage) *RatingService { return &RatingService{store: store} }

// Rate stores the fisher's rating of a club, replacing an earlier one,
// and recomputes the club aggregate from all its ratings.
func (s *RatingService) Rate(ctx context.Context, actor Actor, clubID uint64, score int, comment string) (model.Club, error) {
	if !actor.IsFisher() {
		return model.Club{}, ErrForbidden
	}
	if score < 1 || score > 5 {
		return model.Club{}, invalid("score must be between 1 and 5")
	}
	var club model.Club
	err := s.store.InTx(ctx, func(r Repos) error {
		var err error
		if club, err = r.Clubs.LockByID(ctx, clubID); err != nil {
			return err
		}
		if err := r.Ratings.Upsert(ctx, model.Rating{
			FisherID: actor.ID,
			ClubID:   clubID,
			Score:    score,
			Comment:  strings.TrimSpace(comment),
		}); err != nil {
			return err
		}
		sum, count, err := r.Ratings.Aggregate(ctx, clubID)
		if err != nil {
			return err
		}
		club.AverageRating = Average(sum, count)
		club.RatingCount = count
		return r.Clubs.SetRatingAggregate(ctx, clubID, club.AverageRating, count)
	})
	return club, err
}

// Average is sum/count rounded to one decimal; zero when count is zero.
func Average(sum, count int) float64 {
	if count == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(count)*10) / 10
}

func (s *RatingService) ListForClub(ctx context.Context, clubID uint64) ([]model.Rating, error) {
	repos := s.store.Repos()
	if _, err := repos.Clubs.GetByID(ctx, clubID); err != nil {
		return nil, err
	}
	return repos.Ratings.ListByClub(ctx, clubID)
}

func (s *RatingService) Mine(ctx context.Context, actor Actor, clubID uint64) (model.Rating, error) {
	return s.store.Repos().Ratings.Get(ctx, actor.ID, clubID)
}

func (s *RatingService) Rankings(ctx context.Context, limit int) ([]model.ClubRanking, error) {
	return s.store.Repos().Clubs.Rankings(ctx, limit)
}
