// Package service holds the booking rules: availability, the reservation
// lifecycle, inventory, ratings and notifications.  Services talk to
// storage through the interfaces below so the same code runs on MySQL and
// on the in-memory store used by tests.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/fishing-club-booking/internal/model"
	"github.com/iliyamo/fishing-club-booking/internal/repository"
)

type UserRepo interface {
	Create(ctx context.Context, in repository.NewUser, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	AddDeviceToken(ctx context.Context, userID uint64, token string) error
	DeviceTokens(ctx context.Context, userID uint64) ([]string, error)
	RemoveDeviceToken(ctx context.Context, userID uint64, token string) error
}

type ClubRepo interface {
	Create(ctx context.Context, c model.Club) error
	GetByID(ctx context.Context, id uint64) (model.Club, error)
	LockByID(ctx context.Context, id uint64) (model.Club, error)
	List(ctx context.Context) ([]model.Club, error)
	UpdateProfile(ctx context.Context, id uint64, name, location, phone string) error
	SetLogo(ctx context.Context, id uint64, url string) error
	SetRatingAggregate(ctx context.Context, id uint64, avg float64, count int) error
	Rankings(ctx context.Context, limit int) ([]model.ClubRanking, error)
	ListBoatTypes(ctx context.Context, clubID uint64) ([]model.BoatType, error)
	LockBoatType(ctx context.Context, clubID uint64, key model.BoatKey) (model.BoatType, error)
	ReplaceBoatTypes(ctx context.Context, clubID uint64, boats []model.BoatType) error
	UpsertBoatType(ctx context.Context, clubID uint64, b model.BoatType) error
	DeleteBoatType(ctx context.Context, clubID uint64, key model.BoatKey) error
	GetBait(ctx context.Context, clubID uint64) (model.BaitOffer, error)
	SetBait(ctx context.Context, clubID uint64, b model.BaitOffer) error
}

type ReservationRepo interface {
	Create(ctx context.Context, res *model.Reservation) error
	GetByID(ctx context.Context, id uint64) (model.Reservation, error)
	GetForUpdate(ctx context.Context, id uint64) (model.Reservation, error)
	Update(ctx context.Context, res model.Reservation) error
	ListActiveByClubDate(ctx context.Context, clubID uint64, date time.Time) ([]model.Reservation, error)
	CountActive(ctx context.Context, clubID uint64, key model.BoatKey, date time.Time, excludeID uint64) (int, error)
	ListByFisher(ctx context.Context, fisherID uint64) ([]model.Reservation, error)
	ListByClub(ctx context.Context, f repository.ClubFilter) ([]model.Reservation, int, error)
	AppendHistory(ctx context.Context, h model.HistoryEntry) error
	History(ctx context.Context, reservationID uint64) ([]model.HistoryEntry, error)
}

type RatingRepo interface {
	Upsert(ctx context.Context, rt model.Rating) error
	Aggregate(ctx context.Context, clubID uint64) (sum int, count int, err error)
	Get(ctx context.Context, fisherID, clubID uint64) (model.Rating, error)
	ListByClub(ctx context.Context, clubID uint64) ([]model.Rating, error)
}

type NotificationRepo interface {
	Create(ctx context.Context, n *model.Notification) error
	List(ctx context.Context, role string, targetID uint64, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, id uint64, role string, targetID uint64) error
	MarkAllRead(ctx context.Context, role string, targetID uint64) (int64, error)
	CountUnread(ctx context.Context, role string, targetID uint64) (int, error)
}

type OutboxRepo interface {
	Enqueue(ctx context.Context, ev *model.OutboxEvent) error
	ClaimPending(ctx context.Context, limit, maxAttempts int) ([]model.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uint64, at time.Time) error
	MarkFailed(ctx context.Context, id uint64) error
}

// Repos is one set of repositories sharing a connection or transaction.
type Repos struct {
	Users         UserRepo
	Clubs         ClubRepo
	Reservations  ReservationRepo
	Ratings       RatingRepo
	Notifications NotificationRepo
	Outbox        OutboxRepo
}

// Storage hands out repositories.  InTx commits when fn returns nil and
// rolls back otherwise.
type Storage interface {
	Repos() Repos
	InTx(ctx context.Context, fn func(Repos) error) error
}

type sqlStorage struct{ store *repository.Store }

// NewSQLStorage adapts the MySQL repository store.
func NewSQLStorage(store *repository.Store) Storage { return sqlStorage{store: store} }

func reposOf(tx *repository.Tx) Repos {
	return Repos{
		Users:         tx.Users,
		Clubs:         tx.Clubs,
		Reservations:  tx.Reservations,
		Ratings:       tx.Ratings,
		Notifications: tx.Notifications,
		Outbox:        tx.Outbox,
	}
}

func (s sqlStorage) Repos() Repos { return reposOf(s.store.Pool()) }

func (s sqlStorage) InTx(ctx context.Context, fn func(Repos) error) error {
	return s.store.InTx(ctx, func(tx *repository.Tx) error { return fn(reposOf(tx)) })
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uint64
	Role string
}

func (a Actor) IsClub() bool   { return a.Role == model.RoleClub }
func (a Actor) IsFisher() bool { return a.Role == model.RoleFisher }
