package repository

import (
    "context"
    "database/sql"
    "fmt"
    "time"
)

// DBTX is the subset of *sql.DB and *sql.Tx used by the repositories, so
// each repository can run either on the pool or inside a transaction.
type DBTX interface {
    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
    QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx groups repositories bound to one database transaction.
type Tx struct {
    Users         *UserRepo
    Clubs         *ClubRepo
    Reservations  *ReservationRepo
    Ratings       *RatingRepo
    Notifications *NotificationRepo
    Outbox        *OutboxRepo
}

func newTx(q DBTX) *Tx {
    return &Tx{
        Users:         NewUserRepo(q),
        Clubs:         NewClubRepo(q),
        Reservations:  NewReservationRepo(q),
        Ratings:       NewRatingRepo(q),
        Notifications: NewNotificationRepo(q),
        Outbox:        NewOutboxRepo(q),
    }
}

// Store owns the connection pool and hands out repository sets.
type Store struct {
    db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// DB exposes the pool for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Pool returns repositories that run each statement on its own.
func (s *Store) Pool() *Tx { return newTx(s.db) }

// txOptions: plain reads after a row lock see what the lock holder committed.
var txOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// InTx runs fn inside a READ COMMITTED transaction.  The transaction is
// committed when fn returns nil and rolled back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
    tx, err := s.db.BeginTx(ctx, txOptions)
    if err != nil {
        return fmt.Errorf("begin tx: %w", err)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(newTx(tx)); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return fmt.Errorf("commit tx: %w", err)
    }
    committed = true
    return nil
}

// dateArg formats a calendar date for a DATE column; zero means NULL.
func dateArg(t time.Time) any {
    if t.IsZero() {
        return nil
    }
    return t.Format("2006-01-02")
}

// dateOnly truncates t to its UTC calendar day.
func dateOnly(t time.Time) time.Time {
    y, m, d := t.Date()
    return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
