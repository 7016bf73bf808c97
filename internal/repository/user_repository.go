package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/fishing-club-booking/internal/database"
	"github.com/iliyamo/fishing-club-booking/internal/model"
	"github.com/iliyamo/fishing-club-booking/internal/utils"
)

type UserRepo struct{ db DBTX }

func NewUserRepo(db DBTX) *UserRepo { return &UserRepo{db: db} }

// NewUser carries registration input.
type NewUser struct {
	Email    string
	Password string
	Role     string
	Name     string
	Phone    string
}

// Create hashes the password, inserts the user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, in NewUser, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, name, phone) VALUES (?,?,?,?,?)",
		email, hash, in.Role, strings.TrimSpace(in.Name), strings.TrimSpace(in.Phone))
	if err != nil {
		if database.IsDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

const userCols = "id,email,password_hash,role,name,phone,is_active,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name, &u.Phone, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// AddDeviceToken registers an FCM token for the user; re-registering is a no-op.
func (r *UserRepo) AddDeviceToken(ctx context.Context, userID uint64, token string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT IGNORE INTO device_tokens (user_id, token) VALUES (?,?)", userID, token)
	return err
}

// DeviceTokens lists the FCM tokens of a user.
func (r *UserRepo) DeviceTokens(ctx context.Context, userID uint64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT token FROM device_tokens WHERE user_id=? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RemoveDeviceToken drops a token FCM reported as unregistered.
func (r *UserRepo) RemoveDeviceToken(ctx context.Context, userID uint64, token string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM device_tokens WHERE user_id=? AND token=?", userID, token)
	return err
}
