package model

import "time"

// Account roles carried in the JWT "role" claim.
const (
    RoleClub   = "CLUB"
    RoleFisher = "FISHER"
)

// User represents an account as stored in the `users` table.  Clubs and
// fishers share this table; a CLUB user additionally owns the `clubs`
// row with the same id.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – CLUB or FISHER.
//  Name         – display name used as reservation contact default.
//  Phone        – phone used as reservation contact default.
//  IsActive     – whether the account may log in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    Name         string    // users.name
    Phone        string    // users.phone
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token handed to the client is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}

// DeviceToken is an FCM registration token of a user's device.
type DeviceToken struct {
    UserID    uint64    // device_tokens.user_id
    Token     string    // device_tokens.token
    CreatedAt time.Time // device_tokens.created_at
}
