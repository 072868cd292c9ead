package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrStoreCorrupt = errors.New("user store is unreadable")
)

// User is the persisted record. Password holds the bcrypt hash only.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Password     string     `json:"password"`
	Name         string     `json:"name"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLogin    *time.Time `json:"lastLogin"`
	RefreshToken *string    `json:"refreshToken"`
}

// HasRefreshToken reports whether token is the user's current refresh token.
func (u *User) HasRefreshToken(token string) bool {
	return token != "" && u.RefreshToken != nil && *u.RefreshToken == token
}

// UserRepository is the record store. Lookups return (nil, nil) when nothing
// matches; mutators report whether a record was touched.
type UserRepository interface {
	Load(ctx context.Context) ([]User, error)
	Save(ctx context.Context, users []User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, u *User) (*User, error)
	UpdateRefreshToken(ctx context.Context, id, token string) (bool, error)
	RotateRefreshToken(ctx context.Context, id, oldToken, newToken string) (bool, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) (bool, error)
	RemoveRefreshTokenByValue(ctx context.Context, token string) (bool, error)
	ListAll(ctx context.Context) ([]User, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
}
