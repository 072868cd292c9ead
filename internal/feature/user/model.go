package user

import (
	"time"

	"go-gin-auth-backend/internal/domain"
)

type UserModel struct {
	ID           string     `gorm:"primaryKey;type:varchar(32)"`
	Email        string     `gorm:"uniqueIndex;size:255;not null"`
	Name         string     `gorm:"size:100;not null"`
	PasswordHash string     `gorm:"size:100;not null"`
	LastLogin    *time.Time `gorm:"index"`
	RefreshToken *string    `gorm:"size:512;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "users" }

func FromDomain(u *domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.Password,
		LastLogin:    u.LastLogin,
		RefreshToken: u.RefreshToken,
		CreatedAt:    u.CreatedAt,
	}
}

func (m *UserModel) ToDomain() domain.User {
	u := domain.User{
		ID:        m.ID,
		Email:     m.Email,
		Name:      m.Name,
		Password:  m.PasswordHash,
		CreatedAt: m.CreatedAt.UTC(),
	}
	if m.LastLogin != nil {
		t := m.LastLogin.UTC()
		u.LastLogin = &t
	}
	if m.RefreshToken != nil {
		s := *m.RefreshToken
		u.RefreshToken = &s
	}
	return u
}
