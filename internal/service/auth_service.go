package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"go-gin-auth-backend/internal/core/auth"
	"go-gin-auth-backend/internal/domain"
	"go-gin-auth-backend/pkg/utils"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrUserNotFound        = errors.New("user not found")
	ErrRefreshTokenMissing = errors.New("refresh token required")
	ErrRefreshTokenInvalid = errors.New("invalid refresh token")
	ErrPasswordTooLong     = errors.New("password too long")
)

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// AuthResult is a user snapshot plus the token pair issued for it.
type AuthResult struct {
	User   domain.User
	Tokens auth.Pair
}

type AuthService struct {
	users     domain.UserRepository
	tokens    *auth.TokenService
	cost      int
	dummyHash string
	now       func() time.Time
	log       *zap.Logger
}

type AuthOption func(*AuthService)

func WithBcryptCost(cost int) AuthOption { return func(s *AuthService) { s.cost = cost } }

func WithClock(now func() time.Time) AuthOption { return func(s *AuthService) { s.now = now } }

func WithLogger(l *zap.Logger) AuthOption { return func(s *AuthService) { s.log = l } }

func NewAuthService(users domain.UserRepository, tokens *auth.TokenService, opts ...AuthOption) (*AuthService, error) {
	s := &AuthService{
		users:  users,
		tokens: tokens,
		cost:   utils.DefaultCost,
		now:    time.Now,
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	// compared against when the email is unknown so both failure paths cost
	// one bcrypt verification
	h, err := utils.HashPassword("not-a-real-password", s.cost)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	s.dummyHash = h
	return s, nil
}

func defaultName(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrEmailTaken
	}

	hash, err := utils.HashPassword(in.Password, s.cost)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return nil, ErrPasswordTooLong
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	name := in.Name
	if name == "" {
		name = defaultName(in.Email)
	}
	u, err := s.users.Create(ctx, &domain.User{
		Email:     in.Email,
		Password:  hash,
		Name:      name,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.issue(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.RefreshToken = &pair.RefreshToken
	s.log.Info("user registered", zap.String("user_id", u.ID))
	return &AuthResult{User: *u, Tokens: pair}, nil
}

// issue signs a new pair and makes its refresh token the user's only live one.
func (s *AuthService) issue(ctx context.Context, uid string) (auth.Pair, error) {
	pair, err := s.tokens.IssuePair(uid)
	if err != nil {
		return auth.Pair{}, err
	}
	if _, err := s.users.UpdateRefreshToken(ctx, uid, pair.RefreshToken); err != nil {
		return auth.Pair{}, fmt.Errorf("store refresh token: %w", err)
	}
	return pair, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if u == nil {
		utils.CheckPassword(password, s.dummyHash)
		return nil, ErrInvalidCredentials
	}
	if !utils.CheckPassword(password, u.Password) {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issue(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if _, err := s.users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	u.LastLogin = &now
	u.RefreshToken = &pair.RefreshToken
	return &AuthResult{User: *u, Tokens: pair}, nil
}

// Logout forgets the refresh token if any user holds it. Unknown tokens are
// not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	cleared, err := s.users.RemoveRefreshTokenByValue(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	if cleared {
		s.log.Debug("refresh token cleared")
	}
	return nil
}

// Authenticate resolves an access token to its user. Token failures come
// back as the auth package errors.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	uid, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, err
	}
	return s.Me(ctx, uid)
}

func (s *AuthService) Me(ctx context.Context, uid string) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Refresh exchanges the user's current refresh token for a new pair. The
// presented token stops working once this returns.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (auth.Pair, error) {
	if refreshToken == "" {
		return auth.Pair{}, ErrRefreshTokenMissing
	}
	uid, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return auth.Pair{}, fmt.Errorf("%w: %w", ErrRefreshTokenInvalid, err)
	}
	u, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return auth.Pair{}, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil || !u.HasRefreshToken(refreshToken) {
		return auth.Pair{}, ErrRefreshTokenInvalid
	}

	pair, err := s.tokens.IssuePair(uid)
	if err != nil {
		return auth.Pair{}, err
	}
	swapped, err := s.users.RotateRefreshToken(ctx, uid, refreshToken, pair.RefreshToken)
	if err != nil {
		return auth.Pair{}, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !swapped {
		// lost a race with another refresh, logout or login
		return auth.Pair{}, ErrRefreshTokenInvalid
	}
	return pair, nil
}
