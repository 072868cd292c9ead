package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-gin-auth-backend/internal/core/auth"
	"go-gin-auth-backend/internal/domain"
	"go-gin-auth-backend/internal/repo"
)

func newTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService(
		&auth.JWTer{Secret: []byte("access-secret"), Issuer: "test", TTL: time.Hour},
		&auth.JWTer{Secret: []byte("refresh-secret"), Issuer: "test", TTL: 7 * 24 * time.Hour},
	)
	require.NoError(t, err)
	return ts
}

func newAuthService(t *testing.T) (*AuthService, *repo.MemoryStore) {
	t.Helper()
	store := repo.NewMemoryStore()
	s, err := NewAuthService(store, newTokens(t), WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	return s, store
}

func register(t *testing.T, s *AuthService, email, pw string) *AuthResult {
	t.Helper()
	res, err := s.Register(context.Background(), RegisterInput{Email: email, Password: pw})
	require.NoError(t, err)
	return res
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	s, store := newAuthService(t)

	res := register(t, s, "a@x.com", "secret1")
	require.Equal(t, "a@x.com", res.User.Email)
	require.Equal(t, "a", res.User.Name, "name defaults to the email local part")
	require.NotEqual(t, "secret1", res.User.Password)
	require.NotEmpty(t, res.Tokens.AccessToken)
	require.NotEmpty(t, res.Tokens.RefreshToken)
	require.NotEqual(t, res.Tokens.AccessToken, res.Tokens.RefreshToken)

	stored, err := store.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, stored.HasRefreshToken(res.Tokens.RefreshToken))
	require.Nil(t, stored.LastLogin)
}

func TestRegister_ExplicitName(t *testing.T) {
	s, _ := newAuthService(t)
	res, err := s.Register(context.Background(), RegisterInput{Email: "b@x.com", Password: "secret1", Name: "  Bee "})
	require.NoError(t, err)
	require.Equal(t, "  Bee ", res.User.Name, "names are stored as given")
}

func TestRegister_PasswordTooLong(t *testing.T) {
	ctx := context.Background()
	s, store := newAuthService(t)

	_, err := s.Register(ctx, RegisterInput{Email: "l@x.com", Password: strings.Repeat("p", 73)})
	require.ErrorIs(t, err, ErrPasswordTooLong)

	res, err := s.Register(ctx, RegisterInput{Email: "l@x.com", Password: strings.Repeat("p", 72)})
	require.NoError(t, err)
	require.NotEmpty(t, res.Tokens.AccessToken)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestRegister_Duplicate(t *testing.T) {
	ctx := context.Background()
	s, store := newAuthService(t)
	register(t, s, "a@x.com", "secret1")

	_, err := s.Register(ctx, RegisterInput{Email: "a@x.com", Password: "other12"})
	require.ErrorIs(t, err, domain.ErrEmailTaken)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	s, store := newAuthService(t)
	reg := register(t, s, "a@x.com", "secret1")

	res, err := s.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, res.User.LastLogin)
	require.True(t, res.User.LastLogin.After(res.User.CreatedAt))
	require.NotEqual(t, reg.Tokens.RefreshToken, res.Tokens.RefreshToken)

	stored, err := store.FindByID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.True(t, stored.HasRefreshToken(res.Tokens.RefreshToken))
	require.False(t, stored.HasRefreshToken(reg.Tokens.RefreshToken))
	require.NotNil(t, stored.LastLogin)
}

func TestLogin_FailuresLookAlike(t *testing.T) {
	ctx := context.Background()
	s, _ := newAuthService(t)
	register(t, s, "a@x.com", "secret1")

	_, errWrongPw := s.Login(ctx, "a@x.com", "nope")
	_, errUnknown := s.Login(ctx, "ghost@x.com", "secret1")
	require.ErrorIs(t, errWrongPw, ErrInvalidCredentials)
	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	require.Equal(t, errWrongPw.Error(), errUnknown.Error())
}

func TestRefresh_RotatesSingleUse(t *testing.T) {
	ctx := context.Background()
	s, _ := newAuthService(t)
	reg := register(t, s, "a@x.com", "secret1")

	p1, err := s.Refresh(ctx, reg.Tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, reg.Tokens.RefreshToken, p1.RefreshToken)

	_, err = s.Refresh(ctx, reg.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshTokenInvalid)

	p2, err := s.Refresh(ctx, p1.RefreshToken)
	require.NoError(t, err)
	_, err = s.Refresh(ctx, p1.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshTokenInvalid)

	uid, err := newTokens(t).VerifyAccess(p2.AccessToken)
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, uid)
}

func TestRefresh_Rejections(t *testing.T) {
	ctx := context.Background()
	s, _ := newAuthService(t)
	reg := register(t, s, "a@x.com", "secret1")

	_, err := s.Refresh(ctx, "")
	require.ErrorIs(t, err, ErrRefreshTokenMissing)

	_, err = s.Refresh(ctx, "garbage")
	require.ErrorIs(t, err, ErrRefreshTokenInvalid)
	require.ErrorIs(t, err, auth.ErrTokenMalformed)

	_, err = s.Refresh(ctx, reg.Tokens.AccessToken)
	require.ErrorIs(t, err, ErrRefreshTokenInvalid)

	// validly signed for a user that does not exist
	orphan, err := newTokens(t).IssuePair("ghost")
	require.NoError(t, err)
	_, err = s.Refresh(ctx, orphan.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshTokenInvalid)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryStore()
	tokens, err := auth.NewTokenService(
		&auth.JWTer{Secret: []byte("a"), TTL: time.Hour},
		&auth.JWTer{Secret: []byte("r"), TTL: -time.Minute},
	)
	require.NoError(t, err)
	s, err := NewAuthService(store, tokens, WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)

	reg, err := s.Register(ctx, RegisterInput{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = s.Refresh(ctx, reg.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshTokenInvalid)
	require.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestRefresh_ConcurrentUseSucceedsOnce(t *testing.T) {
	ctx := context.Background()
	s, _ := newAuthService(t)
	reg := register(t, s, "a@x.com", "secret1")

	const n = 10
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Refresh(ctx, reg.Tokens.RefreshToken)
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			} else if !errors.Is(err, ErrRefreshTokenInvalid) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, ok)
}

func TestLogoutThenRefresh(t *testing.T) {
	ctx := context.Background()
	s, store := newAuthService(t)
	reg := register(t, s, "a@x.com", "secret1")

	require.NoError(t, s.Logout(ctx, reg.Tokens.RefreshToken))
	stored, err := store.FindByID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.Nil(t, stored.RefreshToken)

	_, err = s.Refresh(ctx, reg.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshTokenInvalid)

	require.NoError(t, s.Logout(ctx, ""))
	require.NoError(t, s.Logout(ctx, "unknown"))
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	s, store := newAuthService(t)
	reg := register(t, s, "a@x.com", "secret1")

	u, err := s.Authenticate(ctx, reg.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", u.Email)

	_, err = s.Authenticate(ctx, reg.Tokens.RefreshToken)
	require.ErrorIs(t, err, auth.ErrTokenInvalidSignature)

	_, err = store.DeleteByID(ctx, reg.User.ID)
	require.NoError(t, err)
	_, err = s.Authenticate(ctx, reg.Tokens.AccessToken)
	require.ErrorIs(t, err, ErrUserNotFound)
}

type failingStore struct {
	*repo.MemoryStore
	err error
}

func (f failingStore) FindByEmail(context.Context, string) (*domain.User, error) {
	return nil, f.err
}

func TestStoreFailuresPropagate(t *testing.T) {
	boom := errors.New("disk on fire")
	s, err := NewAuthService(failingStore{repo.NewMemoryStore(), boom}, newTokens(t), WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)

	_, err = s.Login(context.Background(), "a@x.com", "pw")
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "secret1"})
	require.ErrorIs(t, err, boom)
}

func TestClockIsInjectable(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := base
	s, err := NewAuthService(repo.NewMemoryStore(), newTokens(t),
		WithBcryptCost(bcrypt.MinCost),
		WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	reg, err := s.Register(ctx, RegisterInput{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	require.True(t, reg.User.CreatedAt.Equal(base))

	now = base.Add(time.Hour)
	res, err := s.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	require.True(t, res.User.LastLogin.Equal(base.Add(time.Hour)))
}
