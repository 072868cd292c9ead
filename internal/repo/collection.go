package repo

import (
	"context"
	"strings"
	"sync"
	"time"

	"go-gin-auth-backend/internal/domain"
	"go-gin-auth-backend/pkg/utils"
)

// collection implements domain.UserRepository on top of whole-collection
// reads and writes. Every mutation is a load-mutate-save cycle serialised by mu.
type collection struct {
	mu    sync.Mutex
	fresh func(ctx context.Context) ([]domain.User, error) // read for mutations
	view  func(ctx context.Context) ([]domain.User, error) // read for lookups
	write func(ctx context.Context, users []domain.User) error
}

func cloneUser(u domain.User) domain.User {
	if u.LastLogin != nil {
		t := *u.LastLogin
		u.LastLogin = &t
	}
	if u.RefreshToken != nil {
		s := *u.RefreshToken
		u.RefreshToken = &s
	}
	return u
}

func cloneAll(in []domain.User) []domain.User {
	out := make([]domain.User, len(in))
	for i := range in {
		out[i] = cloneUser(in[i])
	}
	return out
}

func (c *collection) Load(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.view(ctx)
}

func (c *collection) Save(ctx context.Context, users []domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(ctx, cloneAll(users))
}

func (c *collection) find(ctx context.Context, match func(u *domain.User) bool) (*domain.User, error) {
	users, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if match(&users[i]) {
			u := cloneUser(users[i])
			return &u, nil
		}
	}
	return nil, nil
}

func (c *collection) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return c.find(ctx, func(u *domain.User) bool { return u.Email == email })
}

func (c *collection) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return c.find(ctx, func(u *domain.User) bool { return u.ID == id })
}

// mutate runs fn over a fresh copy of the collection and persists the result
// when fn reports a change.
func (c *collection) mutate(ctx context.Context, fn func(users []domain.User) ([]domain.User, bool, error)) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	users, err := c.fresh(ctx)
	if err != nil {
		return false, err
	}
	next, changed, err := fn(users)
	if err != nil || !changed {
		return false, err
	}
	if err := c.write(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

func (c *collection) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	rec := cloneUser(*u)
	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = utils.NewID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := c.mutate(ctx, func(users []domain.User) ([]domain.User, bool, error) {
		for i := range users {
			if users[i].Email == rec.Email {
				return nil, false, domain.ErrEmailTaken
			}
		}
		return append(users, cloneUser(rec)), true, nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// update applies fn to the first record matching and persists.
func (c *collection) update(ctx context.Context, match func(u *domain.User) bool, fn func(u *domain.User)) (bool, error) {
	return c.mutate(ctx, func(users []domain.User) ([]domain.User, bool, error) {
		for i := range users {
			if match(&users[i]) {
				fn(&users[i])
				return users, true, nil
			}
		}
		return users, false, nil
	})
}

func byID(id string) func(u *domain.User) bool {
	return func(u *domain.User) bool { return u.ID == id }
}

func (c *collection) UpdateRefreshToken(ctx context.Context, id, token string) (bool, error) {
	return c.update(ctx, byID(id), func(u *domain.User) {
		t := token
		u.RefreshToken = &t
	})
}

func (c *collection) RotateRefreshToken(ctx context.Context, id, oldToken, newToken string) (bool, error) {
	return c.update(ctx,
		func(u *domain.User) bool { return u.ID == id && u.HasRefreshToken(oldToken) },
		func(u *domain.User) {
			t := newToken
			u.RefreshToken = &t
		})
}

func (c *collection) UpdateLastLogin(ctx context.Context, id string, at time.Time) (bool, error) {
	return c.update(ctx, byID(id), func(u *domain.User) {
		t := at.UTC()
		u.LastLogin = &t
	})
}

func (c *collection) RemoveRefreshTokenByValue(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	return c.update(ctx,
		func(u *domain.User) bool { return u.HasRefreshToken(token) },
		func(u *domain.User) { u.RefreshToken = nil })
}

func (c *collection) ListAll(ctx context.Context) ([]domain.User, error) {
	return c.Load(ctx)
}

func (c *collection) DeleteByID(ctx context.Context, id string) (bool, error) {
	return c.mutate(ctx, func(users []domain.User) ([]domain.User, bool, error) {
		out := users[:0]
		for _, u := range users {
			if u.ID != id {
				out = append(out, u)
			}
		}
		return out, len(out) != len(users), nil
	})
}
