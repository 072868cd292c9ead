package repo

import (
	"context"
	"sync"

	"go-gin-auth-backend/internal/domain"
)

// MemoryStore keeps the collection in process memory. Data is lost on exit.
type MemoryStore struct {
	*collection
	mu    sync.RWMutex
	users []domain.User
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	read := func(context.Context) ([]domain.User, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return cloneAll(s.users), nil
	}
	s.collection = &collection{
		fresh: read,
		view:  read,
		write: func(_ context.Context, users []domain.User) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.users = cloneAll(users)
			return nil
		},
	}
	return s
}

var _ domain.UserRepository = (*MemoryStore)(nil)
