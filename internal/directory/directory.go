package directory

import (
	"context"
	"sync"

	"clinicbook/internal/domain"
	"clinicbook/internal/store"
)

// Directory resolves user ids. Absent users are reported as store.ErrNotFound.
type Directory interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
}

// Static is an in-memory directory for tests and local runs.
type Static struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewStatic(users ...domain.User) *Static {
	s := &Static{users: make(map[string]domain.User, len(users))}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *Static) Put(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Static) GetUser(ctx context.Context, id string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}
