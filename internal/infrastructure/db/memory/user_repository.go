// Package memory holds process-local repositories. Data lives for the
// lifetime of the process only.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/meterdesk/readings/internal/core/domain"
)

type UserRepository struct {
	mu      sync.RWMutex
	byLogin map[string]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{byLogin: make(map[string]domain.User)}
}

// Create stores user and assigns it an ID when it has none.
func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byLogin[user.Login]; exists {
		return domain.ErrUserExists
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	r.byLogin[user.Login] = *user
	return nil
}

func (r *UserRepository) FindByLogin(_ context.Context, login string) (domain.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byLogin[login]
	return u, ok, nil
}

func (r *UserRepository) PasswordByLogin(_ context.Context, login string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byLogin[login]
	if !ok {
		return "", false, nil
	}
	return u.PasswordHash, true, nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, login, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byLogin[login]
	if !ok {
		return domain.ErrUserNotFound
	}
	r.byLogin[login] = u.WithPasswordHash(passwordHash, timeNow())
	return nil
}

func (r *UserRepository) ListLogins(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	logins := make([]string, 0, len(r.byLogin))
	for login := range r.byLogin {
		logins = append(logins, login)
	}
	sort.Strings(logins)
	return logins, nil
}
