package ports

import (
	"context"

	"github.com/meterdesk/readings/internal/core/domain"
)

// UserRepository defines the persistence operations for user accounts.
// Absence is reported through the bool result, never as an error; errors
// are reserved for storage faults (wrapped as *domain.StorageError) and
// uniqueness conflicts (domain.ErrUserExists).
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByLogin(ctx context.Context, login string) (domain.User, bool, error)
	PasswordByLogin(ctx context.Context, login string) (string, bool, error)
	// UpdatePassword replaces the stored hash. Returns domain.ErrUserNotFound when no user has login.
	UpdatePassword(ctx context.Context, login, passwordHash string) error
	// ListLogins returns every login in ascending order.
	ListLogins(ctx context.Context) ([]string, error)
}
