package ports

import (
	"context"

	"github.com/meterdesk/readings/internal/core/domain"
)

// UserService covers registration, authentication and admin lookups.
type UserService interface {
	Register(ctx context.Context, login, password string) (domain.User, error)
	ChangePassword(ctx context.Context, user domain.User, oldPassword, newPassword string) (domain.User, error)
	// Authenticate returns found=false for both an unknown login and a wrong password.
	Authenticate(ctx context.Context, login, password string) (domain.User, bool, error)
	// GetUserForAdmin returns found=false when requester is not an admin, whether or not login exists.
	GetUserForAdmin(ctx context.Context, login string, requester domain.User) (domain.User, bool, error)
	ListLogins(ctx context.Context) ([]string, error)
}
