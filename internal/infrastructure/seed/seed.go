// Package seed creates the built-in accounts on an empty store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/meterdesk/readings/internal/core/domain"
	"github.com/meterdesk/readings/internal/core/ports"
)

// Account is a login to create at startup when it does not exist yet.
type Account struct {
	Login    string
	Password string
	Role     domain.Role
}

// Users creates each account whose login is free. Existing accounts keep
// their password and role, so running it on every start is safe.
func Users(ctx context.Context, repo ports.UserRepository, hasher ports.PasswordHasher, log zerolog.Logger, accounts ...Account) error {
	for _, a := range accounts {
		if a.Login == "" || a.Password == "" {
			continue
		}

		_, found, err := repo.FindByLogin(ctx, a.Login)
		if err != nil {
			return fmt.Errorf("seed %s: %w", a.Login, err)
		}
		if found {
			log.Debug().Str("login", a.Login).Msg("seed account already present")
			continue
		}

		hash, err := hasher.Hash(a.Password)
		if err != nil {
			return fmt.Errorf("seed %s: %w", a.Login, err)
		}
		now := time.Now().UTC()
		u := &domain.User{
			Login:        a.Login,
			PasswordHash: hash,
			Role:         a.Role,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := repo.Create(ctx, u); err != nil {
			if errors.Is(err, domain.ErrUserExists) {
				continue
			}
			return fmt.Errorf("seed %s: %w", a.Login, err)
		}
		log.Info().Str("login", a.Login).Str("role", string(a.Role)).Msg("seeded account")
	}
	return nil
}
