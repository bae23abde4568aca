package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/meterdesk/readings/internal/core/domain"
	"github.com/meterdesk/readings/internal/core/ports"
	"github.com/meterdesk/readings/internal/core/validator"
	"github.com/meterdesk/readings/internal/metrics"
)

// UserService implements registration, authentication and admin lookups.
type UserService struct {
	repo      ports.UserRepository
	hasher    ports.PasswordHasher
	validator *validator.Validator
	log       zerolog.Logger
	now       func() time.Time
}

func NewUserService(repo ports.UserRepository, hasher ports.PasswordHasher, v *validator.Validator, log zerolog.Logger) *UserService {
	return &UserService{
		repo:      repo,
		hasher:    hasher,
		validator: v,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a USER account. A taken login yields domain.ErrUserExists
// and leaves the stored account untouched.
func (s *UserService) Register(ctx context.Context, login, password string) (domain.User, error) {
	_, found, err := s.repo.FindByLogin(ctx, login)
	if err != nil {
		return domain.User{}, fmt.Errorf("register: %w", err)
	}
	if found {
		s.log.Info().Str("login", login).Msg("registration rejected: login taken")
		return domain.User{}, domain.ErrUserExists
	}

	if err := s.validator.ValidateUser(login, password); err != nil {
		return domain.User{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("register: %w", err)
	}

	now := s.now()
	user := &domain.User{
		Login:        login,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return domain.User{}, domain.ErrUserExists
		}
		s.log.Error().Err(err).Str("login", login).Msg("failed to create user")
		return domain.User{}, fmt.Errorf("register: %w", err)
	}

	metrics.UsersRegisteredTotal.Inc()
	s.log.Info().Str("login", login).Msg("user registered")
	return user.Sanitized(), nil
}

// ChangePassword checks oldPassword against the stored password and persists
// newPassword. The returned user replaces the caller's copy.
func (s *UserService) ChangePassword(ctx context.Context, user domain.User, oldPassword, newPassword string) (domain.User, error) {
	if oldPassword == "" {
		metrics.PasswordChangesTotal.WithLabelValues("unauthorized").Inc()
		return domain.User{}, fmt.Errorf("%w: wrong old password", domain.ErrUnauthorized)
	}

	stored, found, err := s.repo.PasswordByLogin(ctx, user.Login)
	if err != nil {
		return domain.User{}, fmt.Errorf("change password: %w", err)
	}
	if !found || !s.hasher.Matches(stored, oldPassword) {
		metrics.PasswordChangesTotal.WithLabelValues("unauthorized").Inc()
		s.log.Warn().Str("login", user.Login).Msg("password change rejected: wrong old password")
		return domain.User{}, fmt.Errorf("%w: wrong old password", domain.ErrUnauthorized)
	}

	if err := s.validator.ValidatePassword(newPassword); err != nil {
		metrics.PasswordChangesTotal.WithLabelValues("invalid").Inc()
		return domain.User{}, err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return domain.User{}, fmt.Errorf("change password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.Login, hash); err != nil {
		s.log.Error().Err(err).Str("login", user.Login).Msg("failed to update password")
		return domain.User{}, fmt.Errorf("change password: %w", err)
	}

	metrics.PasswordChangesTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("login", user.Login).Msg("password changed")
	return user.WithPasswordHash(hash, s.now()).Sanitized(), nil
}

// Authenticate returns the user only when the login exists and the password
// matches. Both failure cases look the same to the caller.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (domain.User, bool, error) {
	user, found, err := s.repo.FindByLogin(ctx, login)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("authenticate: %w", err)
	}
	if !found || !s.hasher.Matches(user.PasswordHash, password) {
		metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		s.log.Warn().Str("login", login).Msg("authentication failed")
		return domain.User{}, false, nil
	}

	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("login", login).Msg("user authenticated")
	return user.Sanitized(), true, nil
}

// GetUserForAdmin looks up login on behalf of requester. Non-admin requesters
// get found=false whether or not the login exists.
func (s *UserService) GetUserForAdmin(ctx context.Context, login string, requester domain.User) (domain.User, bool, error) {
	if !requester.IsAdmin() {
		s.log.Warn().Str("requester", requester.Login).Str("login", login).Msg("admin lookup denied")
		return domain.User{}, false, nil
	}

	user, found, err := s.repo.FindByLogin(ctx, login)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("admin lookup: %w", err)
	}
	if !found {
		return domain.User{}, false, nil
	}

	s.log.Info().Str("admin", requester.Login).Str("login", login).Msg("admin selected user")
	return user.Sanitized(), true, nil
}

func (s *UserService) ListLogins(ctx context.Context) ([]string, error) {
	logins, err := s.repo.ListLogins(ctx)
	if err != nil {
		return nil, fmt.Errorf("list logins: %w", err)
	}
	return logins, nil
}

var _ ports.UserService = (*UserService)(nil)
