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

type readingsService struct {
	repo      ports.ReadingsRepository
	lock      ports.SubmissionLock
	validator *validator.Validator
	log       zerolog.Logger
}

// NewReadingsService returns a ReadingsService implementation. A nil lock
// disables submission locking.
func NewReadingsService(
	repo ports.ReadingsRepository,
	lock ports.SubmissionLock,
	v *validator.Validator,
	log zerolog.Logger,
) ports.ReadingsService {
	if lock == nil {
		lock = noopLock{}
	}
	return &readingsService{
		repo:      repo,
		lock:      lock,
		validator: v,
		log:       log,
	}
}

// AddReadings validates and stores one month of readings. A month that is
// already stored is rejected and the stored record stays as it was.
func (s *readingsService) AddReadings(ctx context.Context, user domain.User, month time.Month, readings domain.Readings) error {
	// 1. Reject bad input before touching storage.
	if !domain.ValidMonth(month) {
		metrics.ReadingsRejectedTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrInvalidMonth)
	}
	if err := s.validator.ValidateReadings(readings); err != nil {
		metrics.ReadingsRejectedTotal.WithLabelValues("invalid").Inc()
		return err
	}

	// 2. Serialise submissions for the same month. Lock failures are not fatal.
	token, acquired, err := s.lock.Acquire(ctx, user.Login, month)
	if err != nil {
		s.log.Warn().Err(err).Str("login", user.Login).Stringer("month", month).Msg("submission lock failed, processing anyway")
	} else if !acquired {
		metrics.ReadingsRejectedTotal.WithLabelValues("in_progress").Inc()
		return domain.ErrSubmissionInProgress
	} else {
		defer func() {
			if relErr := s.lock.Release(ctx, user.Login, month, token); relErr != nil {
				s.log.Warn().Err(relErr).Str("login", user.Login).Stringer("month", month).Msg("failed to release submission lock")
			}
		}()
	}

	// 3. One record per month.
	history, err := s.repo.ListByUser(ctx, user.Login)
	if err != nil {
		metrics.ReadingsRejectedTotal.WithLabelValues("storage").Inc()
		return fmt.Errorf("add readings: %w", err)
	}
	if history.Has(month) {
		metrics.ReadingsRejectedTotal.WithLabelValues("already_submitted").Inc()
		s.log.Info().Str("login", user.Login).Stringer("month", month).Msg("readings already submitted")
		return domain.ErrAlreadySubmitted
	}

	// 4. Persist.
	if err := s.repo.Add(ctx, user.Login, month, readings.Clone()); err != nil {
		if errors.Is(err, domain.ErrAlreadySubmitted) {
			metrics.ReadingsRejectedTotal.WithLabelValues("already_submitted").Inc()
			return domain.ErrAlreadySubmitted
		}
		metrics.ReadingsRejectedTotal.WithLabelValues("storage").Inc()
		s.log.Error().Err(err).Str("login", user.Login).Stringer("month", month).Msg("failed to store readings")
		return fmt.Errorf("add readings: %w", err)
	}

	metrics.ReadingsSubmittedTotal.WithLabelValues(month.String()).Inc()
	s.log.Info().
		Str("login", user.Login).
		Stringer("month", month).
		Int("types", len(readings)).
		Msg("readings submitted")

	return nil
}

func (s *readingsService) GetAllReadings(ctx context.Context, user domain.User) (domain.History, error) {
	history, err := s.repo.ListByUser(ctx, user.Login)
	if err != nil {
		return nil, fmt.Errorf("get all readings: %w", err)
	}
	if !history.Empty() {
		s.log.Info().Str("login", user.Login).Int("months", len(history)).Msg("readings history retrieved")
	}
	return history, nil
}

func (s *readingsService) GetLastReadings(ctx context.Context, user domain.User) (domain.Submission, bool, error) {
	history, err := s.repo.ListByUser(ctx, user.Login)
	if err != nil {
		return domain.Submission{}, false, fmt.Errorf("get last readings: %w", err)
	}
	last, ok := history.Last()
	if ok {
		s.log.Info().Str("login", user.Login).Stringer("month", last.Month).Msg("last readings retrieved")
	}
	return last, ok, nil
}

func (s *readingsService) GetReadingsByMonth(ctx context.Context, user domain.User, month time.Month) (domain.Readings, bool, error) {
	if !domain.ValidMonth(month) {
		return nil, false, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrInvalidMonth)
	}
	readings, found, err := s.repo.FindByMonth(ctx, user.Login, month)
	if err != nil {
		return nil, false, fmt.Errorf("get readings by month: %w", err)
	}
	if found {
		s.log.Info().Str("login", user.Login).Stringer("month", month).Msg("monthly readings retrieved")
	}
	return readings, found, nil
}

type noopLock struct{}

func (noopLock) Acquire(context.Context, string, time.Month) (string, bool, error) {
	return "", true, nil
}

func (noopLock) Release(context.Context, string, time.Month, string) error { return nil }
