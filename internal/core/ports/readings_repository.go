package ports

import (
	"context"
	"time"

	"github.com/meterdesk/readings/internal/core/domain"
)

// ReadingsRepository stores one readings record per (login, month).
type ReadingsRepository interface {
	// Add persists readings for the month. Callers check the month is free first;
	// implementations still return domain.ErrAlreadySubmitted on a conflict.
	Add(ctx context.Context, login string, month time.Month, readings domain.Readings) error

	// ListByUser returns the user's submissions in the order they were added.
	// A user without submissions yields an empty History and no error.
	ListByUser(ctx context.Context, login string) (domain.History, error)

	FindByMonth(ctx context.Context, login string, month time.Month) (domain.Readings, bool, error)
}
