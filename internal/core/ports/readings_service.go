package ports

import (
	"context"
	"time"

	"github.com/meterdesk/readings/internal/core/domain"
)

// ReadingsService processes readings submissions and queries.
type ReadingsService interface {
	AddReadings(ctx context.Context, user domain.User, month time.Month, readings domain.Readings) error
	// GetAllReadings returns an empty History when nothing was submitted.
	GetAllReadings(ctx context.Context, user domain.User) (domain.History, error)
	// GetLastReadings returns the most recently submitted record, not the latest month.
	GetLastReadings(ctx context.Context, user domain.User) (domain.Submission, bool, error)
	GetReadingsByMonth(ctx context.Context, user domain.User, month time.Month) (domain.Readings, bool, error)
}
