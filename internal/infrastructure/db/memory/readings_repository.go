package memory

import (
	"context"
	"sync"
	"time"

	"github.com/meterdesk/readings/internal/core/domain"
)

var timeNow = func() time.Time { return time.Now().UTC() }

// ReadingsRepository keeps each user's submissions in insertion order.
type ReadingsRepository struct {
	mu      sync.RWMutex
	byLogin map[string]domain.History
}

func NewReadingsRepository() *ReadingsRepository {
	return &ReadingsRepository{byLogin: make(map[string]domain.History)}
}

func (r *ReadingsRepository) Add(_ context.Context, login string, month time.Month, readings domain.Readings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byLogin[login].Has(month) {
		return domain.ErrAlreadySubmitted
	}
	r.byLogin[login] = append(r.byLogin[login], domain.Submission{
		Month:       month,
		Readings:    readings.Clone(),
		SubmittedAt: timeNow(),
	})
	return nil
}

func (r *ReadingsRepository) ListByUser(_ context.Context, login string) (domain.History, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.byLogin[login]
	out := make(domain.History, len(stored))
	for i, s := range stored {
		s.Readings = s.Readings.Clone()
		out[i] = s
	}
	return out, nil
}

func (r *ReadingsRepository) FindByMonth(_ context.Context, login string, month time.Month) (domain.Readings, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byLogin[login].Find(month)
	if !ok {
		return nil, false, nil
	}
	return s.Readings.Clone(), true, nil
}
