package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meterdesk/readings/internal/core/domain"
	"github.com/meterdesk/readings/internal/core/ports"
)

// ReadingsRepository stores one row per (user, month, reading type).
type ReadingsRepository struct {
	pool *pgxpool.Pool
}

func NewReadingsRepository(pool *pgxpool.Pool) *ReadingsRepository {
	return &ReadingsRepository{pool: pool}
}

// Add writes every reading of the month in one transaction. The user row is
// locked for the duration so concurrent submissions for the same user queue up.
func (r *ReadingsRepository) Add(ctx context.Context, login string, month time.Month, readings domain.Readings) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var userID int64
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE login = $1 FOR UPDATE`, login).Scan(&userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrUserNotFound
			}
			return err
		}

		var exists bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM readings WHERE user_id = $1 AND month = $2)
		`, userID, int16(month)).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrAlreadySubmitted
		}

		batch := &pgx.Batch{}
		for _, typ := range readings.Types() {
			batch.Queue(`
				INSERT INTO readings (user_id, month, type, value)
				VALUES ($1, $2, $3, $4)
			`, userID, int16(month), typ, readings[typ])
		}
		return tx.SendBatch(ctx, batch).Close()
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrAlreadySubmitted), isUniqueViolation(err):
		return domain.ErrAlreadySubmitted
	case errors.Is(err, domain.ErrUserNotFound):
		return domain.ErrUserNotFound
	default:
		return domain.NewStorageError("insert readings", err)
	}
}

// ListByUser groups rows by month in the order the months were first stored.
func (r *ReadingsRepository) ListByUser(ctx context.Context, login string) (domain.History, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.month, r.type, r.value, r.created_at
		FROM readings r
		JOIN users u ON u.id = r.user_id
		WHERE u.login = $1
		ORDER BY r.id
	`, login)
	if err != nil {
		return nil, domain.NewStorageError("list readings", err)
	}
	defer rows.Close()

	history := domain.History{}
	index := make(map[time.Month]int)
	for rows.Next() {
		var (
			month     int16
			typ       string
			value     float64
			createdAt time.Time
		)
		if err := rows.Scan(&month, &typ, &value, &createdAt); err != nil {
			return nil, domain.NewStorageError("list readings", err)
		}
		m := time.Month(month)
		i, ok := index[m]
		if !ok {
			i = len(history)
			index[m] = i
			history = append(history, domain.Submission{
				Month:       m,
				Readings:    domain.Readings{},
				SubmittedAt: createdAt.UTC(),
			})
		}
		history[i].Readings[typ] = value
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list readings", err)
	}
	return history, nil
}

func (r *ReadingsRepository) FindByMonth(ctx context.Context, login string, month time.Month) (domain.Readings, bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.type, r.value
		FROM readings r
		JOIN users u ON u.id = r.user_id
		WHERE u.login = $1 AND r.month = $2
	`, login, int16(month))
	if err != nil {
		return nil, false, domain.NewStorageError("find readings", err)
	}
	defer rows.Close()

	readings := domain.Readings{}
	for rows.Next() {
		var (
			typ   string
			value float64
		)
		if err := rows.Scan(&typ, &value); err != nil {
			return nil, false, domain.NewStorageError("find readings", err)
		}
		readings[typ] = value
	}
	if err := rows.Err(); err != nil {
		return nil, false, domain.NewStorageError("find readings", err)
	}
	if len(readings) == 0 {
		return nil, false, nil
	}
	return readings, true, nil
}

var _ ports.ReadingsRepository = (*ReadingsRepository)(nil)
