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

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (login, password, role)
		VALUES ($1, $2, $3)
		RETURNING id::text, created_at, updated_at
	`, u.Login, u.PasswordHash, string(u.Role))

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserExists
		}
		return domain.NewStorageError("insert user", err)
	}
	return nil
}

func (r *UserRepository) FindByLogin(ctx context.Context, login string) (domain.User, bool, error) {
	var (
		u    domain.User
		role string
	)
	row := r.pool.QueryRow(ctx, `
		SELECT id::text, login, password, role, created_at, updated_at
		FROM users
		WHERE login = $1
	`, login)

	if err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, domain.NewStorageError("find user", err)
	}

	parsed, ok := domain.ParseRole(role)
	if !ok {
		return domain.User{}, false, domain.NewStorageError("find user", errors.New("unknown role "+role))
	}
	u.Role = parsed
	return u, true, nil
}

func (r *UserRepository) PasswordByLogin(ctx context.Context, login string) (string, bool, error) {
	var hash string
	err := r.pool.QueryRow(ctx, `SELECT password FROM users WHERE login = $1`, login).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, domain.NewStorageError("find password", err)
	}
	return hash, true, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, login, passwordHash string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET password = $1, updated_at = $2
		WHERE login = $3
	`, passwordHash, time.Now().UTC(), login)
	if err != nil {
		return domain.NewStorageError("update password", err)
	}
	if res.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ListLogins returns logins in byte order, independent of the database locale.
func (r *UserRepository) ListLogins(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT login FROM users ORDER BY login COLLATE "C"`)
	if err != nil {
		return nil, domain.NewStorageError("list logins", err)
	}
	logins, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, domain.NewStorageError("list logins", err)
	}
	return logins, nil
}

var _ ports.UserRepository = (*UserRepository)(nil)
