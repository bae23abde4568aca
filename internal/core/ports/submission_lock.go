package ports

import (
	"context"
	"time"
)

// SubmissionLock serialises submissions for the same (login, month) pair.
type SubmissionLock interface {
	// Acquire reports false when another submission already holds the lock.
	// The returned token identifies this holder and must be passed to Release.
	Acquire(ctx context.Context, login string, month time.Month) (token string, acquired bool, err error)
	// Release frees the lock only while it is still held under token.
	Release(ctx context.Context, login string, month time.Month, token string) error
}
