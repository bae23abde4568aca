package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/meterdesk/readings/internal/core/ports"
)

const defaultLockTTL = 30 * time.Second

// releaseScript deletes the key only if it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SubmissionLock guards a (login, month) submission with SET NX.
// Key format: submission:<login>:<month>, value: a per-holder token.
type SubmissionLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSubmissionLock wraps client. The TTL bounds how long a crashed
// submission can block the month.
func NewSubmissionLock(client *redis.Client, ttl time.Duration) *SubmissionLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &SubmissionLock{client: client, ttl: ttl}
}

func (l *SubmissionLock) Acquire(ctx context.Context, login string, month time.Month) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key(login, month), token, l.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("submission lock acquire: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release is a no-op when the lock expired and was taken by another holder.
func (l *SubmissionLock) Release(ctx context.Context, login string, month time.Month, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key(login, month)}, token).Err(); err != nil {
		return fmt.Errorf("submission lock release: %w", err)
	}
	return nil
}

func (l *SubmissionLock) key(login string, month time.Month) string {
	return fmt.Sprintf("submission:%s:%d", login, int(month))
}

var _ ports.SubmissionLock = (*SubmissionLock)(nil)
