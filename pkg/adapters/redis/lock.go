package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/flowdhq/flowd/pkg/ports"
)

// unlockScript releases a lock only when the caller still owns it.
var unlockScript = backend.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements ports.ProcessLocker with Redis SET NX PX locks.
type Locker struct {
	client *backend.Client
	prefix string
	retry  time.Duration
}

// LockerOption configures the Locker.
type LockerOption func(*Locker)

// WithLockPrefix sets the lock key prefix.
func WithLockPrefix(prefix string) LockerOption {
	return func(l *Locker) {
		l.prefix = prefix
	}
}

// WithRetryInterval sets the polling interval while waiting for a held lock.
func WithRetryInterval(interval time.Duration) LockerOption {
	return func(l *Locker) {
		l.retry = interval
	}
}

// NewLocker creates a locker from an existing client.
func NewLocker(client *backend.Client, opts ...LockerOption) *Locker {
	locker := &Locker{
		client: client,
		prefix: "flowd:lock:",
		retry:  50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(locker)
	}
	return locker
}

// Lock acquires the lock for key, polling until it succeeds or the context
// is done. The lock expires after ttl so a crashed holder cannot wedge the
// process forever.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lockKey := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}

	unlock := func(ctx context.Context) error {
		released, err := unlockScript.Run(ctx, l.client, []string{lockKey}, token).Int()
		if err != nil {
			return fmt.Errorf("release lock %s: %w", key, err)
		}
		if released == 0 {
			return fmt.Errorf("release lock %s: lock expired or stolen", key)
		}
		return nil
	}
	return unlock, nil
}
