package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// ProcessLocker defines the interface for distributed concurrency control.
// The process manager uses it to guarantee that at most one step is in
// flight per process ID across replicas.
type ProcessLocker interface {
	// Lock attempts to acquire a distributed lock for the given key
	// (e.g., a process ID). It blocks until the lock is acquired or the
	// context is canceled. Returns an UnlockFunc that MUST be called to
	// release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
