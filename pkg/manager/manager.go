// Package manager serializes access to running processes. Within one
// instance a per-process mutex guarantees that at most one step is in
// flight per process; across replicas an optional distributed locker
// extends the same guarantee.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flowdhq/flowd/internal/logging"
	"github.com/flowdhq/flowd/pkg/domain"
	"github.com/flowdhq/flowd/pkg/ports"
)

// defaultLockTTL bounds how long a crashed replica can keep a process
// locked.
const defaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates process access. Lock entries are reference counted
// so the map does not grow with every process ever touched.
type Manager struct {
	store ports.ProcessStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.ProcessLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.ProcessLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides the distributed lock TTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// New creates a Manager over the given process store.
func New(store ports.ProcessStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: defaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and later call release(processID).
func (m *Manager) acquire(processID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[processID]
	if !exists {
		entry = &lockEntry{}
		m.locks[processID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(processID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[processID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, processID)
	}
}

// Load retrieves a process from the store under the process lock.
func (m *Manager) Load(ctx context.Context, processID string) (*domain.Process, error) {
	var process *domain.Process
	err := m.WithLock(ctx, processID, func(ctx context.Context) error {
		var err error
		process, err = m.store.Load(ctx, processID)
		return err
	})
	return process, err
}

// Save persists a process under the process lock.
func (m *Manager) Save(ctx context.Context, process *domain.Process) error {
	return m.WithLock(ctx, process.ID, func(ctx context.Context) error {
		return m.store.Save(ctx, process)
	})
}

// Update loads a process, applies fn to it and saves the result, all under
// the process lock. When fn returns an error the process is not saved.
func (m *Manager) Update(ctx context.Context, processID string, fn func(ctx context.Context, process *domain.Process) error) (*domain.Process, error) {
	var process *domain.Process
	err := m.WithLock(ctx, processID, func(ctx context.Context) error {
		var err error
		process, err = m.store.Load(ctx, processID)
		if err != nil {
			return err
		}
		if err := fn(ctx, process); err != nil {
			return err
		}
		return m.store.Save(ctx, process)
	})
	if err != nil {
		return nil, err
	}
	return process, nil
}

// Delete removes a process under the process lock.
func (m *Manager) Delete(ctx context.Context, processID string) error {
	return m.WithLock(ctx, processID, func(ctx context.Context) error {
		return m.store.Delete(ctx, processID)
	})
}

// Store returns the underlying process store.
func (m *Manager) Store() ports.ProcessStore {
	return m.store
}

// WithLock executes fn while holding the lock for the process.
func (m *Manager) WithLock(ctx context.Context, processID string, fn func(context.Context) error) error {
	entry := m.acquire(processID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(processID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, processID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Warn("failed to release distributed lock, it will expire via TTL",
					"process_id", processID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
