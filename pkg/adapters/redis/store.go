// Package redis provides Redis-backed adapters: a process store and a
// distributed per-process lock.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/flowdhq/flowd/pkg/domain"
)

// Store implements ports.ProcessStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets an expiration for stored processes.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "flowd:process:",
		ttl:    0, // no expiration by default
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client so other adapters (the locker) can
// share the connection pool.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the process as a JSON document.
func (s *Store) Save(ctx context.Context, process *domain.Process) error {
	raw, err := json.Marshal(process)
	if err != nil {
		return fmt.Errorf("marshal process %s: %w", process.ID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(process.ID), raw, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), process.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save process %s: %w", process.ID, err)
	}
	return nil
}

// Load retrieves a process by id.
func (s *Store) Load(ctx context.Context, id string) (*domain.Process, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, domain.ErrProcessNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load process %s: %w", id, err)
	}

	var process domain.Process
	if err := json.Unmarshal(raw, &process); err != nil {
		return nil, fmt.Errorf("unmarshal process %s: %w", id, err)
	}
	return &process, nil
}

// Delete removes the process.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.SRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete process %s: %w", id, err)
	}
	return nil
}

// List returns the ids of all stored processes. Entries whose key expired
// are cleaned from the index lazily.
func (s *Store) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		exists, err := s.client.Exists(ctx, s.key(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("list processes: %w", err)
		}
		if exists == 0 {
			s.client.SRem(ctx, s.indexKey(), id)
			continue
		}
		out = append(out, id)
	}
	return out, nil
}
