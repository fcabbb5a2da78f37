package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowdhq/flowd/pkg/domain"
	"github.com/flowdhq/flowd/pkg/ports"
)

// Chain is an in-memory append-only event chain. Appends are serialized
// with a per-chain mutex to preserve hash-chain integrity under concurrent
// event-trigger invocations.
type Chain struct {
	id string

	mu     sync.RWMutex
	events []*domain.Event
}

// ID returns the chain identifier.
func (c *Chain) ID() string { return c.id }

// Tip returns the hash of the last event, or "" for an empty chain.
func (c *Chain) Tip(ctx context.Context) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.events) == 0 {
		return "", nil
	}
	return c.events[len(c.events)-1].Hash, nil
}

// Append adds an event. The event must link to the current tip and carry a
// valid hash.
func (c *Chain) Append(ctx context.Context, event *domain.Event) error {
	if err := event.Verify(); err != nil {
		return fmt.Errorf("chain %s: %w", c.id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tip := ""
	if len(c.events) > 0 {
		tip = c.events[len(c.events)-1].Hash
	}
	if event.Previous != tip {
		return fmt.Errorf("chain %s: event links to %q, tip is %q", c.id, event.Previous, tip)
	}

	c.events = append(c.events, event)
	return nil
}

// Events returns a snapshot of the chain.
func (c *Chain) Events() []*domain.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*domain.Event, len(c.events))
	copy(out, c.events)
	return out
}

// Verify walks the chain checking every link and every event hash.
func (c *Chain) Verify() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	previous := ""
	for i, event := range c.events {
		if event.Previous != previous {
			return fmt.Errorf("chain %s broken at index %d: previous hash mismatch", c.id, i)
		}
		if err := event.Verify(); err != nil {
			return fmt.Errorf("chain %s index %d: %w", c.id, i, err)
		}
		previous = event.Hash
	}
	return nil
}

// ChainService implements ports.EventChainService in memory.
type ChainService struct {
	mu     sync.RWMutex
	chains map[string]*Chain
}

// NewChainService creates an empty chain service.
func NewChainService() *ChainService {
	return &ChainService{chains: make(map[string]*Chain)}
}

// Get returns the ledger for a chain id.
func (s *ChainService) Get(ctx context.Context, chainID string) (ports.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain, ok := s.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrChainNotFound, chainID)
	}
	return chain, nil
}

// Register creates (or returns) the ledger for a chain id.
func (s *ChainService) Register(ctx context.Context, chainID string) (ports.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chain, ok := s.chains[chainID]
	if !ok {
		chain = &Chain{id: chainID}
		s.chains[chainID] = chain
	}
	return chain, nil
}

// Chain returns the concrete chain for inspection in tests.
func (s *ChainService) Chain(chainID string) (*Chain, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain, ok := s.chains[chainID]
	return chain, ok
}
