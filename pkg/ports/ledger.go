package ports

import (
	"context"
	"crypto/ed25519"

	"github.com/flowdhq/flowd/pkg/domain"
)

// Ledger is one append-only, hash-chained sequence of signed events.
// Appends to a single ledger must be serialized by the implementation to
// preserve hash-chain integrity under concurrent trigger invocations.
type Ledger interface {
	// ID returns the chain identifier.
	ID() string

	// Tip returns the hash of the last event, or the empty string for an
	// empty chain.
	Tip(ctx context.Context) (string, error)

	// Append adds a signed event to the chain.
	Append(ctx context.Context, event *domain.Event) error
}

// EventChainService resolves and registers ledgers by chain ID.
type EventChainService interface {
	// Get returns the ledger for a chain ID.
	// Returns domain.ErrChainNotFound if the chain is unknown.
	Get(ctx context.Context, chainID string) (Ledger, error)

	// Register creates (or returns) the ledger for a chain ID.
	Register(ctx context.Context, chainID string) (Ledger, error)
}

// Signer is a signing identity used by the event trigger. Implementations
// may back it with an in-memory key, an HSM or a KMS.
type Signer interface {
	Sign(msg []byte) ([]byte, error)
	PublicKey() ed25519.PublicKey
}
