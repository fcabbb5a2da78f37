package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Event is one entry of a process's event chain: a signed, hash-chained
// record appended by the event trigger.
type Event struct {
	Body      map[string]any `json:"body"`
	Timestamp time.Time      `json:"timestamp"`

	// Previous links this event to the hash of its predecessor, forming a
	// tamper-evident chain. Empty for the genesis event.
	Previous string `json:"previous"`

	// SignKey is the base64 public key of the signer.
	SignKey string `json:"signkey,omitempty"`

	// Signature is the base64 signature over the event hash.
	Signature string `json:"signature,omitempty"`

	// Hash is the SHA-256 digest of the event content including Previous.
	Hash string `json:"hash"`
}

// eventDigest is the canonical form hashed for chain integrity. The Hash and
// Signature fields are excluded.
type eventDigest struct {
	Body      map[string]any `json:"body"`
	Timestamp time.Time      `json:"timestamp"`
	Previous  string         `json:"previous"`
	SignKey   string         `json:"signkey,omitempty"`
}

// ComputeHash returns the SHA-256 digest of the event's canonical form.
func (e *Event) ComputeHash() (string, error) {
	raw, err := json.Marshal(eventDigest{
		Body:      e.Body,
		Timestamp: e.Timestamp,
		Previous:  e.Previous,
		SignKey:   e.SignKey,
	})
	if err != nil {
		return "", fmt.Errorf("hash event: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Verify recomputes the event hash and checks it against the stored value.
func (e *Event) Verify() error {
	computed, err := e.ComputeHash()
	if err != nil {
		return err
	}
	if computed != e.Hash {
		return fmt.Errorf("event integrity failure: computed %s, stored %s", computed, e.Hash)
	}
	return nil
}
