package memory

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// Signer is an in-memory ed25519 signing identity for development and
// tests. Production deployments back ports.Signer with an HSM or KMS.
type Signer struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// NewSigner generates a fresh keypair.
func NewSigner() (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return &Signer{pub: pub, priv: priv}, nil
}

// NewSignerFromSeed derives a deterministic keypair, useful in tests.
func NewSignerFromSeed(seed []byte) *Signer {
	priv := ed25519.NewKeyFromSeed(seed)
	return &Signer{pub: priv.Public().(ed25519.PublicKey), priv: priv}
}

// Sign signs a message with the private key.
func (s *Signer) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, msg), nil
}

// PublicKey returns the public key.
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.pub
}
