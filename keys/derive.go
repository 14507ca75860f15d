package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/LJ-Solana/solana-news-app-sub000/attest"
)

// AttesterKeyFromSeed returns the wire attester key string for an Ed25519
// seed: the base58 encoding of the derived public key.
func AttesterKeyFromSeed(seed []byte) string {
	priv := ed25519.NewKeyFromSeed(seed)
	return attest.EncodeEd25519(priv.Public().(ed25519.PublicKey))
}

// PrivateKeyFromSeed returns the signing key for an Ed25519 seed.
func PrivateKeyFromSeed(seed []byte) ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(seed)
}

// DeriveRoleSeed deterministically derives a role-specific Ed25519 seed from
// a root seed, so one identity can keep separate verify/rate keys without
// storing extra secrets.
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", ed25519.SeedSize)
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}

	h := sha256.New()
	_, _ = h.Write(rootSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("newsverify-kms-v1"))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("role:"))
	_, _ = h.Write([]byte(role))
	sum := h.Sum(nil)
	if len(sum) < ed25519.SeedSize {
		return nil, errors.New("kdf output too short")
	}
	out := make([]byte, ed25519.SeedSize)
	copy(out, sum[:ed25519.SeedSize])
	return out, nil
}
