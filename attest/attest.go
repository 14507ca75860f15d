// Package attest builds and verifies the canonical attestation message for a
// content item.
//
// The verifier never trusts a client-supplied message: the signed bytes are
// reconstructed server-side from the claimed slug and evidence text, so a
// signature only ever binds the exact fields the ledger records.
package attest

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/mr-tron/base58"

	"github.com/LJ-Solana/solana-news-app-sub000/model"
)

// Message returns the canonical byte string an attester signs.
func Message(slug, sourceData string) []byte {
	return []byte("Verify article: " + slug + "\nSource: " + sourceData)
}

// PublicKey is a parsed attester key bound to its signature scheme.
type PublicKey struct {
	// Alg is "ed25519" or "dilithium3".
	Alg string

	ed  ed25519.PublicKey
	pq  *mode3.PublicKey
	enc string
}

// String returns the key in its canonical wire encoding.
func (k PublicKey) String() string { return k.enc }

// ParsePublicKey decodes an attester key from its wire encoding.
//
// Supported encodings:
//   - base58 ed25519 (ledger-native, 32 bytes)
//   - dilithium3:<base64>
func ParsePublicKey(s string) (PublicKey, error) {
	if s == "" {
		return PublicKey{}, model.NewError(model.ErrInvalidSignature, "missing public key")
	}
	if alg, enc, ok := strings.Cut(s, ":"); ok {
		switch alg {
		case "dilithium3":
			raw, err := base64.StdEncoding.DecodeString(enc)
			if err != nil {
				return PublicKey{}, model.NewError(model.ErrInvalidSignature, "invalid dilithium3 key base64")
			}
			var pk mode3.PublicKey
			if err := pk.UnmarshalBinary(raw); err != nil {
				return PublicKey{}, model.NewError(model.ErrInvalidSignature, "invalid dilithium3 public key")
			}
			return PublicKey{Alg: "dilithium3", pq: &pk, enc: s}, nil
		case "ed25519":
			// Accept the prefixed form too; the base58 body is the same key.
			s = enc
		default:
			return PublicKey{}, model.Errorf(model.ErrInvalidSignature, "unsupported key scheme %q", alg)
		}
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return PublicKey{}, model.NewError(model.ErrInvalidSignature, "invalid public key base58")
	}
	if len(raw) != ed25519.PublicKeySize {
		return PublicKey{}, model.NewError(model.ErrInvalidSignature, "invalid ed25519 public key length")
	}
	return PublicKey{Alg: "ed25519", ed: ed25519.PublicKey(raw), enc: base58.Encode(raw)}, nil
}

// EncodeEd25519 returns the canonical wire encoding for a raw ed25519 key.
func EncodeEd25519(pub ed25519.PublicKey) string {
	return base58.Encode(pub)
}

// Verify checks sig over the canonical message for key.
//
// It fails only with INVALID_SIGNATURE: malformed lengths and cryptographic
// mismatch are indistinguishable to the caller, and neither can be confused
// with a storage or network fault.
func Verify(key PublicKey, message, sig []byte) error {
	switch key.Alg {
	case "ed25519":
		if len(sig) != ed25519.SignatureSize {
			return model.NewError(model.ErrInvalidSignature, "invalid ed25519 signature length")
		}
		if !ed25519.Verify(key.ed, message, sig) {
			return model.NewError(model.ErrInvalidSignature, "signature did not verify")
		}
		return nil
	case "dilithium3":
		if len(sig) != mode3.SignatureSize {
			return model.NewError(model.ErrInvalidSignature, "invalid dilithium3 signature length")
		}
		if !mode3.Verify(key.pq, message, sig) {
			return model.NewError(model.ErrInvalidSignature, "signature did not verify")
		}
		return nil
	default:
		return model.NewError(model.ErrInvalidSignature, "unsupported signature scheme")
	}
}

// VerifyEncoded parses the key and base64 signature, then verifies message.
func VerifyEncoded(keyStr string, message []byte, sigB64 string) (PublicKey, error) {
	key, err := ParsePublicKey(keyStr)
	if err != nil {
		return PublicKey{}, err
	}
	sig, err := decodeBase64(sigB64)
	if err != nil {
		return PublicKey{}, model.NewError(model.ErrInvalidSignature, "invalid signature base64")
	}
	if err := Verify(key, message, sig); err != nil {
		return PublicKey{}, err
	}
	return key, nil
}

// SignEd25519 returns the base64 signature an attester submits.
func SignEd25519(message []byte, priv ed25519.PrivateKey) string {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(priv, message))
}

func decodeBase64(s string) ([]byte, error) {
	// Prefer standard padded encoding, but accept raw encoding too.
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
