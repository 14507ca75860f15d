// Package contentid derives stable identifiers for published content.
//
// A content item is identified by the sha256 digest of its canonical fields;
// the digest maps deterministically to a ledger address and to an
// IPFS-compatible CID for archived documents. No lookup table is involved:
// identity is a pure function of content.
package contentid

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multihash"
)

// Size is the length of a content hash in bytes.
const Size = sha256.Size

// Namespace is the default namespace tag for derived ledger addresses.
const Namespace = "news-verify"

// Hash is a 32-byte content digest.
type Hash [Size]byte

var errBadHex = errors.New("contentid: hash must be 64 hex characters")

// HashContent digests a content item's immutable fields.
//
// Canonicalization: CRLF and lone CR are normalized to LF, then title and
// description are joined with a single LF and hashed as UTF-8 bytes. No other
// whitespace or locale-dependent transformation is applied, so semantically
// identical input always produces the same digest.
func HashContent(title, description string) Hash {
	return sha256.Sum256(CanonicalBytes(title, description))
}

// CanonicalBytes returns the exact byte serialization covered by HashContent.
func CanonicalBytes(title, description string) []byte {
	return []byte(normalizeNewlines(title) + "\n" + normalizeNewlines(description))
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func (h Hash) Hex() string { return hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

// ParseHex decodes a 64-character hex digest.
func ParseHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != Size {
		return Hash{}, errBadHex
	}
	copy(h[:], b)
	return h, nil
}

// DeriveAddress maps a content hash to its ledger address.
//
// The address is sha256(namespace || 0x00 || hash) in base58. It is a pure
// function: the same namespace and hash always derive the same address, and
// distinct hashes derive distinct addresses under standard hash-strength
// assumptions. The zero byte separates the namespace from the hash so no two
// (namespace, hash) pairs share a preimage.
func DeriveAddress(namespace string, h Hash) (string, error) {
	if namespace == "" {
		return "", errors.New("contentid: namespace tag is required")
	}
	seed := make([]byte, 0, len(namespace)+1+Size)
	seed = append(seed, namespace...)
	seed = append(seed, 0x00)
	seed = append(seed, h[:]...)
	sum := sha256.Sum256(seed)
	return base58.Encode(sum[:]), nil
}

// CIDv1RawSHA256 returns a CIDv1 string using the "raw" multicodec and a
// sha2-256 multihash. Archived claim documents are keyed by this CID.
func CIDv1RawSHA256(data []byte) string {
	id, err := CIDv1RawSHA256CID(data)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1
		// length, this should be unreachable.
		return ""
	}
	return id.String()
}

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}
