// Package claimdoc renders and verifies the canonical claim document archived
// for every successful verification.
//
// The document is a deterministic line format: sections always present, lines
// within a section sorted, so the same claim always produces the same bytes
// and therefore the same CID.
package claimdoc

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/LJ-Solana/solana-news-app-sub000/attest"
	"github.com/LJ-Solana/solana-news-app-sub000/contentid"
)

const (
	Preamble  = "-----BEGIN VERIFIED CONTENT CLAIM-----"
	Postamble = "-----END VERIFIED CONTENT CLAIM-----"
)

// Document carries the claim fields bound into the canonical bytes.
type Document struct {
	Slug          string
	ContentHash   string // hex digest
	Address       string // derived ledger address
	VerifierKey   string // base58 ed25519 key
	SourceData    string
	SubmittedAt   time.Time
	RatingEndTime time.Time
}

type RenderOptions struct {
	// PrivateKey, when set, populates the CRYPTO section with a signature
	// computed over the document bytes excluding the Signature: line.
	PrivateKey ed25519.PrivateKey
}

// Render produces the canonical claim document.
func Render(doc Document, opts RenderOptions) []byte {
	var sb strings.Builder
	sb.WriteString(Preamble)
	sb.WriteString("\n")

	sb.WriteString("META\n")
	metaLines := []string{
		"Spec: verified-content-claim-1",
		"Version: 1",
	}
	if !doc.SubmittedAt.IsZero() {
		metaLines = append(metaLines, "Submitted-At: "+doc.SubmittedAt.UTC().Format(time.RFC3339))
	}
	if !doc.RatingEndTime.IsZero() {
		metaLines = append(metaLines, "Rating-End-Time: "+doc.RatingEndTime.UTC().Format(time.RFC3339))
	}
	sort.Strings(metaLines)
	for _, l := range metaLines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString("CONTENT\n")
	contentLines := []string{
		"Content-Hash: " + doc.ContentHash,
		"Ledger-Address: " + doc.Address,
		"Slug: " + doc.Slug,
		"Verifier-Key: " + doc.VerifierKey,
	}
	sort.Strings(contentLines)
	for _, l := range contentLines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString("EVIDENCE\n")
	// Evidence is free text; fold line breaks so the line format stays intact.
	sb.WriteString("Source: " + strings.Join(strings.Fields(doc.SourceData), " "))
	sb.WriteString("\n\n")

	sb.WriteString("CRYPTO\n")
	if len(opts.PrivateKey) > 0 {
		cryptoLines := []string{
			"Hash-Alg: sha256",
			"Signature-Alg: ed25519",
			"Signature: 0",
		}
		sort.Strings(cryptoLines)
		for _, l := range cryptoLines {
			sb.WriteString(l)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")

	sb.WriteString(Postamble)
	sb.WriteString("\n")
	out := []byte(sb.String())

	if len(opts.PrivateKey) > 0 {
		sig, err := sign(out, opts.PrivateKey)
		if err == nil {
			out = []byte(strings.Replace(string(out), "Signature: 0", "Signature: "+sig, 1))
		}
	}
	return out
}

// RenderWithCID renders the document and returns its archive CID.
func RenderWithCID(doc Document, opts RenderOptions) ([]byte, string) {
	b := Render(doc, opts)
	return b, contentid.CIDv1RawSHA256(b)
}

// VerifySignature verifies the CRYPTO signature, if present.
//
// Returns (true, nil) if the document is signed and the signature verifies
// against the embedded Verifier-Key. Returns (false, nil) if the document is
// unsigned (empty CRYPTO section). Returns (false, err) for malformed or
// invalid signatures.
func VerifySignature(docBytes []byte) (bool, error) {
	cryptoLines, err := sectionLines(docBytes, "CRYPTO")
	if err != nil {
		return false, err
	}
	if len(cryptoLines) == 0 {
		return false, nil
	}

	sigAlg, hasAlg := singleField(cryptoLines, "Signature-Alg")
	hashAlg, hasHash := singleField(cryptoLines, "Hash-Alg")
	sigB64, hasSig := singleField(cryptoLines, "Signature")
	if !(hasAlg && hasHash && hasSig) {
		return false, errors.New("CRYPTO: incomplete signature fields")
	}
	if sigAlg != "ed25519" || hashAlg != "sha256" {
		return false, errors.New("CRYPTO: unsupported signature parameters")
	}

	contentLines, err := sectionLines(docBytes, "CONTENT")
	if err != nil {
		return false, err
	}
	keyStr, hasKey := singleField(contentLines, "Verifier-Key")
	if !hasKey {
		return false, errors.New("CONTENT: missing Verifier-Key")
	}
	key, err := attest.ParsePublicKey(keyStr)
	if err != nil {
		return false, err
	}

	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false, errors.New("CRYPTO: invalid Signature encoding")
	}
	if len(sig) != ed25519.SignatureSize {
		return false, errors.New("CRYPTO: invalid Signature length")
	}

	scope, err := signatureScope(docBytes)
	if err != nil {
		return false, err
	}
	digest := sha256.Sum256(scope)
	if err := attest.Verify(key, digest[:], sig); err != nil {
		return false, errors.New("CRYPTO: signature did not verify")
	}
	return true, nil
}

func sign(docBytes []byte, priv ed25519.PrivateKey) (string, error) {
	scope, err := signatureScope(docBytes)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(scope)
	return base64.StdEncoding.EncodeToString(ed25519.Sign(priv, digest[:])), nil
}

// signatureScope is the document minus its single Signature: line.
func signatureScope(docBytes []byte) ([]byte, error) {
	lines := strings.Split(string(docBytes), "\n")
	var out []string
	removed := false
	for _, l := range lines {
		if strings.HasPrefix(l, "Signature: ") {
			if removed {
				return nil, errors.New("multiple Signature lines")
			}
			removed = true
			continue
		}
		out = append(out, l)
	}
	if !removed {
		return nil, errors.New("missing Signature line")
	}
	return []byte(strings.Join(out, "\n")), nil
}

// sectionLines returns the lines between the section header and the next
// blank line.
func sectionLines(docBytes []byte, section string) ([]string, error) {
	lines := strings.Split(string(docBytes), "\n")
	var out []string
	in := false
	found := false
	for _, l := range lines {
		if l == section {
			if found {
				return nil, errors.New("duplicate section " + section)
			}
			in = true
			found = true
			continue
		}
		if in {
			if l == "" {
				in = false
				continue
			}
			out = append(out, l)
		}
	}
	if !found {
		return nil, errors.New("missing section " + section)
	}
	return out, nil
}

func singleField(lines []string, name string) (string, bool) {
	prefix := name + ": "
	val := ""
	n := 0
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			val = strings.TrimPrefix(l, prefix)
			n++
		}
	}
	if n != 1 {
		return "", false
	}
	return val, true
}
