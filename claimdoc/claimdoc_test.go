package claimdoc

import (
	"bytes"
	"crypto/ed25519"
	"strings"
	"testing"
	"time"

	"github.com/LJ-Solana/solana-news-app-sub000/attest"
	"github.com/LJ-Solana/solana-news-app-sub000/contentid"
)

func sampleDoc(t *testing.T, verifierKey string) Document {
	t.Helper()
	h := contentid.HashContent("Breaking: markets rally", "Indexes closed up 2% on Friday.")
	addr, err := contentid.DeriveAddress(contentid.Namespace, h)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	return Document{
		Slug:          "markets-rally-2026",
		ContentHash:   h.Hex(),
		Address:       addr,
		VerifierKey:   verifierKey,
		SourceData:    "https://example.com/fact-check\nreviewed primary filings",
		SubmittedAt:   at,
		RatingEndTime: at.Add(72 * time.Hour),
	}
}

func TestRender_Deterministic(t *testing.T) {
	doc := sampleDoc(t, attest.EncodeEd25519(make([]byte, ed25519.PublicKeySize)))
	a := Render(doc, RenderOptions{})
	b := Render(doc, RenderOptions{})
	if !bytes.Equal(a, b) {
		t.Fatalf("render not deterministic")
	}
	if !strings.HasPrefix(string(a), Preamble) || !strings.HasSuffix(strings.TrimRight(string(a), "\n"), Postamble) {
		t.Fatalf("missing framing:\n%s", a)
	}
	for _, section := range []string{"META", "CONTENT", "EVIDENCE", "CRYPTO"} {
		if !strings.Contains(string(a), "\n"+section+"\n") {
			t.Fatalf("missing section %s", section)
		}
	}
	// Multi-line evidence must fold into a single Source line.
	if strings.Contains(string(a), "reviewed primary filings\nSource") {
		t.Fatalf("evidence not folded")
	}
}

func TestSignAndVerify(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = 7
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	doc := sampleDoc(t, attest.EncodeEd25519(pub))
	out, cid := RenderWithCID(doc, RenderOptions{PrivateKey: priv})
	if cid == "" {
		t.Fatalf("expected a CID")
	}

	ok, err := VerifySignature(out)
	if err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
	if !ok {
		t.Fatalf("expected signed document to verify")
	}

	// Unsigned documents report (false, nil).
	unsigned := Render(doc, RenderOptions{})
	ok, err = VerifySignature(unsigned)
	if err != nil {
		t.Fatalf("VerifySignature unsigned: %v", err)
	}
	if ok {
		t.Fatalf("unsigned document must not verify as signed")
	}
}

func TestVerify_RejectsTampering(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = 7
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	doc := sampleDoc(t, attest.EncodeEd25519(pub))
	out := Render(doc, RenderOptions{PrivateKey: priv})

	tampered := bytes.Replace(out, []byte("markets-rally-2026"), []byte("markets-crash-2026"), 1)
	if ok, err := VerifySignature(tampered); ok || err == nil {
		t.Fatalf("tampered document must fail verification, got ok=%v err=%v", ok, err)
	}
}

func TestRenderWithCID_BindsBytes(t *testing.T) {
	doc := sampleDoc(t, attest.EncodeEd25519(make([]byte, ed25519.PublicKeySize)))
	out, cid := RenderWithCID(doc, RenderOptions{})
	if contentid.CIDv1RawSHA256(out) != cid {
		t.Fatalf("CID does not match rendered bytes")
	}

	doc.SourceData = "different evidence"
	_, cid2 := RenderWithCID(doc, RenderOptions{})
	if cid2 == cid {
		t.Fatalf("distinct documents must have distinct CIDs")
	}
}
