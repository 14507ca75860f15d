package attest

import (
	"crypto/ed25519"
	"encoding/base64"
	"testing"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"github.com/LJ-Solana/solana-news-app-sub000/model"
)

func mustKeypair(t *testing.T, seedByte byte) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = seedByte
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return priv.Public().(ed25519.PublicKey), priv
}

func TestMessage_Canonical(t *testing.T) {
	got := string(Message("markets-rally-2026", "https://example.com/fact-check"))
	want := "Verify article: markets-rally-2026\nSource: https://example.com/fact-check"
	if got != want {
		t.Fatalf("canonical message mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestVerify_Ed25519RoundTrip(t *testing.T) {
	pub, priv := mustKeypair(t, 1)
	msg := Message("slug", "evidence")
	sigB64 := SignEd25519(msg, priv)

	key, err := VerifyEncoded(EncodeEd25519(pub), msg, sigB64)
	if err != nil {
		t.Fatalf("VerifyEncoded: %v", err)
	}
	if key.Alg != "ed25519" {
		t.Fatalf("unexpected alg %q", key.Alg)
	}
}

func TestVerify_RejectsWrongKey(t *testing.T) {
	_, priv := mustKeypair(t, 1)
	otherPub, _ := mustKeypair(t, 2)
	msg := Message("slug", "evidence")
	sigB64 := SignEd25519(msg, priv)

	_, err := VerifyEncoded(EncodeEd25519(otherPub), msg, sigB64)
	if !model.IsCode(err, model.ErrInvalidSignature) {
		t.Fatalf("expected INVALID_SIGNATURE, got %v", err)
	}
}

func TestVerify_RejectsTamperedMessage(t *testing.T) {
	pub, priv := mustKeypair(t, 1)
	sigB64 := SignEd25519(Message("slug", "evidence"), priv)

	_, err := VerifyEncoded(EncodeEd25519(pub), Message("slug", "other evidence"), sigB64)
	if !model.IsCode(err, model.ErrInvalidSignature) {
		t.Fatalf("expected INVALID_SIGNATURE, got %v", err)
	}
}

func TestVerify_MalformedInputs(t *testing.T) {
	pub, priv := mustKeypair(t, 1)
	msg := Message("slug", "evidence")
	sig := SignEd25519(msg, priv)

	cases := []struct {
		name string
		key  string
		sig  string
	}{
		{"empty key", "", sig},
		{"bad base58 key", "0OIl", sig},
		{"short key", EncodeEd25519(pub[:16]), sig},
		{"bad signature base64", EncodeEd25519(pub), "!!!"},
		{"short signature", EncodeEd25519(pub), base64.StdEncoding.EncodeToString(make([]byte, 10))},
		{"unknown scheme", "rsa:abcd", sig},
	}
	for _, tc := range cases {
		if _, err := VerifyEncoded(tc.key, msg, tc.sig); !model.IsCode(err, model.ErrInvalidSignature) {
			t.Fatalf("%s: expected INVALID_SIGNATURE, got %v", tc.name, err)
		}
	}
}

func TestVerify_Dilithium3(t *testing.T) {
	pub, priv, err := mode3.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	pubRaw, err := pub.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	keyStr := "dilithium3:" + base64.StdEncoding.EncodeToString(pubRaw)

	msg := Message("slug", "evidence")
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(priv, msg, sig)

	if _, err := VerifyEncoded(keyStr, msg, base64.StdEncoding.EncodeToString(sig)); err != nil {
		t.Fatalf("dilithium3 verify: %v", err)
	}

	sig[0] ^= 0xff
	_, err = VerifyEncoded(keyStr, msg, base64.StdEncoding.EncodeToString(sig))
	if !model.IsCode(err, model.ErrInvalidSignature) {
		t.Fatalf("expected INVALID_SIGNATURE for corrupted signature, got %v", err)
	}
}
