// Package archivetest provides a conformance suite every archive.Store
// implementation must pass.
package archivetest

import (
	"bytes"
	"testing"

	"github.com/LJ-Solana/solana-news-app-sub000/archive"
	"github.com/LJ-Solana/solana-news-app-sub000/contentid"
)

// NewStore constructs a fresh, empty archive instance for a test.
// The returned store MUST be isolated from other tests.
type NewStore func(t *testing.T) archive.Store

func RunConformance(t *testing.T, newStore NewStore) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		st := newStore(t)
		want := []byte("canonical claim document bytes")

		id, err := st.Put(want)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		wantID, err := contentid.CIDv1RawSHA256CID(want)
		if err != nil {
			t.Fatalf("CIDv1RawSHA256CID failed: %v", err)
		}
		if id != wantID {
			t.Fatalf("Put CID mismatch: got %s want %s", id, wantID)
		}

		got, err := st.Get(id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
		if !st.Has(id) {
			t.Fatalf("Has returned false for stored document")
		}
	})

	t.Run("PutIsIdempotent", func(t *testing.T) {
		st := newStore(t)
		b := []byte("idempotent document")
		id1, err := st.Put(b)
		if err != nil {
			t.Fatalf("first Put failed: %v", err)
		}
		id2, err := st.Put(b)
		if err != nil {
			t.Fatalf("second Put failed: %v", err)
		}
		if id1 != id2 {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("GetAbsentIsNotFound", func(t *testing.T) {
		st := newStore(t)
		id, err := contentid.CIDv1RawSHA256CID([]byte("never stored"))
		if err != nil {
			t.Fatalf("CIDv1RawSHA256CID failed: %v", err)
		}
		if _, err := st.Get(id); !archive.IsNotFound(err) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if st.Has(id) {
			t.Fatalf("Has returned true for absent document")
		}
	})
}
