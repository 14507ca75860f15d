package index

import (
	"testing"
	"time"

	"github.com/LJ-Solana/solana-news-app-sub000/model"
)

func TestMirror_PutGet(t *testing.T) {
	m := NewMirror(time.Minute)
	st := model.StatusResponse{
		Slug:       "markets-rally-2026",
		Verified:   true,
		VerifiedBy: "attester-key",
		OnChainRef: "derived-address",
	}
	m.Put(st)

	got, ok := m.Get("markets-rally-2026")
	if !ok {
		t.Fatalf("expected cached status")
	}
	if got != st {
		t.Fatalf("status mismatch: %+v", got)
	}

	if _, ok := m.Get("unknown-slug"); ok {
		t.Fatalf("unexpected hit for unknown slug")
	}
}

func TestMirror_Invalidate(t *testing.T) {
	m := NewMirror(time.Minute)
	m.Put(model.StatusResponse{Slug: "s", Verified: true})
	m.Invalidate("s")
	if _, ok := m.Get("s"); ok {
		t.Fatalf("expected entry to be dropped")
	}
}

func TestMirror_IgnoresEmptySlug(t *testing.T) {
	m := NewMirror(time.Minute)
	m.Put(model.StatusResponse{})
	if _, ok := m.Get(""); ok {
		t.Fatalf("empty slug must not be cached")
	}
}
