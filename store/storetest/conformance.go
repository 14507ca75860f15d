// Package storetest provides a conformance suite every store.Store
// implementation must pass.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/LJ-Solana/solana-news-app-sub000/contentid"
	"github.com/LJ-Solana/solana-news-app-sub000/store"
)

// NewStore constructs a fresh, empty store instance for a test.
// The returned store MUST be isolated from other tests.
type NewStore func(t *testing.T) store.Store

func record(title string, attester string, at time.Time) store.Record {
	h := contentid.HashContent(title, "description of "+title)
	return store.Record{
		ContentHash:   h,
		ContentHex:    h.Hex(),
		Slug:          title,
		IsVerified:    true,
		VerifiedBy:    attester,
		SubmittedAt:   at,
		RatingEndTime: at.Add(24 * time.Hour),
	}
}

func RunConformance(t *testing.T, newStore NewStore) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	t.Run("SubmitGetRoundTrip", func(t *testing.T) {
		st := newStore(t)
		rec := record("round-trip", "attester-1", now)
		if err := st.SubmitClaim(ctx, rec, 100); err != nil {
			t.Fatalf("SubmitClaim failed: %v", err)
		}
		got, err := st.GetRecord(ctx, rec.ContentHash)
		if err != nil {
			t.Fatalf("GetRecord failed: %v", err)
		}
		if got.VerifiedBy != rec.VerifiedBy || !got.IsVerified || got.Slug != rec.Slug {
			t.Fatalf("record mismatch: %+v", got)
		}
		stats, err := st.GetAttester(ctx, "attester-1")
		if err != nil {
			t.Fatalf("GetAttester failed: %v", err)
		}
		if stats.VerifiedCount != 1 || stats.VerificationsToday != 1 {
			t.Fatalf("stats mismatch: %+v", stats)
		}
	})

	t.Run("SubmitIsExclusive", func(t *testing.T) {
		st := newStore(t)
		rec := record("exclusive", "attester-1", now)
		if err := st.SubmitClaim(ctx, rec, 100); err != nil {
			t.Fatalf("SubmitClaim failed: %v", err)
		}
		dup := rec
		dup.VerifiedBy = "attester-2"
		if err := st.SubmitClaim(ctx, dup, 100); err != store.ErrExists {
			t.Fatalf("expected ErrExists, got %v", err)
		}
		// The losing attester must not be charged.
		if _, err := st.GetAttester(ctx, "attester-2"); err != store.ErrNotFound {
			t.Fatalf("loser stats should be absent, got %v", err)
		}
	})

	t.Run("ConcurrentSubmitSingleWinner", func(t *testing.T) {
		st := newStore(t)
		rec := record("contended", "", now)

		const n = 8
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				r := rec
				r.VerifiedBy = "attester-" + string(rune('a'+i))
				errs[i] = st.SubmitClaim(ctx, r, 100)
			}(i)
		}
		wg.Wait()

		wins := 0
		for i, err := range errs {
			switch err {
			case nil:
				wins++
			case store.ErrExists:
			default:
				t.Fatalf("submission %d: unexpected error %v", i, err)
			}
		}
		if wins != 1 {
			t.Fatalf("expected exactly one winner, got %d", wins)
		}
	})

	t.Run("DailyLimit", func(t *testing.T) {
		st := newStore(t)
		for i := 0; i < 2; i++ {
			rec := record("limited-"+string(rune('a'+i)), "attester-1", now)
			if err := st.SubmitClaim(ctx, rec, 2); err != nil {
				t.Fatalf("SubmitClaim %d failed: %v", i, err)
			}
		}
		over := record("limited-c", "attester-1", now)
		if err := st.SubmitClaim(ctx, over, 2); err != store.ErrDailyLimit {
			t.Fatalf("expected ErrDailyLimit, got %v", err)
		}
		// Over-quota submissions must leave no record behind.
		if _, err := st.GetRecord(ctx, over.ContentHash); err != store.ErrNotFound {
			t.Fatalf("over-quota record should be absent, got %v", err)
		}

		// Counter resets on the next UTC day; lifetime count keeps growing.
		next := record("limited-d", "attester-1", now.Add(24*time.Hour))
		if err := st.SubmitClaim(ctx, next, 2); err != nil {
			t.Fatalf("SubmitClaim next day failed: %v", err)
		}
		stats, err := st.GetAttester(ctx, "attester-1")
		if err != nil {
			t.Fatalf("GetAttester failed: %v", err)
		}
		if stats.VerificationsToday != 1 || stats.VerifiedCount != 3 {
			t.Fatalf("stats after rollover: %+v", stats)
		}
	})

	t.Run("UpdateRecordAtomic", func(t *testing.T) {
		st := newStore(t)
		rec := record("updatable", "attester-1", now)
		if err := st.SubmitClaim(ctx, rec, 100); err != nil {
			t.Fatalf("SubmitClaim failed: %v", err)
		}

		boom := func(r *store.Record) error {
			r.TotalRatings = 99
			return store.ErrClosed // any error: change must not persist
		}
		if _, err := st.UpdateRecord(ctx, rec.ContentHash, boom); err != store.ErrClosed {
			t.Fatalf("expected fn error back, got %v", err)
		}
		got, err := st.GetRecord(ctx, rec.ContentHash)
		if err != nil {
			t.Fatalf("GetRecord failed: %v", err)
		}
		if got.TotalRatings != 0 {
			t.Fatalf("failed update must not persist, got %+v", got)
		}

		updated, err := st.UpdateRecord(ctx, rec.ContentHash, func(r *store.Record) error {
			r.TotalRatings = 1
			r.SumOfRatings = 4
			r.Ratings = append(r.Ratings, store.Rating{Rater: "r1", Score: 4, Timestamp: now})
			return nil
		})
		if err != nil {
			t.Fatalf("UpdateRecord failed: %v", err)
		}
		if updated.TotalRatings != 1 || updated.SumOfRatings != 4 || len(updated.Ratings) != 1 {
			t.Fatalf("update not applied: %+v", updated)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		st := newStore(t)
		if _, err := st.GetRecord(ctx, contentid.HashContent("missing", "missing")); err != store.ErrNotFound {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := st.UpdateRecord(ctx, contentid.HashContent("missing", "missing"), func(*store.Record) error { return nil }); err != store.ErrNotFound {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := st.GetAttester(ctx, "nobody"); err != store.ErrNotFound {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
