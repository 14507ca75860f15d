package rating_test

import (
	"context"
	"crypto/ed25519"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/LJ-Solana/solana-news-app-sub000/attest"
	"github.com/LJ-Solana/solana-news-app-sub000/contentid"
	"github.com/LJ-Solana/solana-news-app-sub000/ledger"
	"github.com/LJ-Solana/solana-news-app-sub000/model"
	"github.com/LJ-Solana/solana-news-app-sub000/rating"
	"github.com/LJ-Solana/solana-news-app-sub000/snapshot"
	"github.com/LJ-Solana/solana-news-app-sub000/store"
)

var testEpoch = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func keyFor(t *testing.T, seedByte byte) (string, ed25519.PrivateKey) {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = seedByte
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return attest.EncodeEd25519(priv.Public().(ed25519.PublicKey)), priv
}

type fixture struct {
	st    *store.Memory
	clk   *clock.Mock
	led   *ledger.Ledger
	agg   *rating.Aggregator
	hash  contentid.Hash
	owner string
}

// newFixture opens a ledger over a shared memory store and claims one content
// item so the rating window is open.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{st: store.NewMemory(), clk: clock.NewMock()}
	f.clk.Set(testEpoch)

	led, err := ledger.Open(f.st, ledger.Config{Clock: f.clk})
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	f.led = led
	f.agg = rating.NewAggregator(f.st, f.clk)

	ownerKey, ownerPriv := keyFor(t, 1)
	f.owner = ownerKey
	f.hash = contentid.HashContent("rated story", "description")
	slug := "rated-story"
	_, err = led.SubmitVerification(context.Background(), ledger.SubmitRequest{
		ContentHash: f.hash,
		Slug:        slug,
		AttesterKey: ownerKey,
		Signature:   attest.SignEd25519(attest.Message(slug, "evidence"), ownerPriv),
		SourceData:  "evidence",
	})
	if err != nil {
		t.Fatalf("SubmitVerification: %v", err)
	}
	return f
}

func TestSubmitRating_Bounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rater, _ := keyFor(t, 2)

	for _, bad := range []uint8{0, 6, 200} {
		if _, err := f.agg.SubmitRating(ctx, f.hash, rater, bad); !model.IsCode(err, model.ErrInvalidRating) {
			t.Fatalf("rating %d: expected INVALID_RATING, got %v", bad, err)
		}
	}
	for score := uint8(1); score <= 5; score++ {
		rk, _ := keyFor(t, 10+score)
		if _, err := f.agg.SubmitRating(ctx, f.hash, rk, score); err != nil {
			t.Fatalf("rating %d: %v", score, err)
		}
	}
}

func TestSubmitRating_UnverifiedContent(t *testing.T) {
	f := newFixture(t)
	rater, _ := keyFor(t, 2)
	_, err := f.agg.SubmitRating(context.Background(), contentid.HashContent("unknown", "unknown"), rater, 3)
	if !model.IsCode(err, model.ErrContentNotVerified) {
		t.Fatalf("expected CONTENT_NOT_VERIFIED, got %v", err)
	}
}

func TestSubmitRating_SelfRatingExcluded(t *testing.T) {
	f := newFixture(t)
	_, err := f.agg.SubmitRating(context.Background(), f.hash, f.owner, 5)
	if !model.IsCode(err, model.ErrCannotRateOwnContent) {
		t.Fatalf("expected CANNOT_RATE_OWN_CONTENT, got %v", err)
	}
}

func TestSubmitRating_AuthorExcluded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	verifierKey, verifierPriv := keyFor(t, 3)
	authorKey, _ := keyFor(t, 4)
	hash := contentid.HashContent("authored story", "description")
	slug := "authored-story"
	_, err := f.led.SubmitVerification(ctx, ledger.SubmitRequest{
		ContentHash: hash,
		Slug:        slug,
		AttesterKey: verifierKey,
		Signature:   attest.SignEd25519(attest.Message(slug, "evidence"), verifierPriv),
		SourceData:  "evidence",
		AuthorKey:   authorKey,
	})
	if err != nil {
		t.Fatalf("SubmitVerification: %v", err)
	}

	// The author is excluded even though they are not the verifier.
	if _, err := f.agg.SubmitRating(ctx, hash, authorKey, 5); !model.IsCode(err, model.ErrCannotRateOwnContent) {
		t.Fatalf("expected CANNOT_RATE_OWN_CONTENT for author, got %v", err)
	}
	if _, err := f.agg.SubmitRating(ctx, hash, verifierKey, 5); !model.IsCode(err, model.ErrCannotRateOwnContent) {
		t.Fatalf("expected CANNOT_RATE_OWN_CONTENT for verifier, got %v", err)
	}

	// Anyone else may rate.
	other, _ := keyFor(t, 5)
	if _, err := f.agg.SubmitRating(ctx, hash, other, 4); err != nil {
		t.Fatalf("third-party rating: %v", err)
	}
}

func TestSubmitRating_DuplicateRater(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rater, _ := keyFor(t, 2)

	if _, err := f.agg.SubmitRating(ctx, f.hash, rater, 4); err != nil {
		t.Fatalf("first rating: %v", err)
	}
	before, err := f.agg.Aggregate(ctx, f.hash)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if _, err := f.agg.SubmitRating(ctx, f.hash, rater, 5); !model.IsCode(err, model.ErrAlreadyRated) {
		t.Fatalf("expected ALREADY_RATED, got %v", err)
	}

	after, err := f.agg.Aggregate(ctx, f.hash)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if after.TotalRatings != before.TotalRatings || after.SumOfRatings != before.SumOfRatings {
		t.Fatalf("rejected rating mutated aggregate: before %+v after %+v", before, after)
	}
}

func TestSubmitRating_ConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rater, _ := keyFor(t, 2)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.agg.SubmitRating(ctx, f.hash, rater, 4)
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, err := range errs {
		switch {
		case err == nil:
			wins++
		case model.IsCode(err, model.ErrAlreadyRated):
		default:
			t.Fatalf("rating %d: unexpected error %v", i, err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one recorded rating, got %d", wins)
	}
}

func TestSubmitRating_WindowClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rater, _ := keyFor(t, 2)

	f.clk.Add(ledger.DefaultRatingWindow)
	if _, err := f.agg.SubmitRating(ctx, f.hash, rater, 4); !model.IsCode(err, model.ErrRatingPeriodClosed) {
		t.Fatalf("expected RATING_PERIOD_CLOSED, got %v", err)
	}
}

func TestSubmitRating_Overflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Force the stored sum near the numeric ceiling; the defensive check must
	// refuse the addition rather than wrap.
	if _, err := f.st.UpdateRecord(ctx, f.hash, func(r *store.Record) error {
		r.SumOfRatings = ^uint64(0) - 2
		return nil
	}); err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}
	rater, _ := keyFor(t, 2)
	if _, err := f.agg.SubmitRating(ctx, f.hash, rater, 5); !model.IsCode(err, model.ErrArithmeticOverflow) {
		t.Fatalf("expected ARITHMETIC_OVERFLOW, got %v", err)
	}
}

func TestAggregate_AverageRounding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.agg.Aggregate(ctx, f.hash)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if empty.Average != nil {
		t.Fatalf("average must be absent with no ratings")
	}

	for i, score := range []uint8{4, 4, 5} {
		rk, _ := keyFor(t, byte(20+i))
		if _, err := f.agg.SubmitRating(ctx, f.hash, rk, score); err != nil {
			t.Fatalf("rating: %v", err)
		}
	}
	got, err := f.agg.Aggregate(ctx, f.hash)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	// 13/3 = 4.333... -> 4.33 at 2 decimal places.
	if got.Average == nil || *got.Average != 4.33 {
		t.Fatalf("average: %+v", got.Average)
	}
}

// The live aggregate and the snapshot decoder must agree on an equivalent
// byte encoding of the same state.
func TestAggregate_MatchesSnapshotDecoder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, score := range []uint8{1, 3, 4, 5, 5, 2, 4} {
		rk, _ := keyFor(t, byte(30+i))
		if _, err := f.agg.SubmitRating(ctx, f.hash, rk, score); err != nil {
			t.Fatalf("rating: %v", err)
		}
	}

	live, err := f.agg.Aggregate(ctx, f.hash)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	rec, err := f.led.GetRecord(ctx, f.hash)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	buf, err := snapshot.EncodeRecord(rec)
	if err != nil {
		t.Fatalf("EncodeRecord: %v", err)
	}
	decoded, err := snapshot.DecodeAggregateCounters(buf)
	if err != nil {
		t.Fatalf("DecodeAggregateCounters: %v", err)
	}

	if decoded.TotalRatings != live.TotalRatings || decoded.SumOfRatings != live.SumOfRatings {
		t.Fatalf("counters disagree: live %+v snapshot %+v", live, decoded)
	}
	if avg := decoded.Average(); avg == nil || live.Average == nil || *avg != *live.Average {
		t.Fatalf("averages disagree: live %v snapshot %v", live.Average, avg)
	}
}

// End-to-end walk of the protocol: claim, rate, duplicate rejection,
// finalization, post-window rejection.
func TestEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r1, _ := keyFor(t, 40)
	r2, _ := keyFor(t, 41)

	txRef, err := f.agg.SubmitRating(ctx, f.hash, r1, 4)
	if err != nil {
		t.Fatalf("rate r1: %v", err)
	}
	if !strings.Contains(txRef, "#1") {
		t.Fatalf("unexpected txRef %q", txRef)
	}
	agg, err := f.agg.Aggregate(ctx, f.hash)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.TotalRatings != 1 || agg.SumOfRatings != 4 || *agg.Average != 4.00 {
		t.Fatalf("after r1: %+v", agg)
	}

	if _, err := f.agg.SubmitRating(ctx, f.hash, r2, 5); err != nil {
		t.Fatalf("rate r2: %v", err)
	}
	agg, err = f.agg.Aggregate(ctx, f.hash)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.TotalRatings != 2 || agg.SumOfRatings != 9 || *agg.Average != 4.50 {
		t.Fatalf("after r2: %+v", agg)
	}

	if _, err := f.agg.SubmitRating(ctx, f.hash, r1, 2); !model.IsCode(err, model.ErrAlreadyRated) {
		t.Fatalf("expected ALREADY_RATED, got %v", err)
	}
	agg, err = f.agg.Aggregate(ctx, f.hash)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.TotalRatings != 2 || agg.SumOfRatings != 9 {
		t.Fatalf("aggregate changed after rejection: %+v", agg)
	}

	f.clk.Add(ledger.DefaultRatingWindow)
	rec, err := f.led.FinalizeRating(ctx, f.hash)
	if err != nil {
		t.Fatalf("FinalizeRating: %v", err)
	}
	if !rec.IsFinalized {
		t.Fatalf("record not finalized")
	}

	r3, _ := keyFor(t, 42)
	if _, err := f.agg.SubmitRating(ctx, f.hash, r3, 5); !model.IsCode(err, model.ErrRatingPeriodClosed) {
		t.Fatalf("expected RATING_PERIOD_CLOSED, got %v", err)
	}
}
