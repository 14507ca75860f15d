package rpc_test

import (
	"context"
	"crypto/ed25519"
	"net"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/LJ-Solana/solana-news-app-sub000/attest"
	"github.com/LJ-Solana/solana-news-app-sub000/contentid"
	"github.com/LJ-Solana/solana-news-app-sub000/index"
	"github.com/LJ-Solana/solana-news-app-sub000/ledger"
	"github.com/LJ-Solana/solana-news-app-sub000/model"
	"github.com/LJ-Solana/solana-news-app-sub000/rating"
	"github.com/LJ-Solana/solana-news-app-sub000/rpc"
	"github.com/LJ-Solana/solana-news-app-sub000/store"
)

var testEpoch = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fixture struct {
	client *rpc.Client
	clk    *clock.Mock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := store.NewMemory()
	clk := clock.NewMock()
	clk.Set(testEpoch)
	mirror := index.NewMirror(time.Minute)

	led, err := ledger.Open(st, ledger.Config{Clock: clk, Mirror: mirror})
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	agg := rating.NewAggregator(st, clk)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	rpc.RegisterLedgerServer(srv, rpc.NewServer(led, agg, mirror, zerolog.Nop()))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &fixture{client: rpc.NewClient(conn), clk: clk}
}

func keyFor(t *testing.T, seedByte byte) (string, ed25519.PrivateKey) {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = seedByte
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return attest.EncodeEd25519(priv.Public().(ed25519.PublicKey)), priv
}

func submitRequest(t *testing.T, title, slug, source string, seedByte byte) model.SubmitVerificationRequest {
	t.Helper()
	key, priv := keyFor(t, seedByte)
	return model.SubmitVerificationRequest{
		ContentHash: contentid.HashContent(title, "description of "+title).Hex(),
		Slug:        slug,
		AttesterKey: key,
		Signature:   attest.SignEd25519(attest.Message(slug, source), priv),
		SourceData:  source,
	}
}

func TestRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := submitRequest(t, "wire story", "wire-story", "https://example.com/evidence", 1)

	sub, err := f.client.SubmitVerification(ctx, req)
	if err != nil {
		t.Fatalf("SubmitVerification: %v", err)
	}
	if !sub.Success || sub.Address == "" || sub.ContentHash != req.ContentHash {
		t.Fatalf("unexpected response: %+v", sub)
	}
	if !sub.RatingEndTime.Equal(testEpoch.Add(ledger.DefaultRatingWindow)) {
		t.Fatalf("rating window: %v", sub.RatingEndTime)
	}

	rater, _ := keyFor(t, 2)
	rated, err := f.client.SubmitRating(ctx, model.SubmitRatingRequest{
		ContentHash: req.ContentHash,
		RaterKey:    rater,
		Rating:      4,
	})
	if err != nil {
		t.Fatalf("SubmitRating: %v", err)
	}
	if !rated.Success || rated.TxRef == "" {
		t.Fatalf("unexpected response: %+v", rated)
	}

	agg, err := f.client.GetAggregate(ctx, req.ContentHash)
	if err != nil {
		t.Fatalf("GetAggregate: %v", err)
	}
	if agg.TotalRatings != 1 || agg.SumOfRatings != 4 || agg.Average == nil || *agg.Average != 4.00 {
		t.Fatalf("aggregate: %+v", agg)
	}

	status, err := f.client.GetStatus(ctx, "wire-story")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !status.Verified || status.OnChainRef != sub.Address {
		t.Fatalf("status: %+v", status)
	}

	// Finalize once the window elapses.
	if _, err := f.client.FinalizeRating(ctx, req.ContentHash); !model.IsCode(err, model.ErrRatingPeriodNotEnded) {
		t.Fatalf("expected RATING_PERIOD_NOT_ENDED, got %v", err)
	}
	f.clk.Add(ledger.DefaultRatingWindow)
	fin, err := f.client.FinalizeRating(ctx, req.ContentHash)
	if err != nil {
		t.Fatalf("FinalizeRating: %v", err)
	}
	if !fin.Success || fin.TotalRatings != 1 || fin.SumOfRatings != 4 {
		t.Fatalf("finalize: %+v", fin)
	}
}

// Taxonomy codes survive the wire: the client gets the same *model.CodedError
// an in-process caller would.
func TestErrorCodesSurviveTransport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := submitRequest(t, "wire story", "wire-story", "evidence", 1)
	otherKey, _ := keyFor(t, 9)
	bad := req
	bad.AttesterKey = otherKey
	if _, err := f.client.SubmitVerification(ctx, bad); !model.IsCode(err, model.ErrInvalidSignature) {
		t.Fatalf("expected INVALID_SIGNATURE, got %v", err)
	}

	if _, err := f.client.SubmitVerification(ctx, req); err != nil {
		t.Fatalf("SubmitVerification: %v", err)
	}
	dup := submitRequest(t, "wire story", "wire-story", "evidence", 2)
	if _, err := f.client.SubmitVerification(ctx, dup); !model.IsCode(err, model.ErrContentAlreadySubmitted) {
		t.Fatalf("expected CONTENT_ALREADY_SUBMITTED, got %v", err)
	}

	if _, err := f.client.SubmitRating(ctx, model.SubmitRatingRequest{
		ContentHash: req.ContentHash,
		RaterKey:    req.AttesterKey,
		Rating:      5,
	}); !model.IsCode(err, model.ErrCannotRateOwnContent) {
		t.Fatalf("expected CANNOT_RATE_OWN_CONTENT, got %v", err)
	}

	// The author named in the request is excluded too, not just the verifier.
	authored := submitRequest(t, "authored story", "authored-story", "evidence", 4)
	authorKey, _ := keyFor(t, 5)
	authored.AuthorKey = authorKey
	if _, err := f.client.SubmitVerification(ctx, authored); err != nil {
		t.Fatalf("SubmitVerification: %v", err)
	}
	if _, err := f.client.SubmitRating(ctx, model.SubmitRatingRequest{
		ContentHash: authored.ContentHash,
		RaterKey:    authorKey,
		Rating:      5,
	}); !model.IsCode(err, model.ErrCannotRateOwnContent) {
		t.Fatalf("expected CANNOT_RATE_OWN_CONTENT for author, got %v", err)
	}

	rater, _ := keyFor(t, 3)
	if _, err := f.client.SubmitRating(ctx, model.SubmitRatingRequest{
		ContentHash: req.ContentHash,
		RaterKey:    rater,
		Rating:      6,
	}); !model.IsCode(err, model.ErrInvalidRating) {
		t.Fatalf("expected INVALID_RATING, got %v", err)
	}

	if _, err := f.client.GetAggregate(ctx, contentid.HashContent("missing", "missing").Hex()); !model.IsCode(err, model.ErrContentNotVerified) {
		t.Fatalf("expected CONTENT_NOT_VERIFIED, got %v", err)
	}
	if _, err := f.client.GetStatus(ctx, "no-such-slug"); !model.IsCode(err, model.ErrContentNotVerified) {
		t.Fatalf("expected CONTENT_NOT_VERIFIED, got %v", err)
	}
	if _, err := f.client.GetAggregate(ctx, "zzzz"); !model.IsCode(err, model.ErrInvalidRequest) {
		t.Fatalf("expected INVALID_REQUEST, got %v", err)
	}
}
