// Package ledger orchestrates verification claims over the authoritative
// store.
//
// Per content identifier the ledger is a three-state machine:
//
//	Unclaimed -> Claimed (rating window open) -> Finalized
//
// The first valid attestation wins the claim; finalization freezes the rating
// state once the window has elapsed. The ledger is an explicitly passed
// handle, never ambient state: callers construct it once via Open and hand it
// to whoever needs it, which keeps a fake store substitutable in tests.
package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/LJ-Solana/solana-news-app-sub000/archive"
	"github.com/LJ-Solana/solana-news-app-sub000/attest"
	"github.com/LJ-Solana/solana-news-app-sub000/claimdoc"
	"github.com/LJ-Solana/solana-news-app-sub000/contentid"
	"github.com/LJ-Solana/solana-news-app-sub000/index"
	"github.com/LJ-Solana/solana-news-app-sub000/model"
	"github.com/LJ-Solana/solana-news-app-sub000/store"
)

const (
	// DefaultDailyLimit caps verifications per attester per UTC day. The
	// threshold is configuration, not protocol: deployments may lower it.
	DefaultDailyLimit = 100

	// DefaultRatingWindow is how long ratings stay open after a claim.
	DefaultRatingWindow = 72 * time.Hour
)

// Config tunes a Ledger. The zero value is usable: every field has a default.
type Config struct {
	DailyLimit   int
	RatingWindow time.Duration
	Namespace    string

	// Clock supplies "now" for day boundaries and window expiry; inject a
	// mock in tests.
	Clock clock.Clock

	// Archive, when set, receives the canonical claim document after a claim
	// commits. Best effort: archive failures do not undo the claim.
	Archive archive.Store

	// Mirror, when set, is refreshed with the slug's verification status
	// after state transitions. Read-only cache, never authoritative.
	Mirror *index.Mirror

	Log zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.DailyLimit <= 0 {
		c.DailyLimit = DefaultDailyLimit
	}
	if c.RatingWindow <= 0 {
		c.RatingWindow = DefaultRatingWindow
	}
	if c.Namespace == "" {
		c.Namespace = contentid.Namespace
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	return c
}

// Ledger is the handle for submitting and finalizing verification claims.
type Ledger struct {
	st  store.Store
	cfg Config

	closeOnce sync.Once
}

var (
	openMu     sync.Mutex
	openStores = map[store.Store]struct{}{}
)

// Open validates cfg and returns a ready ledger over st. A store backs at
// most one ledger at a time: a second Open on the same store fails until the
// first handle is closed.
func Open(st store.Store, cfg Config) (*Ledger, error) {
	if st == nil {
		return nil, errors.New("ledger: store is required")
	}
	openMu.Lock()
	defer openMu.Unlock()
	if _, ok := openStores[st]; ok {
		return nil, errors.New("ledger: store already has an open ledger")
	}
	openStores[st] = struct{}{}
	return &Ledger{st: st, cfg: cfg.withDefaults()}, nil
}

// Close releases the underlying store. Safe to call more than once.
func (l *Ledger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		openMu.Lock()
		delete(openStores, l.st)
		openMu.Unlock()
		err = l.st.Close()
	})
	return err
}

// SubmitRequest is one verification claim attempt.
type SubmitRequest struct {
	ContentHash contentid.Hash
	Slug        string
	AttesterKey string // wire-encoded public key
	Signature   string // base64 over the canonical message
	SourceData  string
	AuthorKey   string // optional content author, excluded from rating
}

// SubmitVerification performs the Unclaimed -> Claimed transition.
//
// An invalid signature never mutates any state. The uniqueness check, the
// daily-limit check and the claim write commit atomically in the store; the
// claim-document archive and the mirror refresh happen after commit and are
// best effort.
func (l *Ledger) SubmitVerification(ctx context.Context, req SubmitRequest) (store.Record, error) {
	if req.Slug == "" {
		return store.Record{}, model.NewError(model.ErrInvalidRequest, "slug is required")
	}

	key, err := attest.VerifyEncoded(req.AttesterKey, attest.Message(req.Slug, req.SourceData), req.Signature)
	if err != nil {
		return store.Record{}, err
	}

	addr, err := contentid.DeriveAddress(l.cfg.Namespace, req.ContentHash)
	if err != nil {
		return store.Record{}, model.NewError(model.ErrInvalidRequest, err.Error())
	}

	now := l.cfg.Clock.Now().UTC()
	rec := store.Record{
		ContentHash:   req.ContentHash,
		ContentHex:    req.ContentHash.Hex(),
		Slug:          req.Slug,
		Address:       addr,
		IsVerified:    true,
		VerifiedBy:    key.String(),
		Author:        req.AuthorKey,
		SourceData:    req.SourceData,
		Signature:     req.Signature,
		SubmittedAt:   now,
		RatingEndTime: now.Add(l.cfg.RatingWindow),
	}

	if err := l.st.SubmitClaim(ctx, rec, l.cfg.DailyLimit); err != nil {
		return store.Record{}, mapStoreErr(err)
	}

	rec = l.archiveClaim(ctx, rec)
	l.refreshMirror(rec)

	l.cfg.Log.Info().
		Str("slug", rec.Slug).
		Str("content_hash", rec.ContentHex).
		Str("attester", rec.VerifiedBy).
		Time("rating_end", rec.RatingEndTime).
		Msg("verification claim recorded")
	return rec, nil
}

// FinalizeRating performs the Claimed -> Finalized transition.
func (l *Ledger) FinalizeRating(ctx context.Context, hash contentid.Hash) (store.Record, error) {
	now := l.cfg.Clock.Now().UTC()
	rec, err := l.st.UpdateRecord(ctx, hash, func(r *store.Record) error {
		if r.IsFinalized {
			return model.NewError(model.ErrContentAlreadyFinalized, "rating already finalized")
		}
		if now.Before(r.RatingEndTime) {
			return model.Errorf(model.ErrRatingPeriodNotEnded,
				"rating period ends %s", r.RatingEndTime.Format(time.RFC3339))
		}
		r.IsFinalized = true
		return nil
	})
	if err != nil {
		return store.Record{}, mapStoreErr(err)
	}

	l.refreshMirror(rec)
	l.cfg.Log.Info().
		Str("content_hash", rec.ContentHex).
		Uint64("total_ratings", rec.TotalRatings).
		Uint64("sum_of_ratings", rec.SumOfRatings).
		Msg("rating period finalized")
	return rec, nil
}

// GetRecord returns the authoritative record for a content identifier.
func (l *Ledger) GetRecord(ctx context.Context, hash contentid.Hash) (store.Record, error) {
	rec, err := l.st.GetRecord(ctx, hash)
	if err != nil {
		return store.Record{}, mapStoreErr(err)
	}
	return rec, nil
}

// GetAttester returns an attester's verification counters. An attester the
// ledger has never seen has zero counters.
func (l *Ledger) GetAttester(ctx context.Context, publicKey string) (store.AttesterStats, error) {
	stats, err := l.st.GetAttester(ctx, publicKey)
	if errors.Is(err, store.ErrNotFound) {
		return store.AttesterStats{PublicKey: publicKey}, nil
	}
	if err != nil {
		return store.AttesterStats{}, mapStoreErr(err)
	}
	return stats, nil
}

// archiveClaim renders the canonical claim document, archives it and stamps
// the record with its CID. Failures leave the committed claim intact.
func (l *Ledger) archiveClaim(ctx context.Context, rec store.Record) store.Record {
	if l.cfg.Archive == nil {
		return rec
	}
	doc, docCID := claimdoc.RenderWithCID(claimdoc.Document{
		Slug:          rec.Slug,
		ContentHash:   rec.ContentHex,
		Address:       rec.Address,
		VerifierKey:   rec.VerifiedBy,
		SourceData:    rec.SourceData,
		SubmittedAt:   rec.SubmittedAt,
		RatingEndTime: rec.RatingEndTime,
	}, claimdoc.RenderOptions{})
	if _, err := l.cfg.Archive.Put(doc); err != nil {
		l.cfg.Log.Warn().Err(err).Str("slug", rec.Slug).Msg("claim document archive failed")
		return rec
	}
	updated, err := l.st.UpdateRecord(ctx, rec.ContentHash, func(r *store.Record) error {
		r.ClaimCID = docCID
		return nil
	})
	if err != nil {
		l.cfg.Log.Warn().Err(err).Str("slug", rec.Slug).Msg("claim CID stamp failed")
		return rec
	}
	return updated
}

func (l *Ledger) refreshMirror(rec store.Record) {
	if l.cfg.Mirror == nil {
		return
	}
	l.cfg.Mirror.Put(model.StatusResponse{
		Slug:       rec.Slug,
		Verified:   rec.IsVerified,
		VerifiedBy: rec.VerifiedBy,
		Signature:  rec.Signature,
		OnChainRef: rec.Address,
	})
}

// mapStoreErr translates store sentinels into the stable taxonomy. Coded
// errors pass through untouched; anything else is a dependency fault.
func mapStoreErr(err error) error {
	var ce *model.CodedError
	if errors.As(err, &ce) {
		return ce
	}
	switch {
	case errors.Is(err, store.ErrExists):
		return model.NewError(model.ErrContentAlreadySubmitted, "content has already been verified")
	case errors.Is(err, store.ErrDailyLimit):
		return model.NewError(model.ErrDailyLimitReached, "attester reached the daily verification limit")
	case errors.Is(err, store.ErrNotFound):
		return model.NewError(model.ErrContentNotVerified, "content has not been verified")
	default:
		return model.NewError(model.ErrDependencyUnavailable, err.Error())
	}
}
