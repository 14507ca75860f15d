// Package store defines the authoritative persistence contract for
// verification claims and rating state.
//
// The store owns the system's one critical section: the check-then-write
// sequences for claim uniqueness and per-attester daily quotas execute inside
// a single atomic operation, so racing requests on the same key yield exactly
// one winner. Callers never hold application-level locks around store calls.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/LJ-Solana/solana-news-app-sub000/contentid"
)

var (
	ErrExists     = errors.New("store: record already exists")
	ErrNotFound   = errors.New("store: record not found")
	ErrDailyLimit = errors.New("store: daily verification limit reached")
	ErrClosed     = errors.New("store: closed")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Rating is one rater's score for a content item.
type Rating struct {
	Rater     string    `json:"rater"`
	Score     uint8     `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is the content-keyed ledger record. It is the single source of truth
// for a content item's verification claim and rating state; any mirrored copy
// is a read-only cache.
type Record struct {
	ContentHash   contentid.Hash `json:"-"`
	ContentHex    string         `json:"contentHash"`
	Slug          string         `json:"slug"`
	Address       string         `json:"address"`
	IsVerified    bool           `json:"isVerified"`
	VerifiedBy    string         `json:"verifiedBy"`
	Author        string         `json:"author,omitempty"`
	SourceData    string         `json:"sourceData"`
	Signature     string         `json:"signature"`
	ClaimCID      string         `json:"claimCID,omitempty"`
	SubmittedAt   time.Time      `json:"submittedAt"`
	RatingEndTime time.Time      `json:"ratingEndTime"`
	IsFinalized   bool           `json:"isFinalized"`
	TotalRatings  uint64         `json:"totalRatings"`
	SumOfRatings  uint64         `json:"sumOfRatings"`
	Ratings       []Rating       `json:"ratings"`
}

// Clone returns a deep copy so callers can never mutate stored state through
// a returned record.
func (r Record) Clone() Record {
	out := r
	out.Ratings = append([]Rating(nil), r.Ratings...)
	return out
}

// AttesterStats tracks one attester's lifetime and per-day verification
// counters. Day is the UTC calendar day the daily counter belongs to; the
// counter resets implicitly when Day changes.
type AttesterStats struct {
	PublicKey          string `json:"publicKey"`
	VerifiedCount      uint64 `json:"verifiedCount"`
	VerificationsToday uint64 `json:"verificationsToday"`
	Day                string `json:"day"`
}

// DayOf keys daily counters by UTC calendar day.
func DayOf(t time.Time) string { return t.UTC().Format("2006-01-02") }

// Store is the authoritative ledger store.
//
// Contract:
//   - SubmitClaim MUST atomically create the record (exclusive on its content
//     hash) and advance the attester's counters for the UTC day of
//     rec.SubmittedAt, enforcing dailyLimit. Two concurrent submissions for
//     the same content hash MUST NOT both succeed (ErrExists for the loser);
//     a submission over quota fails with ErrDailyLimit and leaves no record.
//   - UpdateRecord MUST apply fn as a single atomic read-modify-write; when fn
//     returns an error nothing is persisted and the error is returned as-is.
//   - GetRecord/GetAttester MUST return ErrNotFound for absent keys.
type Store interface {
	SubmitClaim(ctx context.Context, rec Record, dailyLimit int) error
	GetRecord(ctx context.Context, hash contentid.Hash) (Record, error)
	UpdateRecord(ctx context.Context, hash contentid.Hash, fn func(*Record) error) (Record, error)
	GetAttester(ctx context.Context, publicKey string) (AttesterStats, error)
	Close() error
}
