// Package snapshot decodes raw fixed-layout ledger account bytes so rating
// aggregates can be recomputed independently of the live aggregator.
//
// Layout v1 is a versioned wire contract; changing any offset is a breaking
// format change. All integers are little-endian. Byte offsets:
//
//	  0  discriminator      [8]byte   sha256("account:VerifiedContent")[:8]
//	  8  contentHash        [32]byte
//	 40  verifier           [32]byte  ed25519 public key
//	 72  author             [32]byte  ed25519 public key (zero when unknown)
//	104  submittedAt        int64     unix seconds
//	112  isVerified         uint8
//	113  totalRatings       uint64
//	121  sumOfRatings       uint64
//	129  ratingEndTime      int64     unix seconds
//	137  isFinalized        uint8
//	138  ratings length     uint32    (optional tail)
//	142  ratings            41 bytes each: rater [32]byte, score uint8,
//	                        timestamp int64
//
// A buffer shorter than MinAccountSize cannot contain the rating counters and
// is malformed.
package snapshot

import (
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/mr-tron/base58"

	"github.com/LJ-Solana/solana-news-app-sub000/contentid"
	"github.com/LJ-Solana/solana-news-app-sub000/model"
	"github.com/LJ-Solana/solana-news-app-sub000/store"
)

const (
	offContentHash   = 8
	offVerifier      = 40
	offAuthor        = 72
	offSubmittedAt   = 104
	offIsVerified    = 112
	offTotalRatings  = 113
	offSumOfRatings  = 121
	offRatingEndTime = 129
	offIsFinalized   = 137
	offRatingsLen    = 138

	// MinAccountSize is the smallest buffer holding all fixed fields.
	MinAccountSize = 138

	ratingEntrySize = 41
)

// Discriminator tags layout v1 account buffers.
var Discriminator = func() [8]byte {
	sum := sha256.Sum256([]byte("account:VerifiedContent"))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}()

// AggregateCounters are the two rating counters read from a single account.
type AggregateCounters struct {
	TotalRatings uint64 `json:"totalRatings"`
	SumOfRatings uint64 `json:"sumOfRatings"`
}

// DecodeAggregateCounters reads the rating counters from one account buffer.
// It returns MALFORMED_ACCOUNT_DATA for undersized or mistagged input and
// never inspects bytes past the fixed region.
func DecodeAggregateCounters(buf []byte) (AggregateCounters, error) {
	if len(buf) < MinAccountSize {
		return AggregateCounters{}, model.Errorf(model.ErrMalformedAccountData,
			"account buffer too short: %d < %d", len(buf), MinAccountSize)
	}
	if [8]byte(buf[:8]) != Discriminator {
		return AggregateCounters{}, model.NewError(model.ErrMalformedAccountData,
			"unknown account discriminator")
	}
	return AggregateCounters{
		TotalRatings: binary.LittleEndian.Uint64(buf[offTotalRatings:]),
		SumOfRatings: binary.LittleEndian.Uint64(buf[offSumOfRatings:]),
	}, nil
}

// Aggregate is a global rating aggregate recomputed from raw accounts.
type Aggregate struct {
	Count         int     `json:"count"`
	TotalRatings  uint64  `json:"totalRatings"`
	SumOfRatings  uint64  `json:"sumOfRatings"`
	AverageRating float64 `json:"averageRating"`
}

// AggregateAccounts sums rating counters across account buffers.
//
// Malformed buffers are skipped, never fatal: a corrupt account must not
// abort an audit batch. An empty aggregate has average 0.
func AggregateAccounts(bufs [][]byte) Aggregate {
	var agg Aggregate
	for _, buf := range bufs {
		c, err := DecodeAggregateCounters(buf)
		if err != nil {
			continue
		}
		agg.Count++
		agg.TotalRatings += c.TotalRatings
		agg.SumOfRatings += c.SumOfRatings
	}
	if agg.TotalRatings > 0 {
		agg.AverageRating = model.Round2(float64(agg.SumOfRatings) / float64(agg.TotalRatings))
	}
	return agg
}

// Average returns the per-account display average, or nil when unrated.
// The rounding rule matches the live aggregator exactly.
func (c AggregateCounters) Average() *float64 {
	if c.TotalRatings == 0 {
		return nil
	}
	avg := model.Round2(float64(c.SumOfRatings) / float64(c.TotalRatings))
	return &avg
}

// EncodeRecord serializes a ledger record into layout v1 bytes, including the
// ratings tail. Verifier and author keys must be base58 ed25519 keys (author
// may be empty).
func EncodeRecord(rec store.Record) ([]byte, error) {
	out := make([]byte, offRatingsLen+4+ratingEntrySize*len(rec.Ratings))
	copy(out[:8], Discriminator[:])
	copy(out[offContentHash:], rec.ContentHash[:])

	if err := putKey(out[offVerifier:offVerifier+32], rec.VerifiedBy); err != nil {
		return nil, err
	}
	if rec.Author != "" {
		if err := putKey(out[offAuthor:offAuthor+32], rec.Author); err != nil {
			return nil, err
		}
	}

	binary.LittleEndian.PutUint64(out[offSubmittedAt:], uint64(rec.SubmittedAt.Unix()))
	if rec.IsVerified {
		out[offIsVerified] = 1
	}
	binary.LittleEndian.PutUint64(out[offTotalRatings:], rec.TotalRatings)
	binary.LittleEndian.PutUint64(out[offSumOfRatings:], rec.SumOfRatings)
	binary.LittleEndian.PutUint64(out[offRatingEndTime:], uint64(rec.RatingEndTime.Unix()))
	if rec.IsFinalized {
		out[offIsFinalized] = 1
	}

	binary.LittleEndian.PutUint32(out[offRatingsLen:], uint32(len(rec.Ratings)))
	for i, r := range rec.Ratings {
		entry := out[offRatingsLen+4+i*ratingEntrySize:]
		if err := putKey(entry[:32], r.Rater); err != nil {
			return nil, err
		}
		entry[32] = r.Score
		binary.LittleEndian.PutUint64(entry[33:], uint64(r.Timestamp.Unix()))
	}
	return out, nil
}

// Record is the fully decoded fixed region plus the ratings tail.
type Record struct {
	ContentHash   contentid.Hash
	Verifier      string
	Author        string
	SubmittedAt   time.Time
	IsVerified    bool
	IsFinalized   bool
	RatingEndTime time.Time
	Counters      AggregateCounters
	Ratings       []store.Rating
}

// DecodeRecord decodes a full layout v1 account, ratings tail included.
// A truncated or overlong tail is MALFORMED_ACCOUNT_DATA.
func DecodeRecord(buf []byte) (*Record, error) {
	counters, err := DecodeAggregateCounters(buf)
	if err != nil {
		return nil, err
	}
	rec := &Record{
		Verifier:      base58.Encode(buf[offVerifier : offVerifier+32]),
		SubmittedAt:   time.Unix(int64(binary.LittleEndian.Uint64(buf[offSubmittedAt:])), 0).UTC(),
		IsVerified:    buf[offIsVerified] == 1,
		IsFinalized:   buf[offIsFinalized] == 1,
		RatingEndTime: time.Unix(int64(binary.LittleEndian.Uint64(buf[offRatingEndTime:])), 0).UTC(),
		Counters:      counters,
	}
	copy(rec.ContentHash[:], buf[offContentHash:offContentHash+32])
	if !allZero(buf[offAuthor : offAuthor+32]) {
		rec.Author = base58.Encode(buf[offAuthor : offAuthor+32])
	}

	if len(buf) == MinAccountSize {
		return rec, nil
	}
	if len(buf) < offRatingsLen+4 {
		return nil, model.NewError(model.ErrMalformedAccountData, "truncated ratings length")
	}
	n := binary.LittleEndian.Uint32(buf[offRatingsLen:])
	want := offRatingsLen + 4 + int(n)*ratingEntrySize
	if len(buf) != want {
		return nil, model.Errorf(model.ErrMalformedAccountData,
			"ratings tail size mismatch: have %d want %d", len(buf), want)
	}
	for i := 0; i < int(n); i++ {
		entry := buf[offRatingsLen+4+i*ratingEntrySize:]
		rec.Ratings = append(rec.Ratings, store.Rating{
			Rater:     base58.Encode(entry[:32]),
			Score:     entry[32],
			Timestamp: time.Unix(int64(binary.LittleEndian.Uint64(entry[33:41])), 0).UTC(),
		})
	}
	return rec, nil
}

func putKey(dst []byte, key string) error {
	raw, err := base58.Decode(key)
	if err != nil || len(raw) != 32 {
		return model.Errorf(model.ErrMalformedAccountData, "key %q is not a 32-byte base58 key", key)
	}
	copy(dst, raw)
	return nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
