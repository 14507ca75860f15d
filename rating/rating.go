// Package rating accepts bounded ratings against verified content and serves
// the live aggregate.
//
// One rating per rater per content item; the content's own verifier and
// author are excluded. The duplicate check and the append run inside a single
// atomic store update, so concurrent ratings on the same (content, rater)
// pair yield exactly one winner.
package rating

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/benbjohnson/clock"

	"github.com/LJ-Solana/solana-news-app-sub000/attest"
	"github.com/LJ-Solana/solana-news-app-sub000/contentid"
	"github.com/LJ-Solana/solana-news-app-sub000/model"
	"github.com/LJ-Solana/solana-news-app-sub000/store"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Aggregator struct {
	st  store.Store
	clk clock.Clock
}

// NewAggregator builds an aggregator over the authoritative store. A nil clk
// falls back to the wall clock.
func NewAggregator(st store.Store, clk clock.Clock) *Aggregator {
	if clk == nil {
		clk = clock.New()
	}
	return &Aggregator{st: st, clk: clk}
}

// SubmitRating records one rater's score for a content item and returns a
// transaction reference ("<address>#<sequence>").
func (a *Aggregator) SubmitRating(ctx context.Context, hash contentid.Hash, raterKey string, score uint8) (string, error) {
	if score < MinRating || score > MaxRating {
		return "", model.Errorf(model.ErrInvalidRating,
			"rating %d out of range [%d, %d]", score, MinRating, MaxRating)
	}
	rater, err := attest.ParsePublicKey(raterKey)
	if err != nil {
		return "", model.NewError(model.ErrInvalidRequest, "invalid rater key")
	}

	now := a.clk.Now().UTC()
	var txRef string
	_, err = a.st.UpdateRecord(ctx, hash, func(r *store.Record) error {
		if !r.IsVerified {
			return model.NewError(model.ErrContentNotVerified, "content has not been verified")
		}
		if r.IsFinalized || !now.Before(r.RatingEndTime) {
			return model.NewError(model.ErrRatingPeriodClosed, "rating period has closed")
		}
		if rater.String() == r.VerifiedBy || (r.Author != "" && rater.String() == r.Author) {
			return model.NewError(model.ErrCannotRateOwnContent, "verifier and author may not rate their own content")
		}
		for _, existing := range r.Ratings {
			if existing.Rater == rater.String() {
				return model.NewError(model.ErrAlreadyRated, "rater has already rated this content")
			}
		}
		if r.TotalRatings == math.MaxUint64 || r.SumOfRatings > math.MaxUint64-uint64(score) {
			return model.NewError(model.ErrArithmeticOverflow, "rating counters would overflow")
		}
		r.Ratings = append(r.Ratings, store.Rating{Rater: rater.String(), Score: score, Timestamp: now})
		r.TotalRatings++
		r.SumOfRatings += uint64(score)
		txRef = fmt.Sprintf("%s#%d", r.Address, r.TotalRatings)
		return nil
	})
	if err != nil {
		return "", mapStoreErr(err)
	}
	return txRef, nil
}

// Aggregate returns the live rating aggregate for a content item. Average is
// nil until the first rating arrives.
func (a *Aggregator) Aggregate(ctx context.Context, hash contentid.Hash) (model.AggregateResponse, error) {
	rec, err := a.st.GetRecord(ctx, hash)
	if err != nil {
		return model.AggregateResponse{}, mapStoreErr(err)
	}
	resp := model.AggregateResponse{
		ContentHash:  rec.ContentHex,
		TotalRatings: rec.TotalRatings,
		SumOfRatings: rec.SumOfRatings,
	}
	if rec.TotalRatings > 0 {
		avg := model.Round2(float64(rec.SumOfRatings) / float64(rec.TotalRatings))
		resp.Average = &avg
	}
	return resp, nil
}

func mapStoreErr(err error) error {
	var ce *model.CodedError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, store.ErrNotFound) {
		return model.NewError(model.ErrContentNotVerified, "content has not been verified")
	}
	return model.NewError(model.ErrDependencyUnavailable, err.Error())
}
