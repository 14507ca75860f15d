package model

import (
	"math"
	"time"
)

// SubmitVerificationRequest carries a verification claim for a content item.
//
// ContentHash is the hex digest of the item's canonical fields. AttesterKey is
// a base58-encoded ed25519 public key (or an "alg:" prefixed key for other
// schemes). Signature is base64 over the canonical verification message.
// AuthorKey optionally names the content's author, who is then excluded from
// rating it.
//
// JSON note: this shape is the wire body of the SubmitVerification RPC.
type SubmitVerificationRequest struct {
	ContentHash string `json:"contentHash"`
	Slug        string `json:"slug"`
	AttesterKey string `json:"attesterKey"`
	Signature   string `json:"signature"`
	SourceData  string `json:"sourceData"`
	AuthorKey   string `json:"authorKey,omitempty"`
}

type SubmitVerificationResponse struct {
	Success       bool      `json:"success"`
	ContentHash   string    `json:"contentHash"`
	Address       string    `json:"address"`
	ClaimCID      string    `json:"claimCID,omitempty"`
	SubmittedAt   time.Time `json:"submittedAt"`
	RatingEndTime time.Time `json:"ratingEndTime"`
}

type SubmitRatingRequest struct {
	ContentHash string `json:"contentHash"`
	RaterKey    string `json:"raterKey"`
	Rating      uint8  `json:"rating"`
}

type SubmitRatingResponse struct {
	Success bool   `json:"success"`
	TxRef   string `json:"txRef"`
}

// FinalizeResponse reports the frozen counters after a rating period closes.
type FinalizeResponse struct {
	Success      bool   `json:"success"`
	ContentHash  string `json:"contentHash"`
	TotalRatings uint64 `json:"totalRatings"`
	SumOfRatings uint64 `json:"sumOfRatings"`
}

// AggregateResponse is the live rating aggregate for one content item.
// Average is omitted when no ratings exist.
type AggregateResponse struct {
	ContentHash  string   `json:"contentHash"`
	TotalRatings uint64   `json:"totalRatings"`
	SumOfRatings uint64   `json:"sumOfRatings"`
	Average      *float64 `json:"average,omitempty"`
}

// StatusResponse is the index/mirror view of a content item keyed by slug.
// It is a read-only cache and may be stale relative to the ledger.
type StatusResponse struct {
	Slug       string `json:"slug"`
	Verified   bool   `json:"verified"`
	VerifiedBy string `json:"verifiedBy,omitempty"`
	Signature  string `json:"signature,omitempty"`
	OnChainRef string `json:"onChainRef,omitempty"`
}

// FeedItem is one content item as published by the external feed source.
type FeedItem struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      string    `json:"source"`
	ImageURL    string    `json:"imageUrl"`
}

// Round2 rounds a display average to 2 decimal places.
//
// Every consumer of an average (live aggregator, snapshot decoder, RPC
// surface) MUST round through this function so independently computed values
// agree exactly.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
