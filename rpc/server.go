package rpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/LJ-Solana/solana-news-app-sub000/contentid"
	"github.com/LJ-Solana/solana-news-app-sub000/index"
	"github.com/LJ-Solana/solana-news-app-sub000/ledger"
	"github.com/LJ-Solana/solana-news-app-sub000/model"
	"github.com/LJ-Solana/solana-news-app-sub000/rating"
)

// Server exposes the ledger and the rating aggregator over gRPC.
type Server struct {
	UnimplementedLedgerServer

	led    *ledger.Ledger
	agg    *rating.Aggregator
	mirror *index.Mirror
	log    zerolog.Logger
}

// NewServer wires a ledger, an aggregator and an optional status mirror into
// one service implementation.
func NewServer(led *ledger.Ledger, agg *rating.Aggregator, mirror *index.Mirror, log zerolog.Logger) *Server {
	return &Server{led: led, agg: agg, mirror: mirror, log: log}
}

func (s *Server) SubmitVerification(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req model.SubmitVerificationRequest
	if err := json.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, statusFromError(model.NewError(model.ErrInvalidRequest, "malformed request body"))
	}
	hash, err := contentid.ParseHex(req.ContentHash)
	if err != nil {
		return nil, statusFromError(model.NewError(model.ErrInvalidRequest, "malformed content hash"))
	}

	rec, err := s.led.SubmitVerification(ctx, ledger.SubmitRequest{
		ContentHash: hash,
		Slug:        req.Slug,
		AttesterKey: req.AttesterKey,
		Signature:   req.Signature,
		SourceData:  req.SourceData,
		AuthorKey:   req.AuthorKey,
	})
	if err != nil {
		s.log.Debug().Err(err).Str("slug", req.Slug).Msg("verification rejected")
		return nil, statusFromError(err)
	}
	return marshal(model.SubmitVerificationResponse{
		Success:       true,
		ContentHash:   rec.ContentHex,
		Address:       rec.Address,
		ClaimCID:      rec.ClaimCID,
		SubmittedAt:   rec.SubmittedAt,
		RatingEndTime: rec.RatingEndTime,
	})
}

func (s *Server) SubmitRating(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req model.SubmitRatingRequest
	if err := json.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, statusFromError(model.NewError(model.ErrInvalidRequest, "malformed request body"))
	}
	hash, err := contentid.ParseHex(req.ContentHash)
	if err != nil {
		return nil, statusFromError(model.NewError(model.ErrInvalidRequest, "malformed content hash"))
	}

	txRef, err := s.agg.SubmitRating(ctx, hash, req.RaterKey, req.Rating)
	if err != nil {
		s.log.Debug().Err(err).Str("content_hash", req.ContentHash).Msg("rating rejected")
		return nil, statusFromError(err)
	}
	return marshal(model.SubmitRatingResponse{Success: true, TxRef: txRef})
}

func (s *Server) GetAggregate(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	hash, err := contentid.ParseHex(in.GetValue())
	if err != nil {
		return nil, statusFromError(model.NewError(model.ErrInvalidRequest, "malformed content hash"))
	}
	resp, err := s.agg.Aggregate(ctx, hash)
	if err != nil {
		return nil, statusFromError(err)
	}
	return marshal(resp)
}

func (s *Server) GetStatus(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	slug := in.GetValue()
	if slug == "" {
		return nil, statusFromError(model.NewError(model.ErrInvalidRequest, "slug is required"))
	}
	if s.mirror != nil {
		if st, ok := s.mirror.Get(slug); ok {
			return marshal(st)
		}
	}
	return nil, statusFromError(model.Errorf(model.ErrContentNotVerified, "no verified content for slug %q", slug))
}

func (s *Server) FinalizeRating(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	hash, err := contentid.ParseHex(in.GetValue())
	if err != nil {
		return nil, statusFromError(model.NewError(model.ErrInvalidRequest, "malformed content hash"))
	}
	rec, err := s.led.FinalizeRating(ctx, hash)
	if err != nil {
		return nil, statusFromError(err)
	}
	return marshal(model.FinalizeResponse{
		Success:      true,
		ContentHash:  rec.ContentHex,
		TotalRatings: rec.TotalRatings,
		SumOfRatings: rec.SumOfRatings,
	})
}

func marshal(v any) (*wrapperspb.BytesValue, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, statusFromError(model.NewError(model.ErrInternal, err.Error()))
	}
	return wrapperspb.Bytes(body), nil
}

// statusFromError converts a taxonomy error into a gRPC status. The stable
// code travels as the message prefix ("CODE: detail") so clients can recover
// the exact *model.CodedError on their side.
func statusFromError(err error) error {
	code := model.CodeOf(err)
	msg := err.Error()
	var ce *model.CodedError
	if !errors.As(err, &ce) {
		msg = string(model.ErrInternal) + ": " + msg
	}
	return status.Error(grpcCode(code), msg)
}

func grpcCode(code model.ErrorCode) codes.Code {
	switch code {
	case model.ErrInvalidRequest, model.ErrInvalidSignature, model.ErrInvalidRating, model.ErrMalformedAccountData:
		return codes.InvalidArgument
	case model.ErrContentAlreadySubmitted, model.ErrAlreadyRated:
		return codes.AlreadyExists
	case model.ErrDailyLimitReached:
		return codes.ResourceExhausted
	case model.ErrContentNotVerified:
		return codes.NotFound
	case model.ErrRatingPeriodClosed, model.ErrRatingPeriodNotEnded, model.ErrContentAlreadyFinalized, model.ErrCannotRateOwnContent:
		return codes.FailedPrecondition
	case model.ErrArithmeticOverflow:
		return codes.OutOfRange
	case model.ErrDependencyUnavailable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}
