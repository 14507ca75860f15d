package rpc

import (
	"context"
	"encoding/json"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/LJ-Solana/solana-news-app-sub000/model"
)

// Client is a typed wrapper over the raw gRPC client. Its methods speak the
// same request/response shapes as the in-process packages, and errors come
// back as *model.CodedError so callers branch the same way locally and
// remotely.
type Client struct {
	rc LedgerClient
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{rc: NewLedgerClient(cc)}
}

func (c *Client) SubmitVerification(ctx context.Context, req model.SubmitVerificationRequest) (model.SubmitVerificationResponse, error) {
	var resp model.SubmitVerificationResponse
	body, err := json.Marshal(req)
	if err != nil {
		return resp, model.NewError(model.ErrInvalidRequest, err.Error())
	}
	out, err := c.rc.SubmitVerification(ctx, wrapperspb.Bytes(body))
	if err != nil {
		return resp, codedFromRPC(err)
	}
	return resp, decodeBody(out, &resp)
}

func (c *Client) SubmitRating(ctx context.Context, req model.SubmitRatingRequest) (model.SubmitRatingResponse, error) {
	var resp model.SubmitRatingResponse
	body, err := json.Marshal(req)
	if err != nil {
		return resp, model.NewError(model.ErrInvalidRequest, err.Error())
	}
	out, err := c.rc.SubmitRating(ctx, wrapperspb.Bytes(body))
	if err != nil {
		return resp, codedFromRPC(err)
	}
	return resp, decodeBody(out, &resp)
}

// GetAggregate fetches the live rating aggregate for a hex content hash.
func (c *Client) GetAggregate(ctx context.Context, contentHash string) (model.AggregateResponse, error) {
	var resp model.AggregateResponse
	out, err := c.rc.GetAggregate(ctx, wrapperspb.String(contentHash))
	if err != nil {
		return resp, codedFromRPC(err)
	}
	return resp, decodeBody(out, &resp)
}

// GetStatus fetches the mirror's verification status for a slug.
func (c *Client) GetStatus(ctx context.Context, slug string) (model.StatusResponse, error) {
	var resp model.StatusResponse
	out, err := c.rc.GetStatus(ctx, wrapperspb.String(slug))
	if err != nil {
		return resp, codedFromRPC(err)
	}
	return resp, decodeBody(out, &resp)
}

// FinalizeRating freezes the rating state for a hex content hash once its
// window has elapsed.
func (c *Client) FinalizeRating(ctx context.Context, contentHash string) (model.FinalizeResponse, error) {
	var resp model.FinalizeResponse
	out, err := c.rc.FinalizeRating(ctx, wrapperspb.String(contentHash))
	if err != nil {
		return resp, codedFromRPC(err)
	}
	return resp, decodeBody(out, &resp)
}

func decodeBody(out *wrapperspb.BytesValue, v any) error {
	if err := json.Unmarshal(out.GetValue(), v); err != nil {
		return model.NewError(model.ErrInternal, "malformed response body")
	}
	return nil
}

// codedFromRPC reverses statusFromError: the server embeds the taxonomy code
// as the status message prefix.
func codedFromRPC(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return model.NewError(model.ErrDependencyUnavailable, err.Error())
	}
	code, msg, found := strings.Cut(st.Message(), ": ")
	if found && isKnownCode(model.ErrorCode(code)) {
		return model.NewError(model.ErrorCode(code), msg)
	}
	return model.NewError(model.ErrDependencyUnavailable, st.Message())
}

func isKnownCode(code model.ErrorCode) bool {
	switch code {
	case model.ErrInvalidRequest, model.ErrInvalidSignature, model.ErrContentAlreadySubmitted,
		model.ErrDailyLimitReached, model.ErrContentNotVerified, model.ErrRatingPeriodClosed,
		model.ErrRatingPeriodNotEnded, model.ErrContentAlreadyFinalized, model.ErrInvalidRating,
		model.ErrAlreadyRated, model.ErrCannotRateOwnContent, model.ErrArithmeticOverflow,
		model.ErrMalformedAccountData, model.ErrDependencyUnavailable, model.ErrInternal:
		return true
	}
	return false
}
