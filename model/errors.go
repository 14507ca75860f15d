package model

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable category for programmatic error handling.
//
// These codes are intended to remain stable across versions. Callers should
// branch on Code rather than matching error strings.
type ErrorCode string

const (
	ErrInvalidRequest          ErrorCode = "INVALID_REQUEST"
	ErrInvalidSignature        ErrorCode = "INVALID_SIGNATURE"
	ErrContentAlreadySubmitted ErrorCode = "CONTENT_ALREADY_SUBMITTED"
	ErrDailyLimitReached       ErrorCode = "DAILY_LIMIT_REACHED"
	ErrContentNotVerified      ErrorCode = "CONTENT_NOT_VERIFIED"
	ErrRatingPeriodClosed      ErrorCode = "RATING_PERIOD_CLOSED"
	ErrRatingPeriodNotEnded    ErrorCode = "RATING_PERIOD_NOT_ENDED"
	ErrContentAlreadyFinalized ErrorCode = "CONTENT_ALREADY_FINALIZED"
	ErrInvalidRating           ErrorCode = "INVALID_RATING"
	ErrAlreadyRated            ErrorCode = "ALREADY_RATED"
	ErrCannotRateOwnContent    ErrorCode = "CANNOT_RATE_OWN_CONTENT"
	ErrArithmeticOverflow      ErrorCode = "ARITHMETIC_OVERFLOW"
	ErrMalformedAccountData    ErrorCode = "MALFORMED_ACCOUNT_DATA"
	ErrDependencyUnavailable   ErrorCode = "DEPENDENCY_UNAVAILABLE"
	ErrInternal                ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human message.
//
// Message is intended for humans; do not match on it.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// Errorf is NewError with fmt.Sprintf formatting of the message.
func Errorf(code ErrorCode, format string, args ...any) *CodedError {
	return &CodedError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the stable code for a coded error, or ErrInternal when err
// carries no code.
func CodeOf(err error) ErrorCode {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrInternal
}

// IsCode reports whether err is (or wraps) a *CodedError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var ce *CodedError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == code
}
