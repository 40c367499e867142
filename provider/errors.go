package provider

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a provider failure. Callers branch on the kind to
// decide between fixing configuration, retrying, or collecting user input.
type ErrorKind string

const (
	// KindUnknownProvider means the directory has no entry for the id.
	KindUnknownProvider ErrorKind = "unknown_provider"
	// KindUnavailable means the provider is listed in the directory but no
	// client implementation is registered for it.
	KindUnavailable ErrorKind = "implementation_unavailable"
	// KindInstantiation means client construction failed unexpectedly.
	KindInstantiation ErrorKind = "instantiation_error"
	// KindMissingCredentials means a required credential field is absent.
	KindMissingCredentials ErrorKind = "missing_credentials"
	// KindMissingField means a request payload failed local validation.
	KindMissingField ErrorKind = "missing_field"
	// KindTransport means a network-level failure (DNS, timeout, reset).
	KindTransport ErrorKind = "transport_error"
	// KindAPI means the provider answered with an HTTP status outside the
	// success range.
	KindAPI ErrorKind = "api_error"
	// KindNeedCode means the provider demands a verification code before
	// login can complete. Not terminal; collect the code and retry.
	KindNeedCode ErrorKind = "need_code"
	// KindNoTradeToken means a trading call was attempted without the trade
	// token elevation.
	KindNoTradeToken ErrorKind = "no_trade_token"
	// KindNoAuth means an authenticated call was attempted on an anonymous
	// session.
	KindNoAuth ErrorKind = "no_auth"
	// KindInvalidResponse means the response body did not match the expected
	// schema.
	KindInvalidResponse ErrorKind = "invalid_response"
	// KindOrderFailed, KindCancelFailed and KindModifyFailed carry the
	// provider's raw rejection payload for a specific trading operation.
	KindOrderFailed  ErrorKind = "order_failed"
	KindCancelFailed ErrorKind = "cancel_failed"
	KindModifyFailed ErrorKind = "modify_failed"
)

// Error is the structured failure value returned on every expected failure
// path. The core never swallows a failure into an empty success value.
type Error struct {
	Kind    ErrorKind
	Message string
	// Status is the HTTP status code for api_error kinds, zero otherwise.
	Status int
	// Raw holds the provider's raw response payload for diagnostics.
	Raw []byte
	// Data carries machine-readable detail such as the need_code flag.
	Data map[string]interface{}
	// Cause is the underlying error when one exists.
	Cause error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether retrying the same call with backoff can succeed.
// Transport failures are retryable; api errors only for 429 and 5xx. All
// configuration and precondition kinds are not retryable.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransport:
		return true
	case KindAPI:
		return e.Status == 429 || e.Status >= 500
	default:
		return false
	}
}

// NewError builds an Error with the given kind and message.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsError unwraps err into a *Error when possible.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// KindOf returns the ErrorKind of err, or an empty kind for plain errors.
func KindOf(err error) ErrorKind {
	if pe, ok := AsError(err); ok {
		return pe.Kind
	}
	return ""
}
