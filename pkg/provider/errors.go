package provider

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for registry operations.
var (
	// ErrUnknownProvider is returned when no provider is registered under an ID.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrDuplicateProvider is returned when an ID is registered twice.
	ErrDuplicateProvider = errors.New("provider already registered")
)

// ErrorKind is the closed taxonomy of completion failures.
type ErrorKind int

const (
	KindMissingCredential ErrorKind = iota + 1
	KindInvalidEndpoint
	KindInvalidResponse
	KindEncode
	KindDecode
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindRateLimited
	KindServer
	KindUnknown
	KindTransport
	KindStreamProtocol
)

var kindNames = map[ErrorKind]string{
	KindMissingCredential: "missing_credential",
	KindInvalidEndpoint:   "invalid_endpoint",
	KindInvalidResponse:   "invalid_response",
	KindEncode:            "encode_failure",
	KindDecode:            "decode_failure",
	KindBadRequest:        "bad_request",
	KindUnauthorized:      "unauthorized",
	KindForbidden:         "forbidden",
	KindRateLimited:       "rate_limited",
	KindServer:            "server_error",
	KindUnknown:           "unknown",
	KindTransport:         "transport_failure",
	KindStreamProtocol:    "stream_protocol_error",
}

// String returns the snake_case name of the kind, used in logs and metric labels.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the failure type returned by every provider operation. Each kind
// carries only the fields it needs: Status for server/unknown, Message for
// bad-request/forbidden/server/unknown/stream-protocol, RetryAfter for
// rate-limited, Err for transport/encode/decode causes.
type Error struct {
	Kind ErrorKind

	// Provider is the ID of the provider that produced the error, if known.
	Provider string

	// Status is the HTTP status code for classified responses.
	Status int

	// Message is the server or validation message, if any.
	Message string

	// Param names the offending request field for local validation failures.
	Param string

	// RetryAfter is the backoff hint of a rate-limited response.
	RetryAfter *time.Duration

	// Err is the underlying cause.
	Err error
}

// Error returns a message suitable for showing to the user.
func (e *Error) Error() string {
	msg := e.describe()
	if e.Provider != "" {
		return e.Provider + ": " + msg
	}
	return msg
}

func (e *Error) describe() string {
	switch e.Kind {
	case KindMissingCredential:
		return "no API key configured"
	case KindInvalidEndpoint:
		return withDetail("invalid endpoint URL", e.Message)
	case KindInvalidResponse:
		return withDetail("invalid response from server", e.Message)
	case KindEncode:
		return withCause("failed to encode request", e.Err)
	case KindDecode:
		return withCause("failed to decode response", e.Err)
	case KindBadRequest:
		if e.Param != "" {
			return fmt.Sprintf("%s (param: %s)", e.Message, e.Param)
		}
		return e.Message
	case KindUnauthorized:
		return "invalid API key or unauthorized access"
	case KindForbidden:
		return withDetail("access forbidden", e.Message)
	case KindRateLimited:
		if e.RetryAfter != nil {
			return fmt.Sprintf("rate limit exceeded, retry after %s", *e.RetryAfter)
		}
		return "rate limit exceeded"
	case KindServer:
		return withDetail(fmt.Sprintf("server error (HTTP %d)", e.Status), e.Message)
	case KindUnknown:
		return withDetail(fmt.Sprintf("unexpected response (HTTP %d)", e.Status), e.Message)
	case KindTransport:
		return withCause("network error", e.Err)
	case KindStreamProtocol:
		return withDetail("stream protocol error", e.Message)
	default:
		return withDetail(e.Kind.String(), e.Message)
	}
}

func withDetail(prefix, detail string) string {
	if detail == "" {
		return prefix
	}
	return prefix + ": " + detail
}

func withCause(prefix string, err error) string {
	if err == nil {
		return prefix
	}
	return prefix + ": " + err.Error()
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether re-issuing the same request may succeed.
// Only rate limits, server errors and transport failures qualify.
func (e *Error) IsRetryable() bool {
	switch e.Kind {
	case KindRateLimited, KindServer, KindTransport:
		return true
	}
	return false
}

// IsRetryable reports whether err is a provider *Error that is retryable.
func IsRetryable(err error) bool {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.IsRetryable()
	}
	return false
}

// RetryAfter returns the backoff hint carried by a rate-limited error.
func RetryAfter(err error) (time.Duration, bool) {
	var perr *Error
	if errors.As(err, &perr) && perr.RetryAfter != nil {
		return *perr.RetryAfter, true
	}
	return 0, false
}

// KindOf returns the kind of a provider *Error, or 0 if err is not one.
func KindOf(err error) ErrorKind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return 0
}

// NewMissingCredentialError creates an Error for calls made without a credential.
func NewMissingCredentialError() *Error {
	return &Error{Kind: KindMissingCredential}
}

// NewInvalidEndpointError creates an Error for an unusable base URL.
func NewInvalidEndpointError(message string) *Error {
	return &Error{Kind: KindInvalidEndpoint, Message: message}
}

// NewInvalidResponseError creates an Error for a well-formed body with the wrong shape.
func NewInvalidResponseError(message string) *Error {
	return &Error{Kind: KindInvalidResponse, Message: message}
}

// NewEncodeError creates an Error for a request that could not be serialized.
func NewEncodeError(err error) *Error {
	return &Error{Kind: KindEncode, Err: err}
}

// NewDecodeError creates an Error for a response body that could not be parsed.
func NewDecodeError(err error) *Error {
	return &Error{Kind: KindDecode, Err: err}
}

// NewBadRequestError creates an Error for an invalid request parameter.
func NewBadRequestError(param, message string) *Error {
	return &Error{Kind: KindBadRequest, Param: param, Message: message}
}

// NewTransportError creates an Error for a network-level failure
// (DNS, connection refused, timeout).
func NewTransportError(err error) *Error {
	return &Error{Kind: KindTransport, Err: err}
}

// NewStreamProtocolError creates an Error for a stream that violates SSE framing.
func NewStreamProtocolError(message string) *Error {
	return &Error{Kind: KindStreamProtocol, Message: message}
}
