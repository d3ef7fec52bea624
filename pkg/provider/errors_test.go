package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorMessages(t *testing.T) {
	retry := 5 * time.Second
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"missing credential", &Error{Kind: KindMissingCredential, Provider: "openai"}, "openai: no API key configured"},
		{"unauthorized", &Error{Kind: KindUnauthorized}, "invalid API key or unauthorized access"},
		{"forbidden with detail", &Error{Kind: KindForbidden, Message: "region"}, "access forbidden: region"},
		{"rate limited", &Error{Kind: KindRateLimited}, "rate limit exceeded"},
		{"rate limited with hint", &Error{Kind: KindRateLimited, RetryAfter: &retry}, "rate limit exceeded, retry after 5s"},
		{"server", &Error{Kind: KindServer, Status: 503, Message: "overloaded"}, "server error (HTTP 503): overloaded"},
		{"unknown", &Error{Kind: KindUnknown, Status: 418}, "unexpected response (HTTP 418)"},
		{"bad request with param", NewBadRequestError("top_p", "top_p must be between 0.0 and 1.0"), "top_p must be between 0.0 and 1.0 (param: top_p)"},
		{"transport", NewTransportError(errors.New("connection refused")), "network error: connection refused"},
		{"stream protocol", NewStreamProtocolError("event too large"), "stream protocol error: event too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want bool
	}{
		{KindRateLimited, true},
		{KindServer, true},
		{KindTransport, true},
		{KindUnauthorized, false},
		{KindBadRequest, false},
		{KindMissingCredential, false},
		{KindDecode, false},
		{KindStreamProtocol, false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &Error{Kind: tt.kind})
			if got := IsRetryable(err); got != tt.want {
				t.Errorf("IsRetryable = %v, want %v", got, tt.want)
			}
		})
	}

	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors must not be retryable")
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := NewTransportError(context.DeadlineExceeded)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected errors.Is to see the cause")
	}
	if KindOf(err) != KindTransport {
		t.Errorf("KindOf = %v", KindOf(err))
	}
	if KindOf(errors.New("x")) != 0 {
		t.Error("KindOf of a foreign error should be 0")
	}
}

func TestRetryAfter(t *testing.T) {
	d := 2 * time.Second
	got, ok := RetryAfter(&Error{Kind: KindRateLimited, RetryAfter: &d})
	if !ok || got != d {
		t.Errorf("RetryAfter = %v, %v", got, ok)
	}
	if _, ok := RetryAfter(&Error{Kind: KindRateLimited}); ok {
		t.Error("expected no hint")
	}
}

func TestErrorKindString(t *testing.T) {
	if KindRateLimited.String() != "rate_limited" {
		t.Errorf("got %q", KindRateLimited.String())
	}
	if ErrorKind(99).String() != "kind(99)" {
		t.Errorf("got %q", ErrorKind(99).String())
	}
}
