package openaicompat

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rabitem/MailAssistantService-sub002/pkg/provider"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Classify maps a non-200 HTTP status and an optional parsed error body to a
// provider error.
func Classify(status int, body *ErrorBody) *provider.Error {
	var message string
	if body != nil {
		message = body.Error.Message
	}

	switch {
	case status == http.StatusBadRequest:
		if message == "" {
			message = "Invalid request"
		}
		return &provider.Error{Kind: provider.KindBadRequest, Status: status, Message: message}

	case status == http.StatusUnauthorized:
		return &provider.Error{Kind: provider.KindUnauthorized, Status: status}

	case status == http.StatusForbidden:
		return &provider.Error{Kind: provider.KindForbidden, Status: status, Message: message}

	case status == http.StatusTooManyRequests:
		e := &provider.Error{Kind: provider.KindRateLimited, Status: status, Message: message}
		if body != nil && body.Error.RetryAfter != nil && *body.Error.RetryAfter >= 0 {
			d := time.Duration(*body.Error.RetryAfter * float64(time.Second))
			e.RetryAfter = &d
		}
		return e

	case status >= 500 && status <= 599:
		return &provider.Error{Kind: provider.KindServer, Status: status, Message: message}

	default:
		return &provider.Error{Kind: provider.KindUnknown, Status: status, Message: message}
	}
}

// ClassifyResponse reads the body of a non-200 response and classifies it.
// When a 429 body carries no retry hint, the Retry-After header is used.
func ClassifyResponse(resp *http.Response) *provider.Error {
	body := ParseErrorBody(resp.Body)
	e := Classify(resp.StatusCode, body)
	if e.Kind == provider.KindRateLimited && e.RetryAfter == nil {
		if d, ok := parseRetryAfterHeader(resp.Header.Get("Retry-After")); ok {
			e.RetryAfter = &d
		}
	}
	return e
}

// ParseErrorBody reads at most 64 KiB from r and parses it as an ErrorBody.
// It returns nil when the body is empty or not in the expected shape.
func ParseErrorBody(r io.Reader) *ErrorBody {
	if r == nil {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return nil
	}
	var body ErrorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return nil
	}
	return &body
}

// parseRetryAfterHeader accepts delta-seconds or an HTTP date.
func parseRetryAfterHeader(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second)), true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
