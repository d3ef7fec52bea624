// Package retry re-issues provider calls that failed with a retryable error
// (rate limits, server errors, transport failures) using exponential backoff.
// A rate limit's Retry-After hint stretches the next wait.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rabitem/MailAssistantService-sub002/pkg/debug"
	"github.com/rabitem/MailAssistantService-sub002/pkg/observability"
	"github.com/rabitem/MailAssistantService-sub002/pkg/provider"
)

// Policy controls how often and how long to retry.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	// Zero disables retrying.
	MaxRetries int `yaml:"max_retries"`

	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`

	// MaxRetryAfter caps the server's Retry-After hint.
	MaxRetryAfter time.Duration `yaml:"max_retry_after"`
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      2,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxRetryAfter:   30 * time.Second,
	}
}

// Permanent marks err as not worth retrying regardless of its kind.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, fails with a non-retryable error, exhausts
// the policy, or ctx is done.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoValue is Do for operations that return a value.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	hint := &hintBackOff{delegate: p.exponential(), max: p.MaxRetryAfter}
	b := backoff.WithContext(backoff.WithMaxRetries(hint, uint64(max(p.MaxRetries, 0))), ctx)

	attempt := func() (T, error) {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		var perm *backoff.PermanentError
		if errors.As(err, &perm) || !provider.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		hint.last = err
		return v, err
	}

	notify := func(err error, wait time.Duration) {
		kind := provider.KindOf(err)
		observability.RetryAttemptsTotal.WithLabelValues(kind.String()).Inc()
		debug.Log("retry", "retrying provider call", "kind", kind.String(), "wait", wait, "error", err)
	}

	v, err := backoff.RetryNotifyWithData(attempt, b, notify)
	// Operations may wrap their own errors with Permanent.
	var perm *backoff.PermanentError
	for errors.As(err, &perm) {
		err = perm.Err
	}
	return v, err
}

func (p Policy) exponential() *backoff.ExponentialBackOff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	// The retry count bounds the loop, not wall-clock time.
	eb.MaxElapsedTime = 0
	eb.Reset()
	return eb
}

// hintBackOff waits at least as long as the last error's Retry-After hint.
type hintBackOff struct {
	delegate backoff.BackOff
	last     error
	max      time.Duration
}

func (h *hintBackOff) NextBackOff() time.Duration {
	next := h.delegate.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if hint, ok := provider.RetryAfter(h.last); ok {
		if h.max > 0 && hint > h.max {
			hint = h.max
		}
		if hint > next {
			next = hint
		}
	}
	return next
}

func (h *hintBackOff) Reset() {
	h.last = nil
	h.delegate.Reset()
}
