package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rabitem/MailAssistantService-sub002/pkg/observability"
	"github.com/rabitem/MailAssistantService-sub002/pkg/provider"
)

func fastPolicy(retries int) Policy {
	return Policy{
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func TestDo_RetriesRetryableErrors(t *testing.T) {
	before := testutil.ToFloat64(observability.RetryAttemptsTotal.WithLabelValues("server_error"))

	calls := 0
	got, err := DoValue(context.Background(), fastPolicy(3), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &provider.Error{Kind: provider.KindServer, Status: 503}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Errorf("got %q after %d calls", got, calls)
	}

	after := testutil.ToFloat64(observability.RetryAttemptsTotal.WithLabelValues("server_error"))
	if after-before != 2 {
		t.Errorf("expected 2 retry attempts recorded, got %v", after-before)
	}
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(5), func(context.Context) error {
		calls++
		return &provider.Error{Kind: provider.KindUnauthorized}
	})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if provider.KindOf(err) != provider.KindUnauthorized {
		t.Errorf("expected unauthorized error, got %v", err)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(2), func(context.Context) error {
		calls++
		return provider.NewTransportError(errors.New("connection refused"))
	})
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if provider.KindOf(err) != provider.KindTransport {
		t.Errorf("expected last error returned, got %v", err)
	}
}

func TestDo_ZeroRetries(t *testing.T) {
	calls := 0
	Do(context.Background(), Policy{}, func(context.Context) error {
		calls++
		return &provider.Error{Kind: provider.KindServer}
	})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_HonorsRetryAfter(t *testing.T) {
	hint := 10 * time.Second
	p := fastPolicy(1)
	p.MaxRetryAfter = 30 * time.Millisecond

	calls := 0
	start := time.Now()
	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		if calls == 1 {
			return &provider.Error{Kind: provider.KindRateLimited, RetryAfter: &hint}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("expected wait of at least the capped hint, waited %v", elapsed)
	}
}

func TestDo_Permanent(t *testing.T) {
	calls := 0
	cause := &provider.Error{Kind: provider.KindServer}
	err := Do(context.Background(), fastPolicy(3), func(context.Context) error {
		calls++
		return Permanent(cause)
	})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if err != cause {
		t.Errorf("expected unwrapped cause, got %v", err)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxRetries: 5, InitialInterval: time.Hour, MaxInterval: time.Hour}

	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, p, func(context.Context) error {
			return &provider.Error{Kind: provider.KindServer}
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}
