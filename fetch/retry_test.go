package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestPolicyRetriesTransientErrors(t *testing.T) {
	policy := Policy{
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
		BackoffMax:  time.Millisecond,
		Retryable:   IsTransient,
	}

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return ErrConnection{Err: errors.New("connection refused")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestPolicyDoesNotRetryStatusErrors(t *testing.T) {
	policy := Policy{
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
		Retryable:   IsTransient,
	}

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return ErrStatus{Code: http.StatusInternalServerError}
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 for a non-retryable error", calls)
	}
}

func TestPolicyExhaustsAttempts(t *testing.T) {
	retried := 0
	policy := Policy{
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
		Retryable:   IsTransient,
		OnRetry:     func(int, error) { retried++ },
	}

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return ErrTimeout{Err: context.DeadlineExceeded}
	})
	var timeout ErrTimeout
	if !errors.As(err, &timeout) {
		t.Fatalf("err = %v, want the final timeout", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if retried != 2 {
		t.Fatalf("retries = %d, want 2", retried)
	}
}

func TestPolicyStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{
		MaxAttempts: 5,
		Backoff:     time.Hour,
		Retryable:   IsTransient,
	}

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- policy.Do(ctx, func() error {
			calls++
			return ErrConnection{Err: errors.New("connection refused")}
		})
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Do did not return after cancellation")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestPolicyBackoffCapped(t *testing.T) {
	policy := Policy{Backoff: 200 * time.Millisecond, BackoffMax: 500 * time.Millisecond}
	if delay := policy.backoff(4); delay > policy.BackoffMax {
		t.Fatalf("delay %v exceeds max %v", delay, policy.BackoffMax)
	}
	if delay := policy.backoff(1); delay != 200*time.Millisecond {
		t.Fatalf("first delay = %v, want base backoff", delay)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "server error", err: nil, statusCode: http.StatusInternalServerError, expected: "http_status"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(Classify(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("Classify(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(ErrTimeout{Err: context.DeadlineExceeded}) {
		t.Fatalf("timeouts must be transient")
	}
	if !IsTransient(ErrConnection{Err: errors.New("refused")}) {
		t.Fatalf("connection failures must be transient")
	}
	if IsTransient(ErrStatus{Code: 500}) {
		t.Fatalf("application-level responses must not be transient")
	}
	if IsTransient(ErrNotFound{}) {
		t.Fatalf("404 must not be transient")
	}
}
