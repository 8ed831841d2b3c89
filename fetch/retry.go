package fetch

import (
	"context"
	"time"
)

// Policy retries an operation a bounded number of times with exponential
// backoff. Only errors accepted by Retryable are retried; everything else
// fails immediately. Retries never cross task boundaries.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	BackoffMax  time.Duration
	Retryable   func(error) bool
	OnRetry     func(attempt int, err error)
}

// Do runs op until it succeeds, the attempt budget is spent, the error is
// not retryable, or the context is cancelled while backing off.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if p.Retryable != nil && !p.Retryable(err) {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		timer := time.NewTimer(p.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func (p Policy) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := p.Backoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := p.BackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}
