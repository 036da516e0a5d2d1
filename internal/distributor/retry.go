package distributor

import (
	"context"
	"errors"
	"time"

	"tokendrop/internal/ledger"
)

// retryable reports whether another attempt can change the outcome.
// Cancellation and classified ledger rejections are permanent.
func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrSupplyExhausted),
		errors.Is(err, ledger.ErrAlreadyExists):
		return false
	}
	return true
}

// withRetry runs fn with exponential backoff, giving up early on permanent
// errors. It is only used for read-only ledger calls; submissions are never
// retried here because a retried submit after an ambiguous response can
// double-spend the original.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || !retryable(err) {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
