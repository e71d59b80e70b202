package retry

import (
	"context"
	"time"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
)

// Observer is notified before each retry with the 1-based retry number and the error that caused it.
type Observer func(retry int, err error)

// Do calls fn until it succeeds, returns a non-transient error, the context is done, or
// the policy's retries are exhausted. Only classified transient errors are retried.
// It returns the last result, the last error and the number of attempts made.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error), observe Observer) (T, int, error) {
	var (
		result T
		err    error
	)
	attempts := 0
	for {
		attempts++
		result, err = fn(ctx)
		if err == nil {
			return result, attempts, nil
		}
		retry := attempts
		if retry > p.MaxRetries || !errors.IsTransient(err) || ctx.Err() != nil {
			return result, attempts, err
		}
		if observe != nil {
			observe(retry, err)
		}
		if !sleep(ctx, p.Delay(retry)) {
			return result, attempts, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
