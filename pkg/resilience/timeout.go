package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/errors"
)

// WithTimeout runs fn under a context cancelled after timeout. A deadline
// hit wraps apperrors.ErrTimeout so HTTP handlers map it to 503.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- fn(timeoutCtx)
	}()
	select {
	case err := <-done:
		if err != nil && timeoutCtx.Err() != nil {
			return deadlineError(ctx, name, timeout)
		}
		return err
	case <-timeoutCtx.Done():
		return deadlineError(ctx, name, timeout)
	}
}

func deadlineError(parent context.Context, name string, timeout time.Duration) error {
	if parent.Err() != nil {
		return fmt.Errorf("%s: parent context cancelled: %w", name, parent.Err())
	}
	return fmt.Errorf("%s: %w (limit: %v)", name, apperrors.ErrTimeout, timeout)
}
