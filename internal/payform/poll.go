package payform

import (
	"context"
	"time"
)

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// poll calls try until it returns true, the timeout elapses or ctx is done.
// try always runs at least once. The last wait is shortened so poll never
// overshoots the deadline by more than one attempt.
func poll(ctx context.Context, timeout, interval time.Duration, try func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if try() {
			return true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		if err := sleep(ctx, min(interval, remaining)); err != nil {
			return false
		}
	}
}
