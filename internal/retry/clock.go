package retry

import (
	"context"
	"time"
)

// Clock abstracts time so backoff behavior is deterministic in tests.
type Clock interface {
	Now() time.Time

	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case. Implementations must not hold any lock while blocked.
	Sleep(ctx context.Context, d time.Duration) error
}

// realClock is the production Clock backed by the wall clock.
type realClock struct{}

// NewClock returns the wall-clock Clock.
func NewClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
