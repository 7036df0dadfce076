package playback

import (
	"context"
	"time"
)

// Clock abstracts wall time so playback timing can be tested.
type Clock interface {
	Now() time.Time

	// SleepUntil blocks until t or until ctx is done. It returns at once
	// when t is not in the future.
	SleepUntil(ctx context.Context, t time.Time) error
}

// SystemClock is the real clock.
type SystemClock struct{}

// Now returns time.Now (with its monotonic reading).
func (SystemClock) Now() time.Time {
	return time.Now()
}

// SleepUntil implements Clock.
func (SystemClock) SleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
