package market

import (
	"context"
	"sync"
	"time"
)

// Throttle spaces out calls so that at least delay passes between the
// start of two consecutive calls
type Throttle struct {
	mu    sync.Mutex
	delay time.Duration
	last  time.Time
	now   func() time.Time
}

// NewThrottle returns a Throttle, a negative delay counts as zero
func NewThrottle(delay time.Duration) *Throttle {
	return &Throttle{
		delay: max(delay, 0),
		now:   time.Now,
	}
}

// Delay returns the enforced minimum spacing
func (t *Throttle) Delay() time.Duration {
	return t.delay
}

// Wait blocks until the next call is allowed or ctx is done
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.last.IsZero() {
		if wait := t.delay - t.now().Sub(t.last); wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	t.last = t.now()
	return nil
}
