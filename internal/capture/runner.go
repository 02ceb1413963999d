package capture

import (
	"context"
	"time"
)

// DefaultTickInterval approximates a 60Hz display-refresh cadence.
const DefaultTickInterval = 16 * time.Millisecond

// Runner drives a Loop on a fixed cadence. It exists so the loop itself
// stays a plain Tick'able object that tests can step by hand.
type Runner struct {
	loop     *Loop
	interval time.Duration
}

func NewRunner(loop *Loop, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Runner{loop: loop, interval: interval}
}

// Run ticks the loop until the context is canceled. Cancellation is the
// only way a pending tick is dropped; there is no dangling callback after
// Run returns.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.loop.Tick()
		}
	}
}
