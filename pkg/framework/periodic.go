package framework

import (
	"context"
	"time"
)

// DefaultInterval is used when Periodic.Interval is not set.
const DefaultInterval = 100 * time.Millisecond

// Periodic is a Runnable invoking Func every Interval until canceled.
// Ticks are dropped, not queued, if Func runs longer than Interval.
type Periodic struct {
	Interval time.Duration
	Func     func(context.Context)
}

// Every creates a Periodic.
func Every(interval time.Duration, fn func(context.Context)) *Periodic {
	return &Periodic{Interval: interval, Func: fn}
}

// Run implements Runnable.
func (p *Periodic) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Func(ctx)
		}
	}
}
