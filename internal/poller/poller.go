// Package poller drives the bounded reconciliation cadence: reads are
// refreshed on an aligned interval to absorb off-band ledger changes,
// never on every display redraw.
package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked on every refresh cycle.
type TickFunc func(ctx context.Context, at time.Time) error

// Options tune poller behaviour.
type Options struct {
	Interval        time.Duration
	AlignToInterval bool
	StartupDelay    time.Duration
}

// Poller drives aligned execution of refresh cycles.
type Poller struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Poller instance.
func New(opts Options, logger zerolog.Logger) *Poller {
	if opts.Interval <= 0 {
		panic("poller interval must be positive")
	}
	return &Poller{opts: opts, logger: logger.With().Str("component", "poller").Logger()}
}

// Run blocks, invoking the tick function on each cycle until ctx is cancelled.
func (p *Poller) Run(ctx context.Context, tick TickFunc) error {
	if p.opts.StartupDelay > 0 {
		timer := time.NewTimer(p.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	next := p.nextCycle(time.Now().UTC())
	for {
		delay := time.Until(next)
		if delay < 0 {
			next = p.nextCycle(time.Now().UTC())
			delay = time.Until(next)
		}

		timer := time.NewTimer(delay)
		p.logger.Debug().Time("next_cycle", next).Msg("waiting for next refresh cycle")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			timer.Stop()
		}

		at := next
		if err := tick(ctx, at); err != nil {
			p.logger.Error().Err(err).Time("cycle", at).Msg("refresh cycle failed")
		}

		next = next.Add(p.opts.Interval)
	}
}

func (p *Poller) nextCycle(now time.Time) time.Time {
	if !p.opts.AlignToInterval {
		return now.Add(p.opts.Interval)
	}
	cycle := now.Truncate(p.opts.Interval)
	if !cycle.After(now) {
		cycle = cycle.Add(p.opts.Interval)
	}
	return cycle
}
