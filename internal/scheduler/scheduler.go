package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RunFunc is invoked once per UTC day with the day being settled.
type RunFunc func(ctx context.Context, day time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	RunHourUTC   int
	StartupDelay time.Duration
}

// Scheduler drives the daily settlement trigger at a fixed UTC hour.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.RunHourUTC < 0 || opts.RunHourUTC > 23 {
		panic("scheduler run hour must be within 0-23")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking the run function once per day until ctx is cancelled.
// Errors from the run function are logged, not fatal to the loop; each day is
// an independent run.
func (s *Scheduler) Run(ctx context.Context, run RunFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	next := s.nextRun(time.Now().UTC())
	for {
		delay := time.Until(next)
		if delay < 0 {
			next = s.nextRun(time.Now().UTC())
			delay = time.Until(next)
		}

		timer := time.NewTimer(delay)
		s.logger.Debug().Time("next_run", next).Msg("waiting for next settlement window")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			timer.Stop()
		}

		day := next.Truncate(24 * time.Hour)
		s.logger.Info().Time("day", day).Msg("executing scheduled settlement")

		if err := run(ctx, day); err != nil {
			s.logger.Error().Err(err).Time("day", day).Msg("scheduled settlement failed")
		}

		next = next.AddDate(0, 0, 1)
	}
}

func (s *Scheduler) nextRun(now time.Time) time.Time {
	at := time.Date(now.Year(), now.Month(), now.Day(), s.opts.RunHourUTC, 0, 0, 0, time.UTC)
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}
