package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"supernode-rewards/internal/alerting"
	"supernode-rewards/internal/scheduler"
	"supernode-rewards/internal/settlement"
	"supernode-rewards/internal/storage"
)

// Service orchestrates the scheduled daily settlement runs.
type Service struct {
	scheduler *scheduler.Scheduler
	runner    *settlement.Runner
	notifier  alerting.Notifier
	logger    zerolog.Logger

	opts    settlement.Options
	locker  storage.AdvisoryLocker
	lockKey int64
}

// New constructs the settlement service.
func New(sched *scheduler.Scheduler, runner *settlement.Runner, notifier alerting.Notifier, locker storage.AdvisoryLocker, lockKey int64, opts settlement.Options, logger zerolog.Logger) *Service {
	return &Service{
		scheduler: sched,
		runner:    runner,
		notifier:  notifier,
		logger:    logger.With().Str("component", "service").Logger(),
		opts:      opts,
		locker:    locker,
		lockKey:   lockKey,
	}
}

// Run begins the daily settlement loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.SettleDay)
}

// SettleDay executes one settlement run under the advisory lock, so only one
// instance settles a given day.
func (s *Service) SettleDay(ctx context.Context, day time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("day", day).Msg("skip run because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	report, runErr := s.runner.Run(ctx, day, s.opts)

	if s.notifier != nil {
		failed := make([]string, 0, len(report.FailedJobs))
		for _, id := range report.FailedJobs {
			failed = append(failed, id.String())
		}
		note := alerting.RunReport{
			Day:        day,
			Selected:   report.Selected,
			Completed:  report.Completed,
			Failed:     report.Failed,
			FailedJobs: failed,
			Err:        runErr,
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Time("day", day).Msg("failed to dispatch run report")
		}
	}

	return runErr
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
