package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"supernode-rewards/internal/cache"
	"supernode-rewards/internal/storage"
	"supernode-rewards/internal/workerpool"
)

// Options tune one settlement run.
type Options struct {
	BatchSize   int
	WaitTimeout time.Duration
	// UserID narrows the run to a single user when non-empty.
	UserID string
}

// Report aggregates terminal job states across all batches of a run.
type Report struct {
	Selected   int
	Completed  int
	Failed     int
	FailedJobs []uuid.UUID
}

// Runner walks the day's unsettled reward ledger rows and fans bonus
// computation out across the worker pool. Jobs are independent; nothing
// orders completions within or across batches.
type Runner struct {
	store  storage.SettlementLedgerStore
	config storage.SettingsStore
	cache  cache.Cache
	pool   *workerpool.Pool
	logger zerolog.Logger
}

// NewRunner wires the ledger, settings, cache, and pool into a Runner.
func NewRunner(store storage.SettlementLedgerStore, settings storage.SettingsStore, c cache.Cache, pool *workerpool.Pool, logger zerolog.Logger) *Runner {
	return &Runner{
		store:  store,
		config: settings,
		cache:  c,
		pool:   pool,
		logger: logger.With().Str("component", "settlement").Logger(),
	}
}

// Run settles the given UTC day. Settlement settings are loaded once and
// passed by value to every job, so configuration is immutable for the run.
// Per-job failures are recorded and do not abort the remaining batches.
func (r *Runner) Run(ctx context.Context, day time.Time, opts Options) (Report, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 15 * time.Minute
	}

	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	r.invalidateCaches(ctx)

	settings, err := r.config.LoadSettlementSettings(ctx)
	if err != nil {
		return Report{}, err
	}

	pending, err := r.store.CountUnsettled(ctx, from, to, opts.UserID)
	if err != nil {
		return Report{}, err
	}
	r.logger.Info().Time("day", from).Int64("pending", pending).Msg("starting settlement run")

	var report Report
	var cursor int64
	for {
		rows, err := r.store.ListUnsettled(ctx, from, to, cursor, opts.BatchSize, opts.UserID)
		if err != nil {
			return report, err
		}
		if len(rows) == 0 {
			break
		}
		cursor = rows[len(rows)-1].ID
		report.Selected += len(rows)

		summary, err := r.runBatch(ctx, rows, settings, opts.WaitTimeout)
		report.Completed += summary.Completed
		report.Failed += summary.Failed
		report.FailedJobs = append(report.FailedJobs, summary.FailedJobs...)
		if err != nil {
			// A stalled batch is an operational condition; stop the run and
			// surface what finished so far.
			return report, fmt.Errorf("settle batch ending at id %d: %w", cursor, err)
		}

		if len(rows) < opts.BatchSize {
			break
		}
	}

	r.logger.Info().
		Time("day", from).
		Int("selected", report.Selected).
		Int("completed", report.Completed).
		Int("failed", report.Failed).
		Msg("settlement run finished")
	if report.Failed > 0 {
		for _, id := range report.FailedJobs {
			r.logger.Warn().Str("job_id", id.String()).Msg("settlement job failed")
		}
	}

	return report, nil
}

func (r *Runner) runBatch(ctx context.Context, rows []storage.LedgerRow, settings storage.SettlementSettings, waitTimeout time.Duration) (workerpool.Summary, error) {
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	if err := r.store.MarkQueued(ctx, ids); err != nil {
		return workerpool.Summary{}, err
	}

	batch := r.pool.NewBatch(ctx)
	for _, row := range rows {
		row := row
		task := workerpool.Task{
			ID: uuid.New(),
			Run: func(ctx context.Context) error {
				return r.settleRow(ctx, row, settings)
			},
		}
		if err := batch.Submit(task); err != nil {
			r.logger.Error().Err(err).Int64("record_id", row.ID).Msg("submit settlement job")
		}
	}

	return batch.Wait(ctx, waitTimeout)
}

// settleRow computes and persists the bonuses for one ledger row. A row
// already settled by a prior run is a no-op, which keeps reruns of the same
// day safe.
func (r *Runner) settleRow(ctx context.Context, row storage.LedgerRow, settings storage.SettlementSettings) error {
	baseBonus := row.BaseReferral.Mul(settings.BaseReferralPct)
	genBonus := row.BuilderGen.Mul(settings.BuilderGenPct)

	settled, err := r.store.MarkSettled(ctx, row.ID, baseBonus, genBonus)
	if err != nil {
		if markErr := r.store.MarkFailed(ctx, row.ID, err.Error()); markErr != nil {
			r.logger.Error().Err(markErr).Int64("record_id", row.ID).Msg("record settlement failure")
		}
		return err
	}
	if !settled {
		r.logger.Debug().Int64("record_id", row.ID).Msg("row already settled; skipping")
	}
	return nil
}

// invalidateCaches clears the eligibility and highest-stake namespaces that
// the bonus computation reads, plus the leaderboard caches, forcing both to
// recompute on next access. This runs at the start of a run, not at the end.
func (r *Runner) invalidateCaches(ctx context.Context) {
	if r.cache == nil {
		return
	}
	for _, ns := range []string{
		cache.NSBaseReferralEligibility,
		cache.NSBuilderGenHighestStake,
		cache.NSLeaderboard,
	} {
		if _, err := r.cache.DeleteByPattern(ctx, ns); err != nil {
			r.logger.Warn().Err(err).Str("namespace", ns).Msg("cache invalidation failed")
		}
	}
}
