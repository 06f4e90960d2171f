package app

import (
	"context"
	"errors"

	"supernode-rewards/internal/settlement"
	"supernode-rewards/internal/workerpool"
)

// Settle runs one manual settlement pass for a given day, optionally narrowed
// to a single user. It bypasses the scheduler but keeps the same batch and
// idempotency semantics, so rerunning a day is safe.
func (a *App) Settle(ctx context.Context, opts SettleOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	c, closeCache := a.openCache()
	if closeCache != nil {
		defer closeCache()
	}

	pool := workerpool.New(a.Config.Settlement.PoolSize, a.Config.Settlement.QueueDepth, a.Logger)
	defer pool.Close()

	runner := settlement.NewRunner(store, store, c, pool, a.Logger)

	report, err := runner.Run(ctx, opts.Day.UTC(), a.settlementOptions(opts.UserID))
	if err != nil {
		return err
	}

	a.Logger.Info().
		Time("day", opts.Day.UTC()).
		Int("selected", report.Selected).
		Int("completed", report.Completed).
		Int("failed", report.Failed).
		Msg("manual settlement finished")

	if report.Failed > 0 {
		return errors.New("some settlement jobs failed; check the logs")
	}
	return nil
}
