package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"supernode-rewards/internal/alerting"
	"supernode-rewards/internal/cache"
	"supernode-rewards/internal/config"
	"supernode-rewards/internal/leaderboard"
	"supernode-rewards/internal/rewards"
	"supernode-rewards/internal/scheduler"
	"supernode-rewards/internal/service"
	"supernode-rewards/internal/settlement"
	"supernode-rewards/internal/storage"
	"supernode-rewards/internal/workerpool"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, errors.New("database.dsn is required")
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) openCache() (cache.Cache, func()) {
	if a.Config.Redis.Addr == "" {
		a.Logger.Warn().Msg("redis.addr not configured; caching disabled")
		return nil, nil
	}
	redisCache := cache.NewRedis(a.Config.Redis, a.Logger)
	return redisCache, func() {
		if err := redisCache.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("close cache")
		}
	}
}

func (a *App) newAggregator(store *storage.Store, c cache.Cache) *rewards.Aggregator {
	return rewards.NewAggregator(store, c, a.Config.Leaderboard.MaxLeaders, a.Config.Leaderboard.CacheTTL, a.Logger)
}

func (a *App) newLeaderboard(store *storage.Store, c cache.Cache) *leaderboard.Service {
	aggregator := a.newAggregator(store, c)
	avatars := leaderboard.NewMembershipClient(a.Config.Membership, a.Logger)
	return leaderboard.NewService(
		aggregator,
		store,
		avatars,
		c,
		a.Config.Leaderboard.DefaultPageSize,
		a.Config.Leaderboard.CacheTTL,
		a.Logger,
	)
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) settlementOptions(userID string) settlement.Options {
	return settlement.Options{
		BatchSize:   a.Config.Settlement.BatchSize,
		WaitTimeout: a.Config.Settlement.WaitTimeout,
		UserID:      userID,
	}
}

// Run executes the long-running settlement service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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

	sched := scheduler.New(scheduler.Options{
		RunHourUTC:   a.Config.Scheduler.RunHourUTC,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc := service.New(
		sched,
		runner,
		a.newNotifier(),
		store,
		a.Config.Scheduler.AdvisoryLockKey,
		a.settlementOptions(""),
		a.Logger,
	)

	a.Logger.Info().Msg("starting settlement service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("settlement service stopped")
	return nil
}

// SettleOptions configure a manual settlement run.
type SettleOptions struct {
	Day    time.Time
	UserID string
}

// LeadersOptions configure the leaders command.
type LeadersOptions struct {
	Type   string
	Filter string
	Query  string
	Page   int
	Limit  int
}

// GraphOptions configure the graph command.
type GraphOptions struct {
	Timeline string
	Type     string
	CSVPath  string
	PNGPath  string
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
