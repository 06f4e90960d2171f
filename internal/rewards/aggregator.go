package rewards

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"supernode-rewards/internal/cache"
	"supernode-rewards/internal/storage"
)

// Aggregator produces per-user and per-bucket reward totals from the raw
// ledger, consulting the cache before recomputing and populating it after.
type Aggregator struct {
	store      storage.RewardAggregationStore
	cache      cache.Cache
	logger     zerolog.Logger
	maxLeaders int
	ttl        time.Duration
}

// NewAggregator wires the ledger store and cache into an Aggregator.
func NewAggregator(store storage.RewardAggregationStore, c cache.Cache, maxLeaders int, ttl time.Duration, logger zerolog.Logger) *Aggregator {
	if maxLeaders <= 0 {
		maxLeaders = 50
	}
	if ttl <= 0 {
		ttl = cache.SettledTTL
	}
	return &Aggregator{
		store:      store,
		cache:      c,
		logger:     logger.With().Str("component", "aggregator").Logger(),
		maxLeaders: maxLeaders,
		ttl:        ttl,
	}
}

// UserTotals aggregates per-user totals for the filter window, ordered by the
// metric selected by typ, capped at the configured leader limit. Results are
// cached per parameter tuple; a non-empty search query bypasses the cache
// entirely, both read and write.
func (a *Aggregator) UserTotals(ctx context.Context, typ Type, filter Filter, query string) ([]storage.LeaderTotals, error) {
	from, to, err := filter.Window(time.Now())
	if err != nil {
		return nil, err
	}

	key := cache.Key(cache.NSRewardTotals, typ.String(), string(filter))
	if query == "" {
		if cached, ok := a.cacheGet(ctx, key); ok {
			var totals []storage.LeaderTotals
			if err := json.Unmarshal([]byte(cached), &totals); err == nil {
				return totals, nil
			}
			a.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
		}
	}

	totals, err := a.store.TopLeaderTotals(ctx, typ.Order(), from, to, a.maxLeaders)
	if err != nil {
		return nil, fmt.Errorf("aggregate user totals: %w", err)
	}

	if query == "" {
		a.cacheSet(ctx, key, totals)
	}
	return totals, nil
}

// BucketTotals aggregates the metric per time bucket for the timeline window.
// The sparse result maps bucket keys to the summed metric value; buckets with
// no qualifying rows are absent.
func (a *Aggregator) BucketTotals(ctx context.Context, typ Type, timeline Timeline) (map[string]decimal.Decimal, error) {
	from, to, err := timeline.Window(time.Now())
	if err != nil {
		return nil, err
	}

	rows, err := a.store.BucketTotalsBetween(ctx, timeline.Granularity(), from, to)
	if err != nil {
		return nil, fmt.Errorf("aggregate bucket totals: %w", err)
	}

	buckets := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		buckets[row.BucketKey] = typ.Amount(row.BaseReferral, row.BuilderGen)
	}
	return buckets, nil
}

func (a *Aggregator) cacheGet(ctx context.Context, key string) (string, bool) {
	if a.cache == nil {
		return "", false
	}
	value, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.Warn().Err(err).Str("key", key).Msg("cache read failed; recomputing")
		return "", false
	}
	return value, ok
}

func (a *Aggregator) cacheSet(ctx context.Context, key string, value any) {
	if a.cache == nil {
		return
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		a.logger.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := a.cache.Set(ctx, key, string(encoded), a.ttl); err != nil {
		a.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
