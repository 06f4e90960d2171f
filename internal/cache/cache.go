package cache

import (
	"context"
	"strings"
	"time"
)

// Namespaces used across the service. Settlement runs delete these wholesale;
// readers recompute on the next miss.
const (
	NSLeaderboard             = "leaderboard"
	NSRewardGraph             = "reward-graph"
	NSRewardTotals            = "reward-totals"
	NSBaseReferralEligibility = "base-referral-eligibility"
	NSBuilderGenHighestStake  = "builder-gen-highest-stake"
)

// SettledTTL is the lifetime of cached aggregates over settled ledger data.
const SettledTTL = 86400 * time.Second

// Cache is the key/value collaborator consulted before recomputation.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, prefix string) (int, error)
}

// Key joins key parts with the namespace separator. Empty parts are kept so
// that (type="", filter="week") and (type="week", filter="") produce distinct
// keys.
func Key(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = strings.ReplaceAll(p, ":", "_")
	}
	return strings.Join(escaped, ":")
}
