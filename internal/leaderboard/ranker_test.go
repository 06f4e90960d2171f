package leaderboard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"supernode-rewards/internal/rewards"
	"supernode-rewards/internal/storage"
)

type fakeLedger struct {
	leaders []storage.LeaderTotals
	calls   int
}

func (f *fakeLedger) TopLeaderTotals(ctx context.Context, order storage.OrderBy, from, to time.Time, limit int) ([]storage.LeaderTotals, error) {
	f.calls++
	if len(f.leaders) > limit {
		return f.leaders[:limit], nil
	}
	return f.leaders, nil
}

func (f *fakeLedger) BucketTotalsBetween(ctx context.Context, granularity storage.BucketGranularity, from, to time.Time) ([]storage.BucketTotals, error) {
	return nil, nil
}

type fakeTokens struct{}

func (fakeTokens) ActiveRewardToken(ctx context.Context) (storage.RewardToken, error) {
	return storage.RewardToken{Name: "LayerToken", Symbol: "LTK"}, nil
}

type fakeAvatars struct {
	calls int
}

func (f *fakeAvatars) ResolveProfilePicture(ctx context.Context, wallet string) (*string, error) {
	f.calls++
	picture := "https://cdn.example/" + wallet + ".png"
	return &picture, nil
}

type fakeCache struct {
	entries map[string]string
	gets    int
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, bool, error) {
	f.gets++
	value, ok := f.entries[key]
	return value, ok, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	f.sets++
	f.entries[key] = value
	return nil
}

func (f *fakeCache) DeleteByPattern(ctx context.Context, prefix string) (int, error) {
	return 0, nil
}

func seededLeaders(n int) []storage.LeaderTotals {
	// Descending totals, the order the aggregation query returns.
	leaders := make([]storage.LeaderTotals, 0, n)
	for i := 0; i < n; i++ {
		total := decimal.NewFromInt(int64(n - i))
		leaders = append(leaders, storage.LeaderTotals{
			UserID:        fmt.Sprintf("u%03d", i),
			Username:      fmt.Sprintf("user%03d", i),
			WalletAddress: fmt.Sprintf("0x%040d", i),
			BaseReferral:  total,
			BuilderGen:    decimal.Zero,
			Total:         total,
		})
	}
	return leaders
}

func testService(ledger *fakeLedger, avatars AvatarResolver, c *fakeCache) *Service {
	aggregator := rewards.NewAggregator(ledger, nil, 50, time.Hour, zerolog.Nop())
	if c == nil {
		return NewService(aggregator, fakeTokens{}, avatars, nil, 50, time.Hour, zerolog.Nop())
	}
	return NewService(aggregator, fakeTokens{}, avatars, c, 50, time.Hour, zerolog.Nop())
}

func TestTopLeadersRankMonotonicity(t *testing.T) {
	ledger := &fakeLedger{leaders: seededLeaders(10)}
	svc := testService(ledger, &fakeAvatars{}, nil)

	result, err := svc.TopLeaders(context.Background(), Params{Type: rewards.TypeAll, Filter: rewards.FilterWeek})
	if err != nil {
		t.Fatalf("top leaders should succeed: %v", err)
	}

	for i, entry := range result.List {
		if !entry.TokenAmount.IsPositive() {
			t.Fatalf("entry %d: amounts must be strictly positive, got %s", i, entry.TokenAmount)
		}
		if i == 0 {
			continue
		}
		prev := result.List[i-1]
		if prev.Rank >= entry.Rank {
			t.Fatalf("ranks must increase: %d then %d", prev.Rank, entry.Rank)
		}
		if prev.TokenAmount.LessThan(entry.TokenAmount) {
			t.Fatalf("amounts must be non-increasing: %s then %s", prev.TokenAmount, entry.TokenAmount)
		}
	}
}

func TestTopLeadersHardCap(t *testing.T) {
	ledger := &fakeLedger{leaders: seededLeaders(200)}
	svc := testService(ledger, &fakeAvatars{}, nil)

	result, err := svc.TopLeaders(context.Background(), Params{Type: rewards.TypeAll, Filter: rewards.FilterWeek, Limit: 100})
	if err != nil {
		t.Fatalf("top leaders should succeed: %v", err)
	}

	if len(result.List) > 50 {
		t.Fatalf("the leaderboard is capped at 50 entries, got %d", len(result.List))
	}
	if result.TotalCount > 50 {
		t.Fatalf("totalCount can never exceed the 50-row cap, got %d", result.TotalCount)
	}
}

func TestTopLeadersDropsNonPositive(t *testing.T) {
	ledger := &fakeLedger{leaders: []storage.LeaderTotals{
		{UserID: "u1", Username: "alice", WalletAddress: "0x1", Total: decimal.NewFromInt(5)},
		{UserID: "u2", Username: "bob", WalletAddress: "0x2", Total: decimal.Zero},
	}}
	svc := testService(ledger, &fakeAvatars{}, nil)

	result, err := svc.TopLeaders(context.Background(), Params{Type: rewards.TypeAll, Filter: rewards.FilterWeek})
	if err != nil {
		t.Fatalf("top leaders should succeed: %v", err)
	}
	if len(result.List) != 1 {
		t.Fatalf("zero-total rows must be dropped before ranking, got %d entries", len(result.List))
	}
	if result.List[0].UserID != "u1" || result.List[0].Rank != 1 {
		t.Fatalf("unexpected surviving entry %+v", result.List[0])
	}
}

func TestTopLeadersQueryKeepsOriginalRanks(t *testing.T) {
	ledger := &fakeLedger{leaders: seededLeaders(5)}
	svc := testService(ledger, &fakeAvatars{}, nil)

	result, err := svc.TopLeaders(context.Background(), Params{
		Type:   rewards.TypeAll,
		Filter: rewards.FilterWeek,
		Query:  "user003",
	})
	if err != nil {
		t.Fatalf("top leaders should succeed: %v", err)
	}
	if len(result.List) != 1 {
		t.Fatalf("query should narrow to one entry, got %d", len(result.List))
	}
	// Ranks are assigned before the search filter; gaps are expected.
	if result.List[0].Rank != 4 {
		t.Fatalf("filtered entry should keep its pre-filter rank 4, got %d", result.List[0].Rank)
	}
	if result.TotalCount != 1 {
		t.Fatalf("totalCount reflects the post-filter list, got %d", result.TotalCount)
	}
}

func TestTopLeadersQueryBypassesCache(t *testing.T) {
	ledger := &fakeLedger{leaders: seededLeaders(5)}
	c := newFakeCache()
	svc := testService(ledger, &fakeAvatars{}, c)

	if _, err := svc.TopLeaders(context.Background(), Params{
		Type:   rewards.TypeAll,
		Filter: rewards.FilterWeek,
		Query:  "user001",
	}); err != nil {
		t.Fatalf("search call should succeed: %v", err)
	}

	if c.gets != 0 || c.sets != 0 {
		t.Fatalf("search calls must never touch the cache, got %d gets %d sets", c.gets, c.sets)
	}
}

func TestTopLeadersCachedResultSkipsRecompute(t *testing.T) {
	ledger := &fakeLedger{leaders: seededLeaders(5)}
	avatars := &fakeAvatars{}
	c := newFakeCache()
	svc := testService(ledger, avatars, c)

	first, err := svc.TopLeaders(context.Background(), Params{Type: rewards.TypeAll, Filter: rewards.FilterWeek})
	if err != nil {
		t.Fatalf("first call should succeed: %v", err)
	}
	second, err := svc.TopLeaders(context.Background(), Params{Type: rewards.TypeAll, Filter: rewards.FilterWeek})
	if err != nil {
		t.Fatalf("second call should succeed: %v", err)
	}

	if ledger.calls != 1 {
		t.Fatalf("second call within TTL should not query the ledger, got %d queries", ledger.calls)
	}
	if avatars.calls != 5 {
		t.Fatalf("avatar lookups run only on recompute, got %d calls", avatars.calls)
	}
	if len(first.List) != len(second.List) {
		t.Fatalf("cached result should match, got %d and %d entries", len(first.List), len(second.List))
	}
}

func TestTopLeadersPagination(t *testing.T) {
	ledger := &fakeLedger{leaders: seededLeaders(30)}
	svc := testService(ledger, &fakeAvatars{}, nil)

	result, err := svc.TopLeaders(context.Background(), Params{
		Type:   rewards.TypeAll,
		Filter: rewards.FilterWeek,
		Page:   2,
		Limit:  10,
	})
	if err != nil {
		t.Fatalf("top leaders should succeed: %v", err)
	}

	if len(result.List) != 10 {
		t.Fatalf("page 2 should hold 10 entries, got %d", len(result.List))
	}
	if result.List[0].Rank != 11 {
		t.Fatalf("page 2 should start at rank 11, got %d", result.List[0].Rank)
	}
	if result.TotalCount != 30 || result.TotalPages != 3 || result.CurrentPage != 2 {
		t.Fatalf("unexpected pagination metadata %+v", result)
	}
}

func TestTopLeadersEmptyIsSuccess(t *testing.T) {
	ledger := &fakeLedger{}
	svc := testService(ledger, &fakeAvatars{}, nil)

	result, err := svc.TopLeaders(context.Background(), Params{Type: rewards.TypeAll, Filter: rewards.FilterWeek})
	if err != nil {
		t.Fatalf("an empty leaderboard is a successful response: %v", err)
	}
	if result.TotalCount != 0 || len(result.List) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}
