package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"supernode-rewards/internal/cache"
	"supernode-rewards/internal/rewards"
	"supernode-rewards/internal/storage"
)

// Entry is one ranked leaderboard row.
type Entry struct {
	UserID         string          `json:"userId"`
	Username       string          `json:"username"`
	WalletAddress  string          `json:"walletAddress"`
	ProfilePicture *string         `json:"profilePicture"`
	TokenName      string          `json:"tokenName"`
	TokenSymbol    string          `json:"tokenSymbol"`
	TokenAmount    decimal.Decimal `json:"tokenAmount"`
	Rank           int             `json:"rank"`
}

// Result is the paginated leaderboard response shape.
type Result struct {
	List        []Entry `json:"list"`
	TotalCount  int     `json:"totalCount"`
	TotalPages  int     `json:"totalPages"`
	CurrentPage int     `json:"currentPage"`
}

// Params select the leaderboard slice to compute.
type Params struct {
	Type   rewards.Type
	Filter rewards.Filter
	Query  string
	Page   int
	Limit  int
}

// Service turns aggregated per-user totals into a paginated, ranked,
// profile-enriched leaderboard.
type Service struct {
	aggregator *rewards.Aggregator
	tokens     storage.TokenStore
	avatars    AvatarResolver
	cache      cache.Cache
	logger     zerolog.Logger
	pageSize   int
	ttl        time.Duration
}

// NewService wires the aggregator and collaborators into a Service.
func NewService(aggregator *rewards.Aggregator, tokens storage.TokenStore, avatars AvatarResolver, c cache.Cache, pageSize int, ttl time.Duration, logger zerolog.Logger) *Service {
	if pageSize <= 0 {
		pageSize = 50
	}
	if ttl <= 0 {
		ttl = cache.SettledTTL
	}
	return &Service{
		aggregator: aggregator,
		tokens:     tokens,
		avatars:    avatars,
		cache:      c,
		logger:     logger.With().Str("component", "leaderboard").Logger(),
		pageSize:   pageSize,
		ttl:        ttl,
	}
}

// TopLeaders computes the ranked leaderboard for the given parameters.
//
// Ranks are assigned over the full metric-sorted set before the optional
// search filter runs, so a filtered response shows rank gaps rather than
// recomputed ranks. An empty result is a successful response, not an error.
func (s *Service) TopLeaders(ctx context.Context, params Params) (Result, error) {
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Limit <= 0 {
		params.Limit = s.pageSize
	}

	key := cache.Key(
		cache.NSLeaderboard,
		params.Type.String(),
		string(params.Filter),
		strconv.Itoa(params.Page),
		strconv.Itoa(params.Limit),
	)
	if params.Query == "" && s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var result Result
			if err := json.Unmarshal([]byte(cached), &result); err == nil {
				return result, nil
			}
			s.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
		}
	}

	totals, err := s.aggregator.UserTotals(ctx, params.Type, params.Filter, params.Query)
	if err != nil {
		return Result{}, err
	}

	token, err := s.tokens.ActiveRewardToken(ctx)
	if err != nil {
		return Result{}, err
	}

	entries := make([]Entry, 0, len(totals))
	for _, row := range totals {
		amount := params.Type.Amount(row.BaseReferral, row.BuilderGen)
		if !amount.IsPositive() {
			continue
		}

		// One lookup per surviving row; the membership API has no batch
		// endpoint.
		picture, err := s.avatars.ResolveProfilePicture(ctx, row.WalletAddress)
		if err != nil {
			return Result{}, fmt.Errorf("resolve profile picture for %s: %w", row.UserID, err)
		}

		entries = append(entries, Entry{
			UserID:         row.UserID,
			Username:       row.Username,
			WalletAddress:  row.WalletAddress,
			ProfilePicture: picture,
			TokenName:      token.Name,
			TokenSymbol:    token.Symbol,
			TokenAmount:    amount,
		})
	}

	for i := range entries {
		entries[i].Rank = i + 1
	}

	if params.Query != "" {
		needle := strings.ToLower(params.Query)
		filtered := entries[:0]
		for _, entry := range entries {
			if strings.Contains(strings.ToLower(entry.Username), needle) ||
				strings.Contains(strings.ToLower(entry.WalletAddress), needle) {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TokenAmount.GreaterThan(entries[j].TokenAmount)
	})

	totalCount := len(entries)
	totalPages := (totalCount + params.Limit - 1) / params.Limit

	offset := (params.Page - 1) * params.Limit
	if offset > totalCount {
		offset = totalCount
	}
	end := offset + params.Limit
	if end > totalCount {
		end = totalCount
	}

	result := Result{
		List:        entries[offset:end],
		TotalCount:  totalCount,
		TotalPages:  totalPages,
		CurrentPage: params.Page,
	}

	if params.Query == "" && s.cache != nil {
		if encoded, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, key, string(encoded), s.ttl); err != nil {
				s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
			}
		}
	}

	return result, nil
}
