package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

// OrderBy selects the aggregation column a leaderboard query sorts on.
type OrderBy string

const (
	OrderByBase  OrderBy = "base"
	OrderByGen   OrderBy = "gen"
	OrderByTotal OrderBy = "total"
)

// BucketGranularity selects the time slice a graph query groups on.
type BucketGranularity string

const (
	BucketDaily   BucketGranularity = "YYYY-MM-DD"
	BucketMonthly BucketGranularity = "YYYY-MM"
)

const (
	topLeadersSQL = `SELECT
        r.user_id,
        u.username,
        u.wallet_address,
        COALESCE(SUM(r.total_base_referral), 0)::text AS base,
        COALESCE(SUM(r.total_builder_gen), 0)::text AS gen,
        COALESCE(SUM(r.total_base_referral + r.total_builder_gen), 0)::text AS total
    FROM reward_records r
    JOIN user_profiles u ON u.user_id = r.user_id AND u.deleted_at IS NULL
    WHERE r.created_at >= $1
      AND r.created_at < $2
      AND r.deleted_at IS NULL
    GROUP BY r.user_id, u.username, u.wallet_address
    ORDER BY %s DESC, r.user_id ASC
    LIMIT $3;`

	bucketTotalsSQL = `SELECT
        to_char(r.created_at, $3) AS bucket,
        COALESCE(SUM(r.total_base_referral), 0)::text AS base,
        COALESCE(SUM(r.total_builder_gen), 0)::text AS gen
    FROM reward_records r
    WHERE r.created_at >= $1
      AND r.created_at < $2
      AND r.deleted_at IS NULL
    GROUP BY bucket
    ORDER BY bucket;`

	listUnsettledSQL = `SELECT
        r.id,
        r.user_id,
        r.record_type,
        r.total_base_referral::text,
        r.total_builder_gen::text,
        r.source_tx_id,
        r.settlement_status,
        r.settlement_error,
        r.settled_at,
        r.created_at,
        r.deleted_at,
        u.username,
        u.wallet_address
    FROM reward_records r
    JOIN user_profiles u ON u.user_id = r.user_id
    WHERE r.created_at >= $1
      AND r.created_at < $2
      AND r.record_type = 'reward'
      AND r.deleted_at IS NULL
      AND r.source_tx_id IS NOT NULL
      AND r.settlement_status = 'pending'
      AND r.id > $3
      AND ($5 = '' OR r.user_id::text = $5)
    ORDER BY r.id
    LIMIT $4;`

	countUnsettledSQL = `SELECT COUNT(*)
    FROM reward_records r
    WHERE r.created_at >= $1
      AND r.created_at < $2
      AND r.record_type = 'reward'
      AND r.deleted_at IS NULL
      AND r.source_tx_id IS NOT NULL
      AND r.settlement_status = 'pending'
      AND ($3 = '' OR r.user_id::text = $3);`

	markQueuedSQL = `UPDATE reward_records
    SET settlement_status = 'queued'
    WHERE id = ANY($1)
      AND settlement_status = 'pending';`

	markSettledSQL = `UPDATE reward_records
    SET settlement_status = 'success',
        base_referral_bonus = $2,
        builder_gen_bonus   = $3,
        settlement_error    = NULL,
        settled_at          = now()
    WHERE id = $1
      AND settlement_status <> 'success';`

	markFailedSQL = `UPDATE reward_records
    SET settlement_status = 'failed',
        settlement_error  = $2
    WHERE id = $1
      AND settlement_status <> 'success';`

	listRecentRecordsSQL = `SELECT
        r.id,
        r.user_id,
        r.record_type,
        r.total_base_referral::text,
        r.total_builder_gen::text,
        r.source_tx_id,
        r.settlement_status,
        r.settlement_error,
        r.settled_at,
        r.created_at,
        r.deleted_at
    FROM reward_records r
    WHERE r.deleted_at IS NULL
    ORDER BY r.created_at DESC, r.id DESC
    LIMIT $1;`

	activeRewardTokenSQL = `SELECT name, symbol
    FROM reward_tokens
    WHERE is_active
    ORDER BY created_at DESC
    LIMIT 1;`

	settlementSettingsSQL = `SELECT
        base_referral_pct::text,
        builder_gen_pct::text
    FROM settlement_settings
    WHERE is_active
    ORDER BY created_at DESC
    LIMIT 1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// RewardAggregationStore defines read-side aggregation over the ledger.
type RewardAggregationStore interface {
	TopLeaderTotals(ctx context.Context, order OrderBy, from, to time.Time, limit int) ([]LeaderTotals, error)
	BucketTotalsBetween(ctx context.Context, granularity BucketGranularity, from, to time.Time) ([]BucketTotals, error)
}

// SettlementLedgerStore defines settlement access to the ledger.
type SettlementLedgerStore interface {
	ListUnsettled(ctx context.Context, from, to time.Time, afterID int64, limit int, userID string) ([]LedgerRow, error)
	CountUnsettled(ctx context.Context, from, to time.Time, userID string) (int64, error)
	MarkQueued(ctx context.Context, ids []int64) error
	MarkSettled(ctx context.Context, id int64, baseBonus, genBonus decimal.Decimal) (bool, error)
	MarkFailed(ctx context.Context, id int64, errMsg string) error
}

// TokenStore resolves the active reward-token display configuration.
type TokenStore interface {
	ActiveRewardToken(ctx context.Context) (RewardToken, error)
}

// SettingsStore loads settlement configuration.
type SettingsStore interface {
	LoadSettlementSettings(ctx context.Context) (SettlementSettings, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to the reward ledger, profiles, and settings.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

// TopLeaderTotals aggregates per-user totals over a date window, ordered by
// the chosen metric descending with user id as the deterministic tie-break.
func (s *Store) TopLeaderTotals(ctx context.Context, order OrderBy, from, to time.Time, limit int) ([]LeaderTotals, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var column string
	switch order {
	case OrderByBase:
		column = "base"
	case OrderByGen:
		column = "gen"
	case OrderByTotal:
		column = "total"
	default:
		return nil, fmt.Errorf("unsupported order column %q", order)
	}

	rows, queryErr := pool.Query(ctx, fmt.Sprintf(topLeadersSQL, column), from, to, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("top leader totals: %w", queryErr)
	}
	defer rows.Close()

	totals := make([]LeaderTotals, 0, limit)
	for rows.Next() {
		var (
			rec                     LeaderTotals
			baseStr, genStr, sumStr string
		)
		if err := rows.Scan(&rec.UserID, &rec.Username, &rec.WalletAddress, &baseStr, &genStr, &sumStr); err != nil {
			return nil, err
		}
		if rec.BaseReferral, err = decimal.NewFromString(baseStr); err != nil {
			return nil, fmt.Errorf("parse base referral total: %w", err)
		}
		if rec.BuilderGen, err = decimal.NewFromString(genStr); err != nil {
			return nil, fmt.Errorf("parse builder gen total: %w", err)
		}
		if rec.Total, err = decimal.NewFromString(sumStr); err != nil {
			return nil, fmt.Errorf("parse total: %w", err)
		}
		totals = append(totals, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return totals, nil
}

// BucketTotalsBetween aggregates reward totals per time bucket.
func (s *Store) BucketTotalsBetween(ctx context.Context, granularity BucketGranularity, from, to time.Time) ([]BucketTotals, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, bucketTotalsSQL, from, to, string(granularity))
	if queryErr != nil {
		return nil, fmt.Errorf("bucket totals: %w", queryErr)
	}
	defer rows.Close()

	buckets := make([]BucketTotals, 0)
	for rows.Next() {
		var (
			rec             BucketTotals
			baseStr, genStr string
		)
		if err := rows.Scan(&rec.BucketKey, &baseStr, &genStr); err != nil {
			return nil, err
		}
		if rec.BaseReferral, err = decimal.NewFromString(baseStr); err != nil {
			return nil, fmt.Errorf("parse base referral bucket: %w", err)
		}
		if rec.BuilderGen, err = decimal.NewFromString(genStr); err != nil {
			return nil, fmt.Errorf("parse builder gen bucket: %w", err)
		}
		buckets = append(buckets, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return buckets, nil
}

// ListUnsettled pages through pending settlement-eligible rows using a keyset
// cursor on id, so rows inserted mid-run cannot shift page boundaries.
func (s *Store) ListUnsettled(ctx context.Context, from, to time.Time, afterID int64, limit int, userID string) ([]LedgerRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listUnsettledSQL, from, to, afterID, limit, userID)
	if queryErr != nil {
		return nil, fmt.Errorf("list unsettled: %w", queryErr)
	}
	defer rows.Close()

	out := make([]LedgerRow, 0, limit)
	for rows.Next() {
		row, scanErr := scanLedgerRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// CountUnsettled counts pending settlement-eligible rows in a window.
func (s *Store) CountUnsettled(ctx context.Context, from, to time.Time, userID string) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countUnsettledSQL, from, to, userID).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count unsettled: %w", scanErr)
	}
	return count, nil
}

// MarkQueued transitions pending rows to queued before worker hand-off.
func (s *Store) MarkQueued(ctx context.Context, ids []int64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if _, execErr := pool.Exec(ctx, markQueuedSQL, ids); execErr != nil {
		return fmt.Errorf("mark queued: %w", execErr)
	}
	return nil
}

// MarkSettled finalises a row with its computed bonuses. The returned bool is
// false when the row was already settled by a prior run, which callers treat
// as a no-op rather than an error.
func (s *Store) MarkSettled(ctx context.Context, id int64, baseBonus, genBonus decimal.Decimal) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}
	cmdTag, execErr := pool.Exec(ctx, markSettledSQL, id, baseBonus.String(), genBonus.String())
	if execErr != nil {
		return false, fmt.Errorf("mark settled: %w", execErr)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// MarkFailed records a settlement failure. Failed rows stay eligible for
// manual reprocessing.
func (s *Store) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, markFailedSQL, id, errMsg); execErr != nil {
		return fmt.Errorf("mark failed: %w", execErr)
	}
	return nil
}

// ListRecentRecords lists the most recent ledger rows.
func (s *Store) ListRecentRecords(ctx context.Context, limit int) ([]RewardRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentRecordsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent records: %w", queryErr)
	}
	defer rows.Close()

	records := make([]RewardRecord, 0, limit)
	for rows.Next() {
		var (
			rec             RewardRecord
			baseStr, genStr string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.RecordType,
			&baseStr,
			&genStr,
			&rec.SourceTxID,
			&rec.SettlementStatus,
			&rec.SettlementError,
			&rec.SettledAt,
			&rec.CreatedAt,
			&rec.DeletedAt,
		); err != nil {
			return nil, err
		}
		if rec.BaseReferral, err = decimal.NewFromString(baseStr); err != nil {
			return nil, fmt.Errorf("parse base referral: %w", err)
		}
		if rec.BuilderGen, err = decimal.NewFromString(genStr); err != nil {
			return nil, fmt.Errorf("parse builder gen: %w", err)
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// ActiveRewardToken resolves the display token. A missing configuration row is
// not an error; the zero value is returned.
func (s *Store) ActiveRewardToken(ctx context.Context) (RewardToken, error) {
	pool, err := s.getPool()
	if err != nil {
		return RewardToken{}, err
	}

	var token RewardToken
	scanErr := pool.QueryRow(ctx, activeRewardTokenSQL).Scan(&token.Name, &token.Symbol)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return RewardToken{}, nil
	}
	if scanErr != nil {
		return RewardToken{}, fmt.Errorf("active reward token: %w", scanErr)
	}
	return token, nil
}

// LoadSettlementSettings loads the active bonus percentages.
func (s *Store) LoadSettlementSettings(ctx context.Context) (SettlementSettings, error) {
	pool, err := s.getPool()
	if err != nil {
		return SettlementSettings{}, err
	}

	var baseStr, genStr string
	if scanErr := pool.QueryRow(ctx, settlementSettingsSQL).Scan(&baseStr, &genStr); scanErr != nil {
		return SettlementSettings{}, fmt.Errorf("load settlement settings: %w", scanErr)
	}

	var settings SettlementSettings
	if settings.BaseReferralPct, err = decimal.NewFromString(baseStr); err != nil {
		return SettlementSettings{}, fmt.Errorf("parse base referral pct: %w", err)
	}
	if settings.BuilderGenPct, err = decimal.NewFromString(genStr); err != nil {
		return SettlementSettings{}, fmt.Errorf("parse builder gen pct: %w", err)
	}
	return settings, nil
}

func scanLedgerRow(rows pgx.Rows) (LedgerRow, error) {
	var (
		row             LedgerRow
		baseStr, genStr string
	)
	if err := rows.Scan(
		&row.ID,
		&row.UserID,
		&row.RecordType,
		&baseStr,
		&genStr,
		&row.SourceTxID,
		&row.SettlementStatus,
		&row.SettlementError,
		&row.SettledAt,
		&row.CreatedAt,
		&row.DeletedAt,
		&row.Username,
		&row.WalletAddress,
	); err != nil {
		return LedgerRow{}, err
	}

	var err error
	if row.BaseReferral, err = decimal.NewFromString(baseStr); err != nil {
		return LedgerRow{}, fmt.Errorf("parse base referral: %w", err)
	}
	if row.BuilderGen, err = decimal.NewFromString(genStr); err != nil {
		return LedgerRow{}, fmt.Errorf("parse builder gen: %w", err)
	}
	return row, nil
}
