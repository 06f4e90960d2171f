package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settlement lifecycle of a ledger row. Rows enter pending when created by the
// upstream reward generation step, move to queued when handed to a worker, and
// finish in success or failed. Failed rows stay eligible for manual reruns.
const (
	StatusPending = "pending"
	StatusQueued  = "queued"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// RecordTypeReward marks rows eligible for daily settlement.
const RecordTypeReward = "reward"

// RewardRecord is one reward-generating event for one user on one day.
// Rows are never hard-deleted; a non-nil DeletedAt excludes the row from all
// aggregation.
type RewardRecord struct {
	ID               int64
	UserID           string
	RecordType       string
	BaseReferral     decimal.Decimal
	BuilderGen       decimal.Decimal
	SourceTxID       *string
	SettlementStatus string
	SettlementError  *string
	SettledAt        *time.Time
	CreatedAt        time.Time
	DeletedAt        *time.Time
}

// LedgerRow joins a reward record with the owning user's profile for
// settlement jobs.
type LedgerRow struct {
	RewardRecord
	Username      string
	WalletAddress string
}

// LeaderTotals is one per-user aggregation row over a date window.
type LeaderTotals struct {
	UserID        string
	Username      string
	WalletAddress string
	BaseReferral  decimal.Decimal
	BuilderGen    decimal.Decimal
	Total         decimal.Decimal
}

// BucketTotals is one per-time-bucket aggregation row. BucketKey is day
// formatted for week/month views and month formatted for year views.
type BucketTotals struct {
	BucketKey    string
	BaseReferral decimal.Decimal
	BuilderGen   decimal.Decimal
}

// RewardToken is the currently active reward-token display configuration.
type RewardToken struct {
	Name   string
	Symbol string
}

// SettlementSettings holds the bonus percentages loaded once per settlement
// run and passed by value to every job.
type SettlementSettings struct {
	BaseReferralPct decimal.Decimal
	BuilderGenPct   decimal.Decimal
}
