package rewards

import (
	"fmt"

	"github.com/shopspring/decimal"

	"supernode-rewards/internal/storage"
)

// Type is the closed set of bonus categories a caller can aggregate on. The
// empty token selects the sum of base-referral and builder-generation rewards.
type Type int

const (
	TypeAll Type = iota
	TypeBaseReferral
	TypeBuilderGen
)

const (
	tokenBaseReferral = "base-referral"
	tokenBuilderGen   = "builder-generational"
)

// ParseType maps a request token onto a Type. Unknown tokens are rejected
// before any query executes.
func ParseType(token string) (Type, error) {
	switch token {
	case "":
		return TypeAll, nil
	case tokenBaseReferral:
		return TypeBaseReferral, nil
	case tokenBuilderGen:
		return TypeBuilderGen, nil
	default:
		return TypeAll, fmt.Errorf("unsupported reward type %q", token)
	}
}

func (t Type) String() string {
	switch t {
	case TypeBaseReferral:
		return tokenBaseReferral
	case TypeBuilderGen:
		return tokenBuilderGen
	default:
		return "all"
	}
}

// Order maps the type onto the aggregation column leaderboard queries sort on.
func (t Type) Order() storage.OrderBy {
	switch t {
	case TypeBaseReferral:
		return storage.OrderByBase
	case TypeBuilderGen:
		return storage.OrderByGen
	default:
		return storage.OrderByTotal
	}
}

// Amount selects the metric value from a pair of category sums.
func (t Type) Amount(base, gen decimal.Decimal) decimal.Decimal {
	switch t {
	case TypeBaseReferral:
		return base
	case TypeBuilderGen:
		return gen
	default:
		return base.Add(gen)
	}
}
