package rewards

import (
	"testing"

	"github.com/shopspring/decimal"

	"supernode-rewards/internal/storage"
)

func TestParseType(t *testing.T) {
	cases := []struct {
		token string
		want  Type
	}{
		{"", TypeAll},
		{"base-referral", TypeBaseReferral},
		{"builder-generational", TypeBuilderGen},
	}
	for _, tc := range cases {
		got, err := ParseType(tc.token)
		if err != nil {
			t.Fatalf("ParseType(%q) should succeed: %v", tc.token, err)
		}
		if got != tc.want {
			t.Fatalf("ParseType(%q) = %v, want %v", tc.token, got, tc.want)
		}
	}

	if _, err := ParseType("staking"); err == nil {
		t.Fatal("unknown token should be rejected")
	}
}

func TestTypeOrder(t *testing.T) {
	if TypeAll.Order() != storage.OrderByTotal {
		t.Fatalf("all should order by total, got %v", TypeAll.Order())
	}
	if TypeBaseReferral.Order() != storage.OrderByBase {
		t.Fatalf("base-referral should order by base, got %v", TypeBaseReferral.Order())
	}
	if TypeBuilderGen.Order() != storage.OrderByGen {
		t.Fatalf("builder-generational should order by gen, got %v", TypeBuilderGen.Order())
	}
}

func TestTypeAmountSummation(t *testing.T) {
	rows := []struct {
		base decimal.Decimal
		gen  decimal.Decimal
	}{
		{decimal.NewFromInt(10), decimal.NewFromInt(5)},
		{decimal.NewFromInt(0), decimal.NewFromInt(20)},
	}

	all := decimal.Zero
	base := decimal.Zero
	for _, row := range rows {
		all = all.Add(TypeAll.Amount(row.base, row.gen))
		base = base.Add(TypeBaseReferral.Amount(row.base, row.gen))
	}

	if !all.Equal(decimal.NewFromInt(35)) {
		t.Fatalf("empty type should sum both categories, got %s", all)
	}
	if !base.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("base-referral should sum only the base category, got %s", base)
	}
}
