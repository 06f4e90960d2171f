package rewards

import (
	"testing"
	"time"

	"supernode-rewards/internal/storage"
)

func TestFilterWindowDay(t *testing.T) {
	now := time.Date(2026, 8, 31, 15, 30, 0, 0, time.UTC)
	from, to, err := FilterDay.Window(now)
	if err != nil {
		t.Fatalf("day window should resolve: %v", err)
	}
	if !from.Equal(time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day window should start at midnight, got %s", from)
	}
	if !to.Equal(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day window should end at next midnight, got %s", to)
	}
}

func TestFilterWindowTrailing(t *testing.T) {
	now := time.Date(2026, 8, 31, 15, 30, 0, 0, time.UTC)
	cases := []struct {
		filter Filter
		days   int
	}{
		{FilterWeek, 7},
		{FilterMonth, 30},
		{FilterYear, 365},
	}
	for _, tc := range cases {
		from, to, err := tc.filter.Window(now)
		if err != nil {
			t.Fatalf("%s window should resolve: %v", tc.filter, err)
		}
		if !to.Equal(now) {
			t.Fatalf("%s window should end at the current instant, got %s", tc.filter, to)
		}
		if !from.Equal(now.AddDate(0, 0, -tc.days)) {
			t.Fatalf("%s window should trail %d days, got %s", tc.filter, tc.days, from)
		}
	}
}

func TestParseFilterRejectsUnknown(t *testing.T) {
	if _, err := ParseFilter("fortnight"); err == nil {
		t.Fatal("unknown filter token should be rejected")
	}
	if _, err := ParseFilter(""); err == nil {
		t.Fatal("empty filter token should be rejected")
	}
}

func TestTimelineGranularity(t *testing.T) {
	if TimelineWeekly.Granularity() != storage.BucketDaily {
		t.Fatal("weekly should use day buckets")
	}
	if TimelineMonthly.Granularity() != storage.BucketDaily {
		t.Fatal("monthly should use day buckets")
	}
	if TimelineYearly.Granularity() != storage.BucketMonthly {
		t.Fatal("yearly should use month buckets")
	}
}

func TestTimelineWindowYearly(t *testing.T) {
	now := time.Date(2026, 8, 31, 15, 30, 0, 0, time.UTC)
	from, to, err := TimelineYearly.Window(now)
	if err != nil {
		t.Fatalf("yearly window should resolve: %v", err)
	}
	if !from.Equal(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("yearly window should start 11 months back on the first, got %s", from)
	}
	if !to.Equal(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("yearly window should end after today, got %s", to)
	}
}
