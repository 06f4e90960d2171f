package rewards

import (
	"fmt"
	"time"

	"supernode-rewards/internal/storage"
)

// Filter is a relative date-range token for leaderboard aggregation.
type Filter string

const (
	FilterDay   Filter = "day"
	FilterWeek  Filter = "week"
	FilterMonth Filter = "month"
	FilterYear  Filter = "year"
)

// Timeline selects the charting window and bucket granularity.
type Timeline string

const (
	TimelineWeekly  Timeline = "weekly"
	TimelineMonthly Timeline = "monthly"
	TimelineYearly  Timeline = "yearly"
)

// ParseFilter validates a date-range token.
func ParseFilter(token string) (Filter, error) {
	switch Filter(token) {
	case FilterDay, FilterWeek, FilterMonth, FilterYear:
		return Filter(token), nil
	default:
		return "", fmt.Errorf("unsupported date filter %q", token)
	}
}

// ParseTimeline validates a charting timeline token.
func ParseTimeline(token string) (Timeline, error) {
	switch Timeline(token) {
	case TimelineWeekly, TimelineMonthly, TimelineYearly:
		return Timeline(token), nil
	default:
		return "", fmt.Errorf("unsupported timeline %q", token)
	}
}

// Window resolves a filter into absolute [from, to) instants. Day means the
// current calendar day; the remaining tokens are trailing ranges ending at the
// current instant.
func (f Filter) Window(now time.Time) (time.Time, time.Time, error) {
	now = now.UTC()
	switch f {
	case FilterDay:
		from := startOfDay(now)
		return from, from.AddDate(0, 0, 1), nil
	case FilterWeek:
		return now.AddDate(0, 0, -7), now, nil
	case FilterMonth:
		return now.AddDate(0, 0, -30), now, nil
	case FilterYear:
		return now.AddDate(0, 0, -365), now, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unsupported date filter %q", string(f))
	}
}

// Window resolves a timeline into the absolute [from, to) charting range.
// Weekly covers the trailing 7 days ending today, monthly the trailing 28
// days, yearly the trailing 12 calendar months.
func (t Timeline) Window(now time.Time) (time.Time, time.Time, error) {
	now = now.UTC()
	end := startOfDay(now).AddDate(0, 0, 1)
	switch t {
	case TimelineWeekly:
		return startOfDay(now).AddDate(0, 0, -6), end, nil
	case TimelineMonthly:
		return startOfDay(now).AddDate(0, 0, -27), end, nil
	case TimelineYearly:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first.AddDate(0, -11, 0), end, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unsupported timeline %q", string(t))
	}
}

// Granularity maps the timeline onto the bucket key format: day buckets for
// week/month views, month buckets for year views.
func (t Timeline) Granularity() storage.BucketGranularity {
	if t == TimelineYearly {
		return storage.BucketMonthly
	}
	return storage.BucketDaily
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
