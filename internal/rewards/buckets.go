package rewards

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"supernode-rewards/internal/cache"
)

// Point is one chart point: a bucket label and the cumulative value at it.
type Point struct {
	X string          `json:"x"`
	Y decimal.Decimal `json:"y"`
}

// ChartSeries converts the sparse bucket totals for a timeline into the dense
// cumulative series served to chart clients. The shaped series is cached under
// the (type, timeline) key before returning.
func (a *Aggregator) ChartSeries(ctx context.Context, timeline Timeline, typ Type) ([]Point, error) {
	key := cache.Key(cache.NSRewardGraph, typ.String(), string(timeline))
	if cached, ok := a.cacheGet(ctx, key); ok {
		var points []Point
		if err := json.Unmarshal([]byte(cached), &points); err == nil {
			return points, nil
		}
		a.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	}

	buckets, err := a.BucketTotals(ctx, typ, timeline)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var points []Point
	switch timeline {
	case TimelineWeekly:
		points = WeeklySeries(buckets, now)
	case TimelineMonthly:
		points = MonthlySeries(buckets, now)
	case TimelineYearly:
		points = YearlySeries(buckets, now)
	}

	a.cacheSet(ctx, key, points)
	return points, nil
}

// WeeklySeries walks the trailing 7 days forward, accumulating a running sum
// per day. Points whose cumulative value is exactly zero are dropped, so a
// week with no rewards yields an empty series.
func WeeklySeries(buckets map[string]decimal.Decimal, now time.Time) []Point {
	points := make([]Point, 0, 7)
	cum := decimal.Zero
	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		cum = cum.Add(buckets[day.Format("2006-01-02")])
		if cum.IsZero() {
			continue
		}
		points = append(points, Point{X: day.Format("Mon"), Y: cum})
	}
	return points
}

// MonthlySeries covers the trailing 28 days, walking backward from today and
// keeping every other step, then reversing into chronological order. Each kept
// point carries the forward cumulative sum through its day, so the output is a
// 14-point non-decreasing series ending at the window total. The alternation
// and reversal are a downsampling compatibility contract; callers depend on
// this exact interleaving.
func MonthlySeries(buckets map[string]decimal.Decimal, now time.Time) []Point {
	total := decimal.Zero
	for i := 0; i < 28; i++ {
		total = total.Add(buckets[now.AddDate(0, 0, -i).Format("2006-01-02")])
	}

	kept := make([]Point, 0, 14)
	remaining := total
	for i := 0; i < 28; i++ {
		day := now.AddDate(0, 0, -i)
		if i%2 == 0 {
			kept = append(kept, Point{X: day.Format("02"), Y: remaining})
		}
		remaining = remaining.Sub(buckets[day.Format("2006-01-02")])
	}

	for left, right := 0, len(kept)-1; left < right; left, right = left+1, right-1 {
		kept[left], kept[right] = kept[right], kept[left]
	}
	return kept
}

// YearlySeries walks the trailing 12 months forward with a cumulative sum
// across the whole span; the sum never resets, so months without data repeat
// the running total.
func YearlySeries(buckets map[string]decimal.Decimal, now time.Time) []Point {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	points := make([]Point, 0, 12)
	cum := decimal.Zero
	for i := 11; i >= 0; i-- {
		month := first.AddDate(0, -i, 0)
		cum = cum.Add(buckets[month.Format("2006-01")])
		points = append(points, Point{X: month.Format("Jan"), Y: cum})
	}
	return points
}
