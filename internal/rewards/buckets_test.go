package rewards

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestWeeklySeriesAllZeroIsEmpty(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	points := WeeklySeries(map[string]decimal.Decimal{}, now)
	if len(points) != 0 {
		t.Fatalf("a week of zero rewards should yield an empty series, got %d points", len(points))
	}
}

func TestWeeklySeriesCumulative(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	buckets := map[string]decimal.Decimal{
		"2026-08-27": decimal.NewFromInt(3),
		"2026-08-29": decimal.NewFromInt(2),
		"2026-08-31": decimal.NewFromInt(5),
	}

	points := WeeklySeries(buckets, now)
	// The two leading zero-cumulative days are dropped; every later day keeps
	// the running sum even where its own bucket is empty.
	if len(points) != 5 {
		t.Fatalf("expected 5 points, got %d", len(points))
	}
	wantY := []int64{3, 3, 5, 5, 10}
	wantX := []string{"Thu", "Fri", "Sat", "Sun", "Mon"}
	for i, point := range points {
		if !point.Y.Equal(decimal.NewFromInt(wantY[i])) {
			t.Fatalf("point %d: expected cumulative %d, got %s", i, wantY[i], point.Y)
		}
		if point.X != wantX[i] {
			t.Fatalf("point %d: expected label %s, got %s", i, wantX[i], point.X)
		}
	}
}

func TestMonthlySeriesHalving(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	v := decimal.NewFromInt(7)

	buckets := make(map[string]decimal.Decimal, 28)
	for i := 0; i < 28; i++ {
		buckets[now.AddDate(0, 0, -i).Format("2006-01-02")] = v
	}

	points := MonthlySeries(buckets, now)
	if len(points) != 14 {
		t.Fatalf("expected 14 points from 28 days, got %d", len(points))
	}

	// Chronological order, non-decreasing, ending at the window total.
	prev := decimal.Zero
	for i, point := range points {
		if point.Y.LessThan(prev) {
			t.Fatalf("point %d: cumulative decreased from %s to %s", i, prev, point.Y)
		}
		prev = point.Y
	}
	if !points[len(points)-1].Y.Equal(v.Mul(decimal.NewFromInt(28))) {
		t.Fatalf("final point should hold the 28-day total, got %s", points[len(points)-1].Y)
	}
	if points[0].X != "05" {
		t.Fatalf("first label should be the oldest kept day, got %s", points[0].X)
	}
	if points[len(points)-1].X != "31" {
		t.Fatalf("last label should be today, got %s", points[len(points)-1].X)
	}

	// Golden values for the alternating backward walk.
	for i, point := range points {
		want := v.Mul(decimal.NewFromInt(int64(2 * (i + 1))))
		if !point.Y.Equal(want) {
			t.Fatalf("point %d: expected %s, got %s", i, want, point.Y)
		}
	}
}

func TestYearlySeriesKeepsAccumulating(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	buckets := map[string]decimal.Decimal{
		"2025-10": decimal.NewFromInt(4),
		"2026-02": decimal.NewFromInt(6),
	}

	points := YearlySeries(buckets, now)
	if len(points) != 12 {
		t.Fatalf("expected 12 monthly points, got %d", len(points))
	}
	if points[0].X != "Sep" || points[11].X != "Aug" {
		t.Fatalf("unexpected label range %s..%s", points[0].X, points[11].X)
	}

	// The cumulative sum never resets across empty months.
	if !points[0].Y.Equal(decimal.Zero) {
		t.Fatalf("first month has no data, expected 0, got %s", points[0].Y)
	}
	if !points[1].Y.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("October should add 4, got %s", points[1].Y)
	}
	if !points[4].Y.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("empty January should keep the running total, got %s", points[4].Y)
	}
	if !points[11].Y.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("final month should hold the span total, got %s", points[11].Y)
	}
}
