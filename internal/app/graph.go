package app

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"

	chart "github.com/wcharczuk/go-chart/v2"

	"supernode-rewards/internal/rewards"
)

// Graph renders the cumulative reward series for a timeline as CSV and/or PNG.
func (a *App) Graph(ctx context.Context, opts GraphOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	typ, err := rewards.ParseType(opts.Type)
	if err != nil {
		return err
	}
	timeline, err := rewards.ParseTimeline(opts.Timeline)
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	c, closeCache := a.openCache()
	if closeCache != nil {
		defer closeCache()
	}

	aggregator := a.newAggregator(store, c)

	points, err := aggregator.ChartSeries(ctx, timeline, typ)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		a.Logger.Info().Msg("no reward data for the requested timeline")
		return nil
	}

	if opts.CSVPath != "" {
		if err := writeSeriesCSV(opts.CSVPath, points); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeSeriesPNG(opts.PNGPath, points, timeline); err != nil {
			return err
		}
	}

	return nil
}

func writeSeriesCSV(path string, points []rewards.Point) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"bucket", "cumulative_reward"}); err != nil {
		return err
	}
	for _, point := range points {
		if err := writer.Write([]string{point.X, point.Y.String()}); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeSeriesPNG(path string, points []rewards.Point, timeline rewards.Timeline) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	bars := make([]chart.Value, len(points))
	for i, point := range points {
		bars[i] = chart.Value{
			Label: point.X,
			Value: point.Y.InexactFloat64(),
		}
	}

	graph := chart.BarChart{
		Title:    "Cumulative rewards (" + string(timeline) + ")",
		Width:    1280,
		Height:   720,
		BarWidth: 40,
		Bars:     bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
