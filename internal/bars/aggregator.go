package bars

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/cryptoflow/analytics/internal/model"
)

// SnapshotSource provides raw intraday snapshots.
type SnapshotSource interface {
	// ListRawSnapshots returns snapshots with timestamp >= since ordered by
	// timestamp; empty assetID selects all assets.
	ListRawSnapshots(ctx context.Context, assetID string, since time.Time) ([]model.PricePoint, error)
}

// BarSink receives aggregated bars.
type BarSink interface {
	UpsertDailyBar(ctx context.Context, bar model.DailyBar) error
	EnsureTimeDim(ctx context.Context, from, to time.Time) error
}

// Config holds aggregator configuration.
type Config struct {
	LookbackDays int // Trailing snapshot scan, independent of analytics windows
	Concurrency  int // Max concurrent bar upserts
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		LookbackDays: 90,
		Concurrency:  8,
	}
}

// Result summarizes one aggregation pass.
type Result struct {
	Upserted     int // Bars successfully written
	FailedWrites int // Bars whose upsert failed (siblings unaffected)
}

// Aggregator collapses intraday snapshots into daily OHLCV bars.
type Aggregator struct {
	cfg    Config
	source SnapshotSource
	sink   BarSink
	logger *slog.Logger

	now func() time.Time
}

// New creates an Aggregator.
func New(cfg Config, source SnapshotSource, sink BarSink, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		cfg:    cfg,
		source: source,
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// partitionKey identifies one (asset, UTC date) bucket.
type partitionKey struct {
	assetID string
	date    time.Time
}

// Run executes one aggregation pass. A snapshot read failure is fatal and
// returned; individual upsert failures are logged, counted, and do not block
// sibling bars.
func (a *Aggregator) Run(ctx context.Context) (Result, error) {
	start := a.now().UTC()
	since := start.AddDate(0, 0, -a.cfg.LookbackDays)
	today := model.DateOf(start)

	points, err := a.source.ListRawSnapshots(ctx, "", since)
	if err != nil {
		return Result{}, fmt.Errorf("read snapshots: %w", err)
	}

	partitions := partition(points, today)

	// Deterministic processing order.
	keys := make([]partitionKey, 0, len(partitions))
	for k := range partitions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].assetID != keys[j].assetID {
			return keys[i].assetID < keys[j].assetID
		}
		return keys[i].date.Before(keys[j].date)
	})

	// Semaphore for bounded concurrency.
	sem := make(chan struct{}, a.cfg.Concurrency)
	var wg sync.WaitGroup
	var upserted, failed atomic.Int64

	for _, key := range keys {
		bar := buildBar(key, partitions[key])

		wg.Add(1)
		go func(bar model.DailyBar) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			if err := a.sink.UpsertDailyBar(ctx, bar); err != nil {
				a.logger.Warn("failed to upsert bar",
					"asset", bar.AssetID,
					"date", bar.Date.Format("2006-01-02"),
					"err", err,
				)
				failed.Add(1)
				return
			}
			upserted.Add(1)
		}(bar)
	}

	wg.Wait()

	if err := a.sink.EnsureTimeDim(ctx, since, start); err != nil {
		a.logger.Warn("failed to fill time dimension", "err", err)
	}

	a.logger.Info("aggregation pass complete",
		"partitions", len(partitions),
		"upserted", upserted.Load(),
		"failed", failed.Load(),
		"duration", time.Since(start),
	)

	return Result{
		Upserted:     int(upserted.Load()),
		FailedWrites: int(failed.Load()),
	}, nil
}

// partition buckets valid-price snapshots by (asset, UTC date), dropping the
// running day. Input order within a bucket is preserved.
func partition(points []model.PricePoint, today time.Time) map[partitionKey][]model.PricePoint {
	out := make(map[partitionKey][]model.PricePoint)
	for _, p := range points {
		if !p.HasValidPrice() {
			continue
		}
		date := model.DateOf(p.Timestamp)
		if !date.Before(today) {
			continue
		}
		key := partitionKey{assetID: p.AssetID, date: date}
		out[key] = append(out[key], p)
	}
	return out
}

// buildBar collapses one partition into a bar. The partition is non-empty and
// contains only valid-price points.
//
// open = price at the earliest timestamp, close = price at the latest
// timestamp (later input order wins ties), high/low = extremes, volume =
// arithmetic mean of the non-nil snapshot volumes.
func buildBar(key partitionKey, points []model.PricePoint) model.DailyBar {
	first := points[0]
	last := points[0]
	high := *points[0].Price
	low := *points[0].Price

	var volumes []float64

	for _, p := range points {
		if p.Timestamp.Before(first.Timestamp) {
			first = p
		}
		if !p.Timestamp.Before(last.Timestamp) {
			last = p
		}
		if *p.Price > high {
			high = *p.Price
		}
		if *p.Price < low {
			low = *p.Price
		}
		if p.Volume != nil {
			volumes = append(volumes, *p.Volume)
		}
	}

	bar := model.DailyBar{
		AssetID: key.assetID,
		Date:    key.date,
		Open:    model.Float64Ptr(*first.Price),
		High:    model.Float64Ptr(high),
		Low:     model.Float64Ptr(low),
		Close:   model.Float64Ptr(*last.Price),
	}
	if len(volumes) > 0 {
		mean, err := stats.Mean(volumes)
		if err == nil {
			bar.Volume = model.Float64Ptr(mean)
		}
	}
	return bar
}
