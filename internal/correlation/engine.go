package correlation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/cryptoflow/analytics/internal/model"
	"github.com/cryptoflow/analytics/internal/returns"
)

// CloseSource provides candidate assets and their daily close series.
type CloseSource interface {
	ListRankedAssets(ctx context.Context, limit int) ([]string, error)
	ListDailyCloses(ctx context.Context, assetID string, since time.Time) ([]model.DailyClose, error)
}

// Sink receives computed correlation entries.
type Sink interface {
	UpsertCorrelation(ctx context.Context, e model.CorrelationEntry) error
}

// Config holds engine configuration.
type Config struct {
	TopAssets     int // Candidate set size, by market-cap rank
	MinDataPoints int // Minimum common dates (and return samples) per pair
	Concurrency   int // Max concurrent pair computations
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TopAssets:     15,
		MinDataPoints: 5,
		Concurrency:   8,
	}
}

// Result summarizes one engine pass for one window.
type Result struct {
	Upserted     int
	FailedWrites int
}

// Engine computes pairwise Pearson correlations.
type Engine struct {
	cfg    Config
	source CloseSource
	sink   Sink
	logger *slog.Logger

	now func() time.Time
}

// New creates an Engine.
func New(cfg Config, source CloseSource, sink Sink, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:    cfg,
		source: source,
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// Run computes and upserts correlations for every candidate pair over one
// trailing window. Read failures are fatal; write failures are counted.
func (e *Engine) Run(ctx context.Context, windowDays int) (Result, error) {
	start := e.now().UTC()
	since := start.AddDate(0, 0, -windowDays)

	assets, err := e.source.ListRankedAssets(ctx, e.cfg.TopAssets)
	if err != nil {
		return Result{}, fmt.Errorf("read ranked assets: %w", err)
	}
	if len(assets) == 0 {
		e.logger.Info("no ranked assets, skipping correlation pass", "window_days", windowDays)
		return Result{}, nil
	}

	closes := make(map[string][]model.DailyClose, len(assets))
	for _, asset := range assets {
		rows, err := e.source.ListDailyCloses(ctx, asset, since)
		if err != nil {
			return Result{}, fmt.Errorf("read closes for %s: %w", asset, err)
		}
		closes[asset] = returns.Normalize(rows)
	}

	computedAt := start

	// Semaphore for bounded concurrency across pairs.
	sem := make(chan struct{}, e.cfg.Concurrency)
	var wg sync.WaitGroup
	var upserted, failed atomic.Int64

	for i := range assets {
		for j := i; j < len(assets); j++ {
			a, b := assets[i], assets[j]

			wg.Add(1)
			go func(a, b string) {
				defer wg.Done()

				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					return
				}

				corr := e.pairCorrelation(a, b, closes[a], closes[b])

				entries := []model.CorrelationEntry{{
					AssetA:      a,
					AssetB:      b,
					WindowDays:  windowDays,
					Correlation: corr,
					ComputedAt:  computedAt,
				}}
				if a != b {
					entries = append(entries, model.CorrelationEntry{
						AssetA:      b,
						AssetB:      a,
						WindowDays:  windowDays,
						Correlation: corr,
						ComputedAt:  computedAt,
					})
				}

				for _, entry := range entries {
					if err := e.sink.UpsertCorrelation(ctx, entry); err != nil {
						e.logger.Warn("failed to upsert correlation",
							"asset_a", entry.AssetA,
							"asset_b", entry.AssetB,
							"window_days", windowDays,
							"err", err,
						)
						failed.Add(1)
						continue
					}
					upserted.Add(1)
				}
			}(a, b)
		}
	}

	wg.Wait()

	e.logger.Info("correlation pass complete",
		"window_days", windowDays,
		"assets", len(assets),
		"upserted", upserted.Load(),
		"failed", failed.Load(),
		"duration", time.Since(start),
	)

	return Result{
		Upserted:     int(upserted.Load()),
		FailedWrites: int(failed.Load()),
	}, nil
}

// pairCorrelation computes the rounded correlation for one pair, or nil when
// the pair has too little overlap or a degenerate return series.
func (e *Engine) pairCorrelation(a, b string, closesA, closesB []model.DailyClose) *float64 {
	if a == b {
		// Fixed by definition, no computation.
		return model.Float64Ptr(1.0)
	}

	pricesA, pricesB, common := returns.Align(closesA, closesB)
	if common < e.cfg.MinDataPoints {
		e.logger.Debug("insufficient overlap",
			"asset_a", a,
			"asset_b", b,
			"common_dates", common,
		)
		return nil
	}

	retA := returns.Simple(pricesA)
	retB := returns.Simple(pricesB)
	if len(retA) != len(retB) {
		// Differencing can drop steps on one side only; truncate to the
		// shorter sequence.
		n := min(len(retA), len(retB))
		retA, retB = retA[:n], retB[:n]
	}

	r, ok := pearson(retA, retB, e.cfg.MinDataPoints)
	if !ok {
		return nil
	}
	return model.Float64Ptr(returns.Round(r, 6))
}

// pearson computes the Pearson correlation of two equal-length return series.
// ok is false for short series, mismatched lengths, or zero variance on
// either side.
func pearson(x, y []float64, minPoints int) (float64, bool) {
	if len(x) != len(y) || len(x) < minPoints {
		return 0, false
	}

	sdX, err := stats.StandardDeviationPopulation(x)
	if err != nil {
		return 0, false
	}
	sdY, err := stats.StandardDeviationPopulation(y)
	if err != nil {
		return 0, false
	}
	if sdX == 0 || sdY == 0 {
		// Flat series: correlation is undefined, not zero.
		return 0, false
	}

	r, err := stats.Correlation(x, y)
	if err != nil {
		return 0, false
	}
	return r, true
}
