package risk

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/cryptoflow/analytics/internal/model"
	"github.com/cryptoflow/analytics/internal/returns"
)

// annualizationFactor converts daily Sharpe to annual assuming daily sampling.
var annualizationFactor = math.Sqrt(365)

// sharpeClampLimit bounds degenerate near-zero-variance ratios.
const sharpeClampLimit = 99.0

// CloseSource provides ranked assets and their daily close series.
type CloseSource interface {
	ListRankedAssets(ctx context.Context, limit int) ([]string, error)
	ListDailyCloses(ctx context.Context, assetID string, since time.Time) ([]model.DailyClose, error)
}

// Sink receives computed risk rows.
type Sink interface {
	UpsertRiskMetrics(ctx context.Context, m model.RiskMetrics) error
}

// Config holds engine configuration.
type Config struct {
	MinDataPoints int // Minimum daily closes per asset/window
	Concurrency   int // Max concurrent asset computations
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinDataPoints: 5,
		Concurrency:   8,
	}
}

// Result summarizes one engine pass for one window.
type Result struct {
	Upserted     int
	FailedWrites int
	Skipped      int // Assets below the data threshold
}

// Engine computes per-asset risk metrics.
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

// Run computes and upserts risk metrics for every ranked asset over one
// trailing window. Read failures are fatal; write failures are counted.
func (e *Engine) Run(ctx context.Context, windowDays int) (Result, error) {
	start := e.now().UTC()
	since := start.AddDate(0, 0, -windowDays)

	// Risk rows cover every ranked asset, not just the correlation top-N.
	assets, err := e.source.ListRankedAssets(ctx, 0)
	if err != nil {
		return Result{}, fmt.Errorf("read ranked assets: %w", err)
	}

	computedAt := start

	// Semaphore for bounded concurrency across assets.
	sem := make(chan struct{}, e.cfg.Concurrency)
	var wg sync.WaitGroup
	var upserted, failed, skipped atomic.Int64
	var readErrMu sync.Mutex
	var readErr error

	for _, asset := range assets {
		wg.Add(1)
		go func(asset string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			rows, err := e.source.ListDailyCloses(ctx, asset, since)
			if err != nil {
				readErrMu.Lock()
				if readErr == nil {
					readErr = fmt.Errorf("read closes for %s: %w", asset, err)
				}
				readErrMu.Unlock()
				return
			}

			metrics, ok := e.compute(asset, windowDays, rows, computedAt)
			if !ok {
				skipped.Add(1)
				return
			}

			if err := e.sink.UpsertRiskMetrics(ctx, metrics); err != nil {
				e.logger.Warn("failed to upsert risk metrics",
					"asset", asset,
					"window_days", windowDays,
					"err", err,
				)
				failed.Add(1)
				return
			}
			upserted.Add(1)
		}(asset)
	}

	wg.Wait()

	if readErr != nil {
		return Result{}, readErr
	}

	e.logger.Info("risk pass complete",
		"window_days", windowDays,
		"assets", len(assets),
		"upserted", upserted.Load(),
		"skipped", skipped.Load(),
		"failed", failed.Load(),
		"duration", time.Since(start),
	)

	return Result{
		Upserted:     int(upserted.Load()),
		FailedWrites: int(failed.Load()),
		Skipped:      int(skipped.Load()),
	}, nil
}

// compute derives the risk row for one asset. ok is false when the asset has
// too few closes or no computable returns; the caller then leaves any
// previously stored row untouched.
func (e *Engine) compute(asset string, windowDays int, rows []model.DailyClose, computedAt time.Time) (model.RiskMetrics, bool) {
	series := returns.Normalize(rows)
	if len(series) < e.cfg.MinDataPoints {
		e.logger.Debug("insufficient close history",
			"asset", asset,
			"window_days", windowDays,
			"closes", len(series),
		)
		return model.RiskMetrics{}, false
	}

	prices := returns.Prices(series)
	rets := returns.Simple(prices)
	if len(rets) == 0 {
		e.logger.Debug("no computable returns", "asset", asset, "window_days", windowDays)
		return model.RiskMetrics{}, false
	}

	sd, err := stats.StandardDeviationPopulation(rets)
	if err != nil {
		return model.RiskMetrics{}, false
	}
	mean, err := stats.Mean(rets)
	if err != nil {
		return model.RiskMetrics{}, false
	}

	sharpe := 0.0
	if sd > 0 {
		sharpe = clamp(mean/sd*annualizationFactor, -sharpeClampLimit, sharpeClampLimit)
	}

	return model.RiskMetrics{
		AssetID:     asset,
		WindowDays:  windowDays,
		Volatility:  returns.Round(sd*100, 6),
		MaxDrawdown: returns.Round(maxDrawdown(prices)*100, 4),
		SharpeRatio: returns.Round(sharpe, 4),
		ComputedAt:  computedAt,
	}, true
}

// maxDrawdown walks the chronological price sequence tracking the running
// peak and returns the largest fractional decline from that peak. The trough
// must come after the peak, so this is not simply (max-min)/max.
func maxDrawdown(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}

	peak := prices[0]
	maxDD := 0.0
	for _, p := range prices {
		if p > peak {
			peak = p
		}
		if peak > 0 {
			if dd := (peak - p) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
