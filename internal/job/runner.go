package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cryptoflow/analytics/internal/bars"
	"github.com/cryptoflow/analytics/internal/config"
	"github.com/cryptoflow/analytics/internal/correlation"
	"github.com/cryptoflow/analytics/internal/model"
	"github.com/cryptoflow/analytics/internal/risk"
)

// DagID identifies this job in the pipeline_runs log.
const DagID = "compute_analytics"

// maxErrorLen bounds the stored error message (pipeline_runs column limit).
const maxErrorLen = 500

// ErrNoWindows is returned when Run is invoked with an empty window set.
var ErrNoWindows = errors.New("no analytics windows configured")

// Store is the warehouse surface the runner needs: the three reads consumed
// by the engines, the idempotent writes, and the run log.
type Store interface {
	ListRawSnapshots(ctx context.Context, assetID string, since time.Time) ([]model.PricePoint, error)
	ListDailyCloses(ctx context.Context, assetID string, since time.Time) ([]model.DailyClose, error)
	ListRankedAssets(ctx context.Context, limit int) ([]string, error)

	UpsertDailyBar(ctx context.Context, bar model.DailyBar) error
	UpsertCorrelation(ctx context.Context, e model.CorrelationEntry) error
	UpsertRiskMetrics(ctx context.Context, m model.RiskMetrics) error
	EnsureTimeDim(ctx context.Context, from, to time.Time) error

	RecordJobRun(ctx context.Context, res model.JobResult) error
}

// Runner executes one analytics invocation end to end.
type Runner struct {
	store  Store
	logger *slog.Logger

	aggregator *bars.Aggregator
	corrEngine *correlation.Engine
	riskEngine *risk.Engine

	now func() time.Time
}

// New wires a Runner from configuration.
func New(cfg config.JobConfig, store Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:  store,
		logger: logger,
		aggregator: bars.New(bars.Config{
			LookbackDays: cfg.LookbackDays,
			Concurrency:  cfg.Concurrency,
		}, store, store, logger),
		corrEngine: correlation.New(correlation.Config{
			TopAssets:     cfg.TopAssets,
			MinDataPoints: cfg.MinDataPoints,
			Concurrency:   cfg.Concurrency,
		}, store, store, logger),
		riskEngine: risk.New(risk.Config{
			MinDataPoints: cfg.MinDataPoints,
			Concurrency:   cfg.Concurrency,
		}, store, store, logger),
		now: time.Now,
	}
}

// Run executes one invocation over the given window set and returns the
// structured outcome. It never panics on bad input: an invalid window set
// fails the run before any warehouse I/O.
func (r *Runner) Run(ctx context.Context, windows []int) model.JobResult {
	res := model.JobResult{
		JobID:     uuid.New(),
		DagID:     DagID,
		StartTime: r.now().UTC(),
	}

	if err := validateWindows(windows); err != nil {
		return r.finish(ctx, res, 0, err)
	}

	r.logger.Info("analytics run starting",
		"job_id", res.JobID,
		"windows", windows,
	)

	// Phase 1: bars. Correlation and risk read daily closes from the bars,
	// so aggregation must complete first.
	aggRes, err := r.aggregator.Run(ctx)
	if err != nil {
		return r.finish(ctx, res, 0, err)
	}

	var records, failedWrites atomic.Int64
	records.Add(int64(aggRes.Upserted))
	failedWrites.Add(int64(aggRes.FailedWrites))

	// Phase 2: the two engines are independent; run them concurrently.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for _, w := range windows {
			cr, err := r.corrEngine.Run(gctx, w)
			if err != nil {
				return err
			}
			records.Add(int64(cr.Upserted))
			failedWrites.Add(int64(cr.FailedWrites))
		}
		return nil
	})

	g.Go(func() error {
		for _, w := range windows {
			rr, err := r.riskEngine.Run(gctx, w)
			if err != nil {
				return err
			}
			records.Add(int64(rr.Upserted))
			failedWrites.Add(int64(rr.FailedWrites))
		}
		return nil
	})

	err = g.Wait()
	if err == nil && failedWrites.Load() > 0 {
		err = fmt.Errorf("%d row writes failed", failedWrites.Load())
	}

	return r.finish(ctx, res, int(records.Load()), err)
}

// finish stamps the result, records it, and logs the outcome. Partial writes
// stay in place: recompute is idempotent, so the fix for a failed run is the
// next run.
func (r *Runner) finish(ctx context.Context, res model.JobResult, records int, err error) model.JobResult {
	res.EndTime = r.now().UTC()
	res.RecordsProcessed = records
	if err != nil {
		res.Status = model.JobFailed
		res.Error = truncate(err.Error(), maxErrorLen)
	} else {
		res.Status = model.JobSuccess
	}

	if recErr := r.store.RecordJobRun(ctx, res); recErr != nil {
		r.logger.Error("failed to record job run", "err", recErr)
	}

	r.logger.Info("analytics run finished",
		"job_id", res.JobID,
		"status", res.Status,
		"records", res.RecordsProcessed,
		"duration", res.EndTime.Sub(res.StartTime),
		"error", res.Error,
	)
	return res
}

func validateWindows(windows []int) error {
	if len(windows) == 0 {
		return ErrNoWindows
	}
	for _, w := range windows {
		if w < 1 {
			return fmt.Errorf("invalid analytics window %d: must be >= 1 day", w)
		}
	}
	return nil
}

// truncate limits s to n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
