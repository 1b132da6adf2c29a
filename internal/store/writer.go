package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cryptoflow/analytics/internal/model"
)

// UpsertDailyBar inserts or overwrites the bar keyed by (coin_id, date).
func (s *PG) UpsertDailyBar(ctx context.Context, bar model.DailyBar) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO fact_daily_ohlcv (coin_id, date, open_price, high_price, low_price, close_price, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (coin_id, date) DO UPDATE SET
			open_price  = EXCLUDED.open_price,
			high_price  = EXCLUDED.high_price,
			low_price   = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume      = EXCLUDED.volume
	`, bar.AssetID, bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	if err != nil {
		return fmt.Errorf("upsert daily bar %s/%s: %w", bar.AssetID, bar.Date.Format("2006-01-02"), err)
	}
	return nil
}

// UpsertCorrelation inserts or overwrites the entry keyed by
// (coin_a_id, coin_b_id, period_days).
func (s *PG) UpsertCorrelation(ctx context.Context, e model.CorrelationEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO analytics_correlation (coin_a_id, coin_b_id, period_days, correlation, computed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (coin_a_id, coin_b_id, period_days) DO UPDATE SET
			correlation = EXCLUDED.correlation,
			computed_at = EXCLUDED.computed_at
	`, e.AssetA, e.AssetB, e.WindowDays, e.Correlation, e.ComputedAt)
	if err != nil {
		return fmt.Errorf("upsert correlation %s/%s/%dd: %w", e.AssetA, e.AssetB, e.WindowDays, err)
	}
	return nil
}

// UpsertRiskMetrics inserts or overwrites the row keyed by (coin_id, period_days).
func (s *PG) UpsertRiskMetrics(ctx context.Context, m model.RiskMetrics) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO analytics_volatility (coin_id, period_days, volatility, max_drawdown, sharpe_ratio, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (coin_id, period_days) DO UPDATE SET
			volatility   = EXCLUDED.volatility,
			max_drawdown = EXCLUDED.max_drawdown,
			sharpe_ratio = EXCLUDED.sharpe_ratio,
			computed_at  = EXCLUDED.computed_at
	`, m.AssetID, m.WindowDays, m.Volatility, m.MaxDrawdown, m.SharpeRatio, m.ComputedAt)
	if err != nil {
		return fmt.Errorf("upsert risk metrics %s/%dd: %w", m.AssetID, m.WindowDays, err)
	}
	return nil
}

// RecordJobRun appends one row to the pipeline run log. Every invocation
// leaves a record regardless of outcome.
func (s *PG) RecordJobRun(ctx context.Context, res model.JobResult) error {
	var errMsg *string
	if res.Error != "" {
		errMsg = &res.Error
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pipeline_runs (run_id, dag_id, status, start_time, end_time, records_processed, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, res.JobID, res.DagID, string(res.Status), res.StartTime, res.EndTime, res.RecordsProcessed, errMsg)
	if err != nil {
		return fmt.Errorf("record job run: %w", err)
	}
	return nil
}

// EnsureTimeDim fills dim_time with calendar rows for every date in
// [from, to], skipping dates that already exist.
func (s *PG) EnsureTimeDim(ctx context.Context, from, to time.Time) error {
	for date := model.DateOf(from); !date.After(model.DateOf(to)); date = date.AddDate(0, 0, 1) {
		row := newTimeDimRow(date)
		_, err := s.pool.Exec(ctx, `
			INSERT INTO dim_time (date, year, quarter, month, week, day_of_week, day_of_month, is_weekend)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (date) DO NOTHING
		`, row.Date, row.Year, row.Quarter, row.Month, row.Week, row.DayOfWeek, row.DayOfMonth, row.IsWeekend)
		if err != nil {
			return fmt.Errorf("ensure dim_time %s: %w", date.Format("2006-01-02"), err)
		}
	}
	return nil
}
