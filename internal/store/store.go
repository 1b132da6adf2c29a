package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cryptoflow/analytics/internal/model"
)

// PG is the Postgres-backed warehouse store.
type PG struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a store on top of an established connection pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *PG {
	if logger == nil {
		logger = slog.Default()
	}
	return &PG{pool: pool, logger: logger}
}

// ListRawSnapshots returns intraday snapshots with timestamp >= since,
// ordered by timestamp ascending. An empty assetID selects all assets.
func (s *PG) ListRawSnapshots(ctx context.Context, assetID string, since time.Time) ([]model.PricePoint, error) {
	query := `
		SELECT coin_id, timestamp, price_usd, total_volume
		FROM fact_market_data
		WHERE timestamp >= $1
	`
	args := []any{since}
	if assetID != "" {
		query += ` AND coin_id = $2`
		args = append(args, assetID)
	}
	query += ` ORDER BY timestamp`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list raw snapshots: %w", err)
	}
	defer rows.Close()

	var out []model.PricePoint
	for rows.Next() {
		var p model.PricePoint
		if err := rows.Scan(&p.AssetID, &p.Timestamp, &p.Price, &p.Volume); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list raw snapshots: %w", err)
	}
	return out, nil
}

// ListDailyCloses returns one (date, close) row per bar of the asset with
// date >= since, ordered by date ascending. Bars without a close are skipped.
func (s *PG) ListDailyCloses(ctx context.Context, assetID string, since time.Time) ([]model.DailyClose, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date, close_price
		FROM fact_daily_ohlcv
		WHERE coin_id = $1
		  AND date >= $2
		  AND close_price IS NOT NULL
		ORDER BY date
	`, assetID, since)
	if err != nil {
		return nil, fmt.Errorf("list daily closes: %w", err)
	}
	defer rows.Close()

	var out []model.DailyClose
	for rows.Next() {
		var c model.DailyClose
		if err := rows.Scan(&c.Date, &c.Price); err != nil {
			return nil, fmt.Errorf("scan close row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list daily closes: %w", err)
	}
	return out, nil
}

// ListRankedAssets returns asset ids ordered by market-cap rank. limit <= 0
// returns every ranked asset; unranked assets are never included.
func (s *PG) ListRankedAssets(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT id
		FROM dim_coin
		WHERE market_cap_rank IS NOT NULL
		ORDER BY market_cap_rank
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ranked assets: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan asset id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ranked assets: %w", err)
	}
	return out, nil
}
