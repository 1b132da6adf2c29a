// Package database provides connection pool management for the analytics warehouse.
//
// The warehouse is a single PostgreSQL database holding:
//   - fact_market_data: raw intraday snapshots (append-only, ingestion-owned)
//   - fact_daily_ohlcv: derived daily bars
//   - analytics_correlation, analytics_volatility: derived analytics rows
//   - dim_coin, dim_time: dimensions
//   - pipeline_runs: job invocation log
package database
