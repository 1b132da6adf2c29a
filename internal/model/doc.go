// Package model defines shared data types used across the CryptoFlow analytics engine.
//
// All types mirror the warehouse schema (fact_market_data, fact_daily_ohlcv,
// analytics_correlation, analytics_volatility, pipeline_runs).
//
// Conventions:
//   - Prices and volumes: *float64, nil meaning the value is absent upstream
//   - Timestamps: time.Time in UTC
//   - Calendar dates: time.Time truncated to UTC midnight
//   - Asset IDs: string (CoinGecko coin id, e.g. "bitcoin")
package model
