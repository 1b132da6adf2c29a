// Package store implements warehouse reads and idempotent writes for the
// analytics engine.
//
// Reads (fact_market_data, fact_daily_ohlcv, dim_coin) are plain ordered
// queries. Writes are single-row INSERT ... ON CONFLICT upserts keyed by each
// entity's natural key, so every row is its own atomic unit: one failed
// upsert never rolls back or blocks a sibling row, and re-running a job
// overwrites rather than duplicates.
package store
