// Package bars implements the Daily Bar Aggregator.
//
// The aggregator:
//   - Scans raw intraday snapshots over a trailing lookback (default 90 days)
//   - Partitions them by (asset, UTC calendar date)
//   - Collapses each partition into one OHLCV bar
//   - Upserts bars keyed by (asset, date), so re-runs and late-arriving
//     snapshots simply overwrite
//
// The running UTC day is never aggregated; its bar would be incomplete and
// the next pass picks it up.
package bars
