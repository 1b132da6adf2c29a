// Package risk implements the per-asset Risk Metrics Engine.
//
// For every ranked asset with enough daily closes in a trailing window it
// computes:
//   - volatility: population stdev of daily returns, as a percentage
//   - max drawdown: largest running-peak-to-trough decline, as a percentage
//   - Sharpe ratio: mean/stdev of daily returns annualized by sqrt(365),
//     risk-free rate 0, clamped to [-99, 99]
//
// Assets below the minimum data threshold are skipped entirely; their
// previously stored rows stay as-is.
package risk
