package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// barTolerance absorbs float noise when checking OHLC ordering.
const barTolerance = 1e-9

// -----------------------------------------------------------------------------
// Raw Input Types
// -----------------------------------------------------------------------------

// PricePoint is one intraday market snapshot for a single asset.
// Produced by the ingestion pipeline; read-only and append-only here.
type PricePoint struct {
	AssetID   string    // CoinGecko coin id
	Timestamp time.Time // Snapshot instant (UTC)
	Price     *float64  // USD price, nil if the source omitted it
	Volume    *float64  // 24h rolling volume, nil if the source omitted it
}

// HasValidPrice reports whether the point carries a usable, non-negative price.
func (p PricePoint) HasValidPrice() bool {
	return p.Price != nil && *p.Price >= 0
}

// DailyClose is one (date, close price) row from the OHLCV fact table.
type DailyClose struct {
	Date  time.Time // UTC midnight
	Price float64
}

// -----------------------------------------------------------------------------
// Derived Types
// -----------------------------------------------------------------------------

// DailyBar is the OHLCV summary of one asset over one UTC calendar date.
// Keyed by (AssetID, Date); upserted by the aggregator, never deleted.
type DailyBar struct {
	AssetID string
	Date    time.Time // UTC midnight
	Open    *float64
	High    *float64
	Low     *float64
	Close   *float64
	Volume  *float64 // Mean of the day's snapshot volumes
}

// Consistent reports whether low <= open <= high and low <= close <= high,
// ignoring nil legs. A false result means the input snapshots themselves
// disagreed, not that the aggregation is wrong.
func (b DailyBar) Consistent() bool {
	if b.High != nil && b.Low != nil && *b.Low > *b.High+barTolerance {
		return false
	}
	for _, v := range []*float64{b.Open, b.Close} {
		if v == nil {
			continue
		}
		if b.Low != nil && *v < *b.Low-barTolerance {
			return false
		}
		if b.High != nil && *v > *b.High+barTolerance {
			return false
		}
	}
	return true
}

// CorrelationEntry is the Pearson correlation of two assets' daily return
// series over a trailing window. Keyed by (AssetA, AssetB, WindowDays).
// Written symmetrically: (a,b) and (b,a) always carry the identical value.
type CorrelationEntry struct {
	AssetA      string
	AssetB      string
	WindowDays  int
	Correlation *float64 // nil = insufficient overlap or degenerate series
	ComputedAt  time.Time
}

// RiskMetrics holds per-asset risk figures over a trailing window.
// Keyed by (AssetID, WindowDays).
type RiskMetrics struct {
	AssetID     string
	WindowDays  int
	Volatility  float64 // Population stdev of daily returns, percent
	MaxDrawdown float64 // Largest peak-to-trough decline, percent
	SharpeRatio float64 // Annualized, risk-free rate 0, clamped to [-99, 99]
	ComputedAt  time.Time
}

// -----------------------------------------------------------------------------
// Job Types
// -----------------------------------------------------------------------------

// JobStatus is the terminal state of one engine invocation.
type JobStatus string

const (
	JobSuccess JobStatus = "success"
	JobFailed  JobStatus = "failed"
)

// JobResult is the single structured outcome returned to the scheduler and
// appended to pipeline_runs.
type JobResult struct {
	JobID            uuid.UUID
	DagID            string // Job identifier, e.g. "compute_analytics"
	Status           JobStatus
	StartTime        time.Time
	EndTime          time.Time
	RecordsProcessed int    // Rows that were successfully upserted
	Error            string // Empty on success; truncated to 500 runes
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// DateOf truncates an instant to its UTC calendar date (midnight UTC).
func DateOf(ts time.Time) time.Time {
	u := ts.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Float64Ptr returns a pointer to v. Convenience for nullable columns.
func Float64Ptr(v float64) *float64 {
	return &v
}

// FloatEqual compares two floats within the shared bar tolerance.
func FloatEqual(a, b float64) bool {
	return math.Abs(a-b) <= barTolerance
}
