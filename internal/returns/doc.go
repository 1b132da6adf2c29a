// Package returns builds daily return series from close prices.
//
// It is the shared numeric substrate for the correlation and risk engines:
// close-series normalization (one close per UTC date, latest write wins),
// simple day-over-day returns, pairwise date alignment, and decimal rounding.
// Nothing in this package touches the database; all inputs and outputs are
// plain slices so the math stays trivially testable.
package returns
