// Package correlation implements the pairwise Correlation Engine.
//
// For every unordered pair of the top-ranked candidate assets it computes the
// Pearson correlation of daily return series over a trailing window and
// upserts both directed rows plus the fixed 1.0 self-pair. A pair with fewer
// than the minimum common dates, or with a flat return series, stores a NULL
// correlation: absent information, never zero.
package correlation
