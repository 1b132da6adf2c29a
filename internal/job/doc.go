// Package job orchestrates one analytics invocation.
//
// A run aggregates daily bars first (analytics read bars), then executes the
// correlation and risk engines for every configured window. The two engines
// are independent and run concurrently. The outcome is a single JobResult:
// status, rows processed, and a truncated error message, appended to
// pipeline_runs. Because every write is a natural-key upsert, a failed or
// timed-out run is repaired by simply invoking Run again.
package job
