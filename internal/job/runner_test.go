package job

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cryptoflow/analytics/internal/config"
	"github.com/cryptoflow/analytics/internal/model"
)

// memStore is an in-memory warehouse: bars written by the aggregator feed the
// close reads of the engines, mirroring the real fact tables.
type memStore struct {
	mu sync.Mutex

	snapshots    []model.PricePoint
	snapshotsErr error
	assets       []string

	bars         map[string]model.DailyBar // asset|date
	correlations map[string]model.CorrelationEntry
	riskRows     map[string]model.RiskMetrics
	runs         []model.JobResult

	failRiskFor string

	snapshotReads int
}

func newMemStore() *memStore {
	return &memStore{
		bars:         make(map[string]model.DailyBar),
		correlations: make(map[string]model.CorrelationEntry),
		riskRows:     make(map[string]model.RiskMetrics),
	}
}

func (m *memStore) ListRawSnapshots(_ context.Context, _ string, _ time.Time) ([]model.PricePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshotReads++
	if m.snapshotsErr != nil {
		return nil, m.snapshotsErr
	}
	return m.snapshots, nil
}

func (m *memStore) ListDailyCloses(_ context.Context, assetID string, since time.Time) ([]model.DailyClose, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.DailyClose
	for _, bar := range m.bars {
		if bar.AssetID != assetID || bar.Close == nil || bar.Date.Before(model.DateOf(since)) {
			continue
		}
		out = append(out, model.DailyClose{Date: bar.Date, Price: *bar.Close})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *memStore) ListRankedAssets(_ context.Context, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > 0 && limit < len(m.assets) {
		return m.assets[:limit], nil
	}
	return m.assets, nil
}

func (m *memStore) UpsertDailyBar(_ context.Context, bar model.DailyBar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[bar.AssetID+"|"+bar.Date.Format("2006-01-02")] = bar
	return nil
}

func (m *memStore) UpsertCorrelation(_ context.Context, e model.CorrelationEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.correlations[e.AssetA+"|"+e.AssetB] = e
	return nil
}

func (m *memStore) UpsertRiskMetrics(_ context.Context, r model.RiskMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.AssetID == m.failRiskFor {
		return errors.New("disk full")
	}
	m.riskRows[r.AssetID] = r
	return nil
}

func (m *memStore) EnsureTimeDim(_ context.Context, _, _ time.Time) error {
	return nil
}

func (m *memStore) RecordJobRun(_ context.Context, res model.JobResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, res)
	return nil
}

func testJobConfig() config.JobConfig {
	return config.JobConfig{
		Windows:       []int{30},
		TopAssets:     15,
		MinDataPoints: 5,
		LookbackDays:  90,
		Concurrency:   4,
		Timeout:       time.Minute,
	}
}

// seedSnapshots adds one valid snapshot per asset for each of the past seven
// full UTC days.
func seedSnapshots(store *memStore, prices map[string][]float64) {
	today := model.DateOf(time.Now().UTC())
	for asset, series := range prices {
		for i, price := range series {
			daysBack := len(series) - i
			store.snapshots = append(store.snapshots, model.PricePoint{
				AssetID:   asset,
				Timestamp: today.AddDate(0, 0, -daysBack).Add(12 * time.Hour),
				Price:     model.Float64Ptr(price),
				Volume:    model.Float64Ptr(1000),
			})
		}
	}
	for asset := range prices {
		store.assets = append(store.assets, asset)
	}
	sort.Strings(store.assets)
}

func TestRunnerEmptyWindowsFailsBeforeIO(t *testing.T) {
	store := newMemStore()
	r := New(testJobConfig(), store, nil)

	res := r.Run(context.Background(), nil)

	if res.Status != model.JobFailed {
		t.Errorf("Status = %v, want failed", res.Status)
	}
	if res.Error != ErrNoWindows.Error() {
		t.Errorf("Error = %q, want %q", res.Error, ErrNoWindows.Error())
	}
	if store.snapshotReads != 0 {
		t.Errorf("snapshot reads = %d, want 0 (must fail before data I/O)", store.snapshotReads)
	}
	if len(store.runs) != 1 {
		t.Fatalf("pipeline runs recorded = %d, want 1", len(store.runs))
	}
}

func TestRunnerRejectsNonPositiveWindow(t *testing.T) {
	store := newMemStore()
	r := New(testJobConfig(), store, nil)

	res := r.Run(context.Background(), []int{30, 0})

	if res.Status != model.JobFailed {
		t.Errorf("Status = %v, want failed", res.Status)
	}
	if store.snapshotReads != 0 {
		t.Errorf("snapshot reads = %d, want 0", store.snapshotReads)
	}
}

func TestRunnerEndToEnd(t *testing.T) {
	store := newMemStore()
	seedSnapshots(store, map[string][]float64{
		"bitcoin":  {100, 105, 103, 108, 110, 109, 112},
		"ethereum": {2500, 2550, 2530, 2600, 2620, 2610, 2680},
	})

	r := New(testJobConfig(), store, nil)
	res := r.Run(context.Background(), []int{30})

	if res.Status != model.JobSuccess {
		t.Fatalf("Status = %v (error %q), want success", res.Status, res.Error)
	}

	// 14 bars + 4 correlation rows (2 self + both directions) + 2 risk rows.
	if res.RecordsProcessed != 20 {
		t.Errorf("RecordsProcessed = %d, want 20", res.RecordsProcessed)
	}
	if len(store.bars) != 14 {
		t.Errorf("bars = %d, want 14", len(store.bars))
	}

	ab, ok := store.correlations["bitcoin|ethereum"]
	if !ok {
		t.Fatal("correlation bitcoin|ethereum missing")
	}
	ba := store.correlations["ethereum|bitcoin"]
	if ab.Correlation == nil || ba.Correlation == nil || *ab.Correlation != *ba.Correlation {
		t.Error("correlation rows not symmetric")
	}
	self := store.correlations["bitcoin|bitcoin"]
	if self.Correlation == nil || *self.Correlation != 1.0 {
		t.Error("self correlation not fixed at 1.0")
	}

	if _, ok := store.riskRows["bitcoin"]; !ok {
		t.Error("risk row for bitcoin missing")
	}
	if _, ok := store.riskRows["ethereum"]; !ok {
		t.Error("risk row for ethereum missing")
	}

	if len(store.runs) != 1 {
		t.Fatalf("pipeline runs recorded = %d, want 1", len(store.runs))
	}
	run := store.runs[0]
	if run.Status != model.JobSuccess || run.RecordsProcessed != 20 {
		t.Errorf("recorded run = %+v, want success with 20 records", run)
	}
	if run.DagID != DagID {
		t.Errorf("recorded DagID = %q, want %q", run.DagID, DagID)
	}
	if run.EndTime.Before(run.StartTime) {
		t.Error("recorded run has EndTime before StartTime")
	}
}

func TestRunnerRerunIsIdempotent(t *testing.T) {
	store := newMemStore()
	seedSnapshots(store, map[string][]float64{
		"bitcoin":  {100, 105, 103, 108, 110, 109, 112},
		"ethereum": {2500, 2550, 2530, 2600, 2620, 2610, 2680},
	})

	r := New(testJobConfig(), store, nil)
	first := r.Run(context.Background(), []int{30})
	bars := make(map[string]model.DailyBar, len(store.bars))
	for k, v := range store.bars {
		bars[k] = v
	}

	second := r.Run(context.Background(), []int{30})

	if second.Status != model.JobSuccess {
		t.Fatalf("second run failed: %q", second.Error)
	}
	if second.RecordsProcessed != first.RecordsProcessed {
		t.Errorf("second run processed %d records, first %d", second.RecordsProcessed, first.RecordsProcessed)
	}
	if len(store.bars) != len(bars) {
		t.Fatalf("bar count changed across identical runs")
	}
	for k, want := range bars {
		got := store.bars[k]
		if got.AssetID != want.AssetID || !got.Date.Equal(want.Date) ||
			*got.Open != *want.Open || *got.High != *want.High ||
			*got.Low != *want.Low || *got.Close != *want.Close || *got.Volume != *want.Volume {
			t.Errorf("bar %s changed across identical runs: %+v vs %+v", k, got, want)
		}
	}
}

func TestRunnerWriteFailureIsNonFatalButFailsRun(t *testing.T) {
	store := newMemStore()
	seedSnapshots(store, map[string][]float64{
		"bitcoin":  {100, 105, 103, 108, 110, 109, 112},
		"ethereum": {2500, 2550, 2530, 2600, 2620, 2610, 2680},
	})
	store.failRiskFor = "ethereum"

	r := New(testJobConfig(), store, nil)
	res := r.Run(context.Background(), []int{30})

	if res.Status != model.JobFailed {
		t.Errorf("Status = %v, want failed when any row write fails", res.Status)
	}
	if !strings.Contains(res.Error, "row writes failed") {
		t.Errorf("Error = %q, want row-write failure message", res.Error)
	}
	// Everything except the one failed risk row still landed.
	if res.RecordsProcessed != 19 {
		t.Errorf("RecordsProcessed = %d, want 19", res.RecordsProcessed)
	}
	if _, ok := store.riskRows["bitcoin"]; !ok {
		t.Error("bitcoin risk row missing despite unrelated failure")
	}
}

func TestRunnerReadFailureAborts(t *testing.T) {
	store := newMemStore()
	store.snapshotsErr = errors.New("read: " + strings.Repeat("x", 600))

	r := New(testJobConfig(), store, nil)
	res := r.Run(context.Background(), []int{30})

	if res.Status != model.JobFailed {
		t.Errorf("Status = %v, want failed", res.Status)
	}
	if len([]rune(res.Error)) != 500 {
		t.Errorf("error length = %d runes, want truncation to 500", len([]rune(res.Error)))
	}
	if len(store.correlations) != 0 || len(store.riskRows) != 0 {
		t.Error("analytics rows written despite fatal read failure")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 500); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	long := strings.Repeat("é", 600)
	if got := truncate(long, 500); len([]rune(got)) != 500 {
		t.Errorf("truncate long = %d runes, want 500", len([]rune(got)))
	}
}
