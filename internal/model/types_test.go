package model

import (
	"testing"
	"time"
)

func TestDateOf(t *testing.T) {
	tests := []struct {
		name string
		ts   time.Time
		want time.Time
	}{
		{
			name: "utc afternoon",
			ts:   time.Date(2024, 3, 14, 15, 9, 26, 0, time.UTC),
			want: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "already midnight",
			ts:   time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "non-utc zone crosses date line",
			ts:   time.Date(2024, 3, 14, 22, 0, 0, 0, time.FixedZone("UTC-5", -5*3600)),
			want: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DateOf(tt.ts)
			if !got.Equal(tt.want) {
				t.Errorf("DateOf(%v) = %v, want %v", tt.ts, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("DateOf(%v) location = %v, want UTC", tt.ts, got.Location())
			}
		})
	}
}

func TestPricePointHasValidPrice(t *testing.T) {
	if (PricePoint{}).HasValidPrice() {
		t.Error("nil price should not be valid")
	}
	if (PricePoint{Price: Float64Ptr(-1)}).HasValidPrice() {
		t.Error("negative price should not be valid")
	}
	if !(PricePoint{Price: Float64Ptr(0)}).HasValidPrice() {
		t.Error("zero price should be valid")
	}
	if !(PricePoint{Price: Float64Ptr(42000.5)}).HasValidPrice() {
		t.Error("positive price should be valid")
	}
}

func TestDailyBarConsistent(t *testing.T) {
	tests := []struct {
		name string
		bar  DailyBar
		want bool
	}{
		{
			name: "ordered bar",
			bar: DailyBar{
				Open:  Float64Ptr(10),
				High:  Float64Ptr(15),
				Low:   Float64Ptr(8),
				Close: Float64Ptr(12),
			},
			want: true,
		},
		{
			name: "single point bar",
			bar: DailyBar{
				Open:  Float64Ptr(10),
				High:  Float64Ptr(10),
				Low:   Float64Ptr(10),
				Close: Float64Ptr(10),
			},
			want: true,
		},
		{
			name: "open above high",
			bar: DailyBar{
				Open:  Float64Ptr(16),
				High:  Float64Ptr(15),
				Low:   Float64Ptr(8),
				Close: Float64Ptr(12),
			},
			want: false,
		},
		{
			name: "close below low",
			bar: DailyBar{
				Open:  Float64Ptr(10),
				High:  Float64Ptr(15),
				Low:   Float64Ptr(8),
				Close: Float64Ptr(7),
			},
			want: false,
		},
		{
			name: "low above high",
			bar: DailyBar{
				High: Float64Ptr(8),
				Low:  Float64Ptr(9),
			},
			want: false,
		},
		{
			name: "float noise within tolerance",
			bar: DailyBar{
				Open:  Float64Ptr(15.0000000000001),
				High:  Float64Ptr(15),
				Low:   Float64Ptr(8),
				Close: Float64Ptr(12),
			},
			want: true,
		},
		{
			name: "all nil legs",
			bar:  DailyBar{},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bar.Consistent(); got != tt.want {
				t.Errorf("Consistent() = %v, want %v", got, tt.want)
			}
		})
	}
}
