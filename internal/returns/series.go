package returns

import (
	"math"
	"sort"
	"time"

	"github.com/cryptoflow/analytics/internal/model"
)

// Normalize collapses close rows to one per UTC calendar date (the latest
// row in input order wins) and sorts the result by date ascending.
func Normalize(rows []model.DailyClose) []model.DailyClose {
	byDate := make(map[time.Time]float64, len(rows))
	for _, r := range rows {
		byDate[model.DateOf(r.Date)] = r.Price
	}

	out := make([]model.DailyClose, 0, len(byDate))
	for date, price := range byDate {
		out = append(out, model.DailyClose{Date: date, Price: price})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Prices extracts the price column of a close series, preserving order.
func Prices(series []model.DailyClose) []float64 {
	out := make([]float64, len(series))
	for i, r := range series {
		out[i] = r.Price
	}
	return out
}

// Simple converts a price sequence into simple returns over consecutive
// positions: r_t = (p_t - p_{t-1}) / p_{t-1}. Steps whose previous price is
// not positive are skipped, so the output can be shorter than len(prices)-1.
func Simple(prices []float64) []float64 {
	out := make([]float64, 0, len(prices))
	for i := 1; i < len(prices); i++ {
		if prices[i-1] > 0 {
			out = append(out, (prices[i]-prices[i-1])/prices[i-1])
		}
	}
	return out
}

// Align intersects two normalized close series on their common dates and
// returns the aligned price sequences in ascending date order. The returned
// count is the number of common dates.
func Align(a, b []model.DailyClose) (pricesA, pricesB []float64, common int) {
	priceA := make(map[time.Time]float64, len(a))
	for _, r := range a {
		priceA[r.Date] = r.Price
	}
	priceB := make(map[time.Time]float64, len(b))
	for _, r := range b {
		priceB[r.Date] = r.Price
	}

	dates := make([]time.Time, 0, len(a))
	for date := range priceA {
		if _, ok := priceB[date]; ok {
			dates = append(dates, date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	pricesA = make([]float64, len(dates))
	pricesB = make([]float64, len(dates))
	for i, date := range dates {
		pricesA[i] = priceA[date]
		pricesB[i] = priceB[date]
	}
	return pricesA, pricesB, len(dates)
}

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
