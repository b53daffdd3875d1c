// Package features turns raw per-transaction sales records into a complete
// daily demand grid per SKU and derives causal rolling statistics from it.
package features

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/opsagent/opsagent/internal/domain"
)

// DefaultWindows are the rolling windows computed when the caller does not
// ask for specific ones.
var DefaultWindows = []int{7, 14, 28}

// Day truncates a timestamp to its calendar day in UTC. All grid and
// simulation dates pass through here so map lookups compare equal.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AggregateDaily aggregates raw sales into a daily demand grid. Duplicate
// (date, sku) pairs are summed. Every selected SKU gets one row for every
// calendar day from the global minimum to the global maximum observed date,
// with missing days filled as zero. When skus is empty, all distinct SKUs in
// the input are selected, sorted.
func AggregateDaily(records []domain.DemandRecord, skus []string) ([]domain.DailyDemand, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no sales records to aggregate")
	}

	var minDate, maxDate time.Time
	totals := make(map[string]map[time.Time]int)
	for i, r := range records {
		if r.Date.IsZero() {
			return nil, fmt.Errorf("sales record %d: missing date", i)
		}
		if r.SKU == "" {
			return nil, fmt.Errorf("sales record %d: missing sku", i)
		}

		day := Day(r.Date)
		if minDate.IsZero() || day.Before(minDate) {
			minDate = day
		}
		if maxDate.IsZero() || day.After(maxDate) {
			maxDate = day
		}

		if totals[r.SKU] == nil {
			totals[r.SKU] = make(map[time.Time]int)
		}
		totals[r.SKU][day] += r.QtySold
	}

	selected := skus
	if len(selected) == 0 {
		selected = make([]string, 0, len(totals))
		for sku := range totals {
			selected = append(selected, sku)
		}
		sort.Strings(selected)
	}

	days := int(maxDate.Sub(minDate).Hours()/24) + 1
	grid := make([]domain.DailyDemand, 0, days*len(selected))
	for _, sku := range selected {
		for day := minDate; !day.After(maxDate); day = day.AddDate(0, 0, 1) {
			grid = append(grid, domain.DailyDemand{
				Date:    day,
				SKU:     sku,
				QtySold: totals[sku][day],
			})
		}
	}

	return grid, nil
}

// ComputeRollingFeatures computes, per SKU in date-ascending order, the
// rolling mean and sample standard deviation of daily demand for each
// window. The window for day d ends the day before d, so a feature computed
// "as of" d never sees d's own sales. With fewer than w prior days the
// available history is used; with no prior history (or a single sample for
// the standard deviation) the value is zero.
func ComputeRollingFeatures(daily []domain.DailyDemand, windows []int) []domain.FeatureRow {
	if len(windows) == 0 {
		windows = DefaultWindows
	}

	bySKU := make(map[string][]domain.DailyDemand)
	var order []string
	for _, d := range daily {
		if _, ok := bySKU[d.SKU]; !ok {
			order = append(order, d.SKU)
		}
		bySKU[d.SKU] = append(bySKU[d.SKU], d)
	}

	rows := make([]domain.FeatureRow, 0, len(daily))
	for _, sku := range order {
		series := bySKU[sku]
		sort.Slice(series, func(i, j int) bool {
			return series[i].Date.Before(series[j].Date)
		})

		for i, d := range series {
			row := domain.FeatureRow{
				Date:     d.Date,
				SKU:      sku,
				QtySold:  d.QtySold,
				RollMean: make(map[int]float64, len(windows)),
				RollStd:  make(map[int]float64, len(windows)),
			}
			for _, w := range windows {
				lo := i - w
				if lo < 0 {
					lo = 0
				}
				trailing := series[lo:i]
				row.RollMean[w] = mean(trailing)
				row.RollStd[w] = sampleStd(trailing)
			}
			rows = append(rows, row)
		}
	}

	return rows
}

func mean(window []domain.DailyDemand) float64 {
	if len(window) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range window {
		sum += float64(d.QtySold)
	}
	return sum / float64(len(window))
}

// sampleStd uses the n-1 divisor; fewer than two samples yield zero.
func sampleStd(window []domain.DailyDemand) float64 {
	n := len(window)
	if n < 2 {
		return 0
	}
	m := mean(window)
	sumSq := 0.0
	for _, d := range window {
		diff := float64(d.QtySold) - m
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}
