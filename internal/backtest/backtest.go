// Package backtest drives the reorder decision engine day-by-day over a
// historical sales period, tracking inventory and in-transit orders and
// measuring the resulting service level.
package backtest

import (
	"context"
	"time"

	"github.com/opsagent/opsagent/internal/domain"
	"github.com/opsagent/opsagent/internal/features"
	"github.com/opsagent/opsagent/internal/reorder"
)

// Options bound and parameterize a backtest run.
type Options struct {
	Start  *time.Time // inclusive lower bound on simulated days
	End    *time.Time // inclusive upper bound on simulated days
	Window int        // rolling window feeding the engine, default 14
	Z      float64    // service-level z-score, default 1.65
}

// run holds all mutable simulation state. It is owned by a single Run call
// and never shared, so concurrent backtests cannot interfere.
type run struct {
	inventory   map[string]int
	outstanding []outstandingOrder
	history     []domain.BacktestDay
}

type outstandingOrder struct {
	sku     string
	arrival time.Time
	qty     int
}

// Run simulates inventory day-by-day over the observed (possibly bounded)
// date range. Each day it receives arriving orders, applies recorded demand,
// and re-evaluates the reorder engine using only demand data strictly before
// that day. Orders the engine wants placed by that day are created with the
// supplier's lead time. No text generation happens inside backtests.
func Run(ctx context.Context, sales []domain.DemandRecord, suppliers []domain.SupplierProfile, opts Options) (domain.BacktestResult, error) {
	window := opts.Window
	if window <= 0 {
		window = reorder.DefaultWindow
	}
	z := opts.Z
	if z <= 0 {
		z = reorder.DefaultZ
	}

	daily, err := features.AggregateDaily(sales, nil)
	if err != nil {
		return domain.BacktestResult{}, err
	}
	daily = boundDaily(daily, opts.Start, opts.End)

	result := domain.BacktestResult{Summary: make(map[string]domain.BacktestMetrics)}
	if len(daily) == 0 {
		return result, nil
	}

	profiles := make(map[string]domain.SupplierProfile, len(suppliers))
	var skus []string
	for _, p := range suppliers {
		if _, ok := profiles[p.SKU]; ok {
			continue
		}
		if p.PackSize <= 0 {
			p.PackSize = 1
		}
		profiles[p.SKU] = p
		skus = append(skus, p.SKU)
	}

	st := &run{inventory: make(map[string]int, len(skus))}
	for _, sku := range skus {
		st.inventory[sku] = profiles[sku].CurrentStock
	}

	demandByDay := make(map[time.Time][]domain.DailyDemand)
	minDate := daily[0].Date
	maxDate := daily[0].Date
	for _, d := range daily {
		demandByDay[d.Date] = append(demandByDay[d.Date], d)
		if d.Date.Before(minDate) {
			minDate = d.Date
		}
		if d.Date.After(maxDate) {
			maxDate = d.Date
		}
	}

	for day := minDate; !day.After(maxDate); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return domain.BacktestResult{}, err
		}

		st.receiveArrivals(day)
		st.applyDemand(day, demandByDay[day], skus)

		prior := priorHistory(daily, day)
		if len(prior) == 0 {
			continue
		}
		latest := latestFeatures(prior, window)

		for _, sku := range skus {
			row, ok := latest[sku]
			if !ok {
				continue
			}

			avgDaily, ok := row.RollMean[window]
			if !ok {
				avgDaily = float64(row.QtySold)
			}
			sigma := row.RollStd[window]
			profile := profiles[sku]

			rec := reorder.ComputeRecommendation(ctx, reorder.Input{
				SKU:          sku,
				AvgDaily:     avgDaily,
				Sigma:        sigma,
				LeadTimeDays: profile.LeadTimeDays,
				CurrentStock: float64(st.inventory[sku]),
				TargetStock:  float64(profile.TargetStock),
				AsOfDate:     day,
				Z:            z,
				PackSize:     profile.PackSize,
			})

			if rec.RecommendedQty > 0 && rec.ReorderByDate != nil {
				reorderBy, err := time.Parse("2006-01-02", *rec.ReorderByDate)
				if err == nil && !reorderBy.After(day) {
					st.outstanding = append(st.outstanding, outstandingOrder{
						sku:     sku,
						arrival: day.AddDate(0, 0, profile.LeadTimeDays),
						qty:     rec.RecommendedQty,
					})
				}
			}
		}
	}

	for _, sku := range skus {
		if metrics, ok := summarize(st.history, sku); ok {
			result.Summary[sku] = metrics
		}
	}
	result.History = st.history

	return result, nil
}

// receiveArrivals merges every order arriving today into inventory and
// drops it (along with anything already past) from the outstanding set.
func (st *run) receiveArrivals(day time.Time) {
	kept := st.outstanding[:0]
	for _, o := range st.outstanding {
		if o.arrival.Equal(day) {
			st.inventory[o.sku] += o.qty
			continue
		}
		if o.arrival.After(day) {
			kept = append(kept, o)
		}
	}
	st.outstanding = kept
}

// applyDemand consumes inventory for every demand row of the day and
// records one snapshot row per SKU, including supplier SKUs with no
// recorded demand, so every SKU has exactly one history row per day.
func (st *run) applyDemand(day time.Time, todays []domain.DailyDemand, skus []string) {
	processed := make(map[string]bool, len(todays))
	for _, d := range todays {
		prev := st.inventory[d.SKU]
		sold := d.QtySold
		if sold > prev {
			sold = prev
		}
		st.inventory[d.SKU] = prev - sold

		st.history = append(st.history, domain.BacktestDay{
			Date:         day,
			SKU:          d.SKU,
			Demand:       d.QtySold,
			Sold:         sold,
			Stockout:     d.QtySold - sold,
			InventoryEnd: st.inventory[d.SKU],
		})
		processed[d.SKU] = true
	}

	for _, sku := range skus {
		if processed[sku] {
			continue
		}
		st.history = append(st.history, domain.BacktestDay{
			Date:         day,
			SKU:          sku,
			InventoryEnd: st.inventory[sku],
		})
	}
}

func boundDaily(daily []domain.DailyDemand, start, end *time.Time) []domain.DailyDemand {
	if start == nil && end == nil {
		return daily
	}
	bounded := daily[:0]
	for _, d := range daily {
		if start != nil && d.Date.Before(features.Day(*start)) {
			continue
		}
		if end != nil && d.Date.After(features.Day(*end)) {
			continue
		}
		bounded = append(bounded, d)
	}
	return bounded
}

func priorHistory(daily []domain.DailyDemand, day time.Time) []domain.DailyDemand {
	prior := make([]domain.DailyDemand, 0, len(daily))
	for _, d := range daily {
		if d.Date.Before(day) {
			prior = append(prior, d)
		}
	}
	return prior
}

// latestFeatures recomputes rolling features over the prior history and
// keeps the most recent row per SKU.
func latestFeatures(prior []domain.DailyDemand, window int) map[string]domain.FeatureRow {
	rows := features.ComputeRollingFeatures(prior, []int{window})
	latest := make(map[string]domain.FeatureRow)
	for _, row := range rows {
		cur, ok := latest[row.SKU]
		if !ok || row.Date.After(cur.Date) {
			latest[row.SKU] = row
		}
	}
	return latest
}

func summarize(history []domain.BacktestDay, sku string) (domain.BacktestMetrics, bool) {
	totalDays := 0
	stockoutDays := 0
	inventorySum := 0
	for _, h := range history {
		if h.SKU != sku {
			continue
		}
		totalDays++
		if h.Stockout > 0 {
			stockoutDays++
		}
		inventorySum += h.InventoryEnd
	}

	if totalDays == 0 {
		return domain.BacktestMetrics{}, false
	}

	return domain.BacktestMetrics{
		ServiceLevel: 1.0 - float64(stockoutDays)/float64(totalDays),
		StockoutDays: stockoutDays,
		TotalDays:    totalDays,
		AvgInventory: float64(inventorySum) / float64(totalDays),
	}, true
}
