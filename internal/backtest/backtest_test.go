package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsagent/opsagent/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func constantSales(sku string, start time.Time, days, qty int) []domain.DemandRecord {
	sales := make([]domain.DemandRecord, 0, days)
	for i := 0; i < days; i++ {
		sales = append(sales, domain.DemandRecord{
			Date:    start.AddDate(0, 0, i),
			SKU:     sku,
			QtySold: qty,
		})
	}
	return sales
}

func TestRunReplenishmentCycle(t *testing.T) {
	// Constant demand 5/day, lead time 2, starting stock 10, target 50.
	// Stock runs out on day 2; the first informative decision happens on
	// day 3 and its order arrives on day 5.
	sales := constantSales("SKU-A", day(2024, 1, 1), 10, 5)
	suppliers := []domain.SupplierProfile{
		{SKU: "SKU-A", LeadTimeDays: 2, CurrentStock: 10, TargetStock: 50, PackSize: 1},
	}

	result, err := Run(context.Background(), sales, suppliers, Options{Window: 7, Z: 1.65})
	require.NoError(t, err)

	metrics, ok := result.Summary["SKU-A"]
	require.True(t, ok)
	assert.Equal(t, 10, metrics.TotalDays)
	assert.Equal(t, 2, metrics.StockoutDays)
	assert.InDelta(t, 0.8, metrics.ServiceLevel, 1e-9)
	assert.InDelta(t, 45.0, metrics.AvgInventory, 1e-9)

	require.Len(t, result.History, 10)
	wantInventory := []int{5, 0, 0, 0, 45, 90, 85, 80, 75, 70}
	for i, h := range result.History {
		assert.Equal(t, "SKU-A", h.SKU)
		assert.Equal(t, day(2024, 1, 1+i), h.Date)
		assert.Equal(t, 5, h.Demand)
		assert.Equal(t, wantInventory[i], h.InventoryEnd, "day %d", i+1)
		assert.GreaterOrEqual(t, h.InventoryEnd, 0)
	}

	// Unmet demand only on the two dry days before the first arrival.
	assert.Equal(t, 5, result.History[2].Stockout)
	assert.Equal(t, 5, result.History[3].Stockout)
	assert.Zero(t, result.History[4].Stockout)
}

func TestRunAbundantStockNeverStocksOut(t *testing.T) {
	sales := constantSales("SKU-A", day(2024, 1, 1), 30, 10)
	suppliers := []domain.SupplierProfile{
		{SKU: "SKU-A", LeadTimeDays: 7, CurrentStock: 100000, TargetStock: 100000, PackSize: 1},
	}

	result, err := Run(context.Background(), sales, suppliers, Options{})
	require.NoError(t, err)

	metrics := result.Summary["SKU-A"]
	assert.Zero(t, metrics.StockoutDays)
	assert.InDelta(t, 1.0, metrics.ServiceLevel, 1e-9)
	assert.Equal(t, 30, metrics.TotalDays)
}

func TestRunServiceLevelBounds(t *testing.T) {
	sales := constantSales("SKU-A", day(2024, 1, 1), 20, 50)
	suppliers := []domain.SupplierProfile{
		{SKU: "SKU-A", LeadTimeDays: 14, CurrentStock: 0, TargetStock: 10, PackSize: 1},
	}

	result, err := Run(context.Background(), sales, suppliers, Options{})
	require.NoError(t, err)

	for sku, metrics := range result.Summary {
		assert.GreaterOrEqual(t, metrics.ServiceLevel, 0.0, sku)
		assert.LessOrEqual(t, metrics.ServiceLevel, 1.0, sku)
	}
}

func TestRunSKUWithoutSupplierAbsentFromSummary(t *testing.T) {
	sales := append(
		constantSales("SKU-A", day(2024, 1, 1), 5, 3),
		constantSales("SKU-B", day(2024, 1, 1), 5, 3)...,
	)
	suppliers := []domain.SupplierProfile{
		{SKU: "SKU-A", LeadTimeDays: 2, CurrentStock: 100, TargetStock: 100, PackSize: 1},
	}

	result, err := Run(context.Background(), sales, suppliers, Options{})
	require.NoError(t, err)

	_, ok := result.Summary["SKU-B"]
	assert.False(t, ok)
	_, ok = result.Summary["SKU-A"]
	assert.True(t, ok)

	// SKU-B still shows up in the history with zero inventory.
	seenB := 0
	for _, h := range result.History {
		if h.SKU == "SKU-B" {
			seenB++
			assert.Zero(t, h.InventoryEnd)
		}
	}
	assert.Equal(t, 5, seenB)
}

func TestRunSupplierSKUWithoutSalesGetsSnapshots(t *testing.T) {
	sales := constantSales("SKU-A", day(2024, 1, 1), 5, 3)
	suppliers := []domain.SupplierProfile{
		{SKU: "SKU-A", LeadTimeDays: 2, CurrentStock: 100, TargetStock: 100, PackSize: 1},
		{SKU: "SKU-Z", LeadTimeDays: 2, CurrentStock: 40, TargetStock: 40, PackSize: 1},
	}

	result, err := Run(context.Background(), sales, suppliers, Options{})
	require.NoError(t, err)

	metrics, ok := result.Summary["SKU-Z"]
	require.True(t, ok)
	assert.Equal(t, 5, metrics.TotalDays)
	assert.Zero(t, metrics.StockoutDays)
	assert.InDelta(t, 40.0, metrics.AvgInventory, 1e-9)
}

func TestRunDateBounds(t *testing.T) {
	sales := constantSales("SKU-A", day(2024, 1, 1), 30, 5)
	suppliers := []domain.SupplierProfile{
		{SKU: "SKU-A", LeadTimeDays: 2, CurrentStock: 1000, TargetStock: 1000, PackSize: 1},
	}

	start := day(2024, 1, 10)
	end := day(2024, 1, 19)
	result, err := Run(context.Background(), sales, suppliers, Options{Start: &start, End: &end})
	require.NoError(t, err)

	metrics := result.Summary["SKU-A"]
	assert.Equal(t, 10, metrics.TotalDays)
	assert.Equal(t, start, result.History[0].Date)
	assert.Equal(t, end, result.History[len(result.History)-1].Date)
}

func TestRunEmptyAfterBounds(t *testing.T) {
	sales := constantSales("SKU-A", day(2024, 1, 1), 5, 5)
	suppliers := []domain.SupplierProfile{
		{SKU: "SKU-A", LeadTimeDays: 2, CurrentStock: 10, TargetStock: 10, PackSize: 1},
	}

	start := day(2025, 1, 1)
	result, err := Run(context.Background(), sales, suppliers, Options{Start: &start})
	require.NoError(t, err)
	assert.Empty(t, result.Summary)
	assert.Empty(t, result.History)
}

func TestRunInvalidSalesFails(t *testing.T) {
	_, err := Run(context.Background(), nil, nil, Options{})
	assert.Error(t, err)
}
