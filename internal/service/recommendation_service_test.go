package service

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

func TestRecommendAllConstantDemandScenario(t *testing.T) {
	// 14 days of constant demand 5/day for product X, lead time 7,
	// current 10, target 100: reorder point 35, order 90 units today.
	start := day(2024, 5, 1)
	asOf := day(2024, 5, 14)
	sales := constantSales("X", start, 14, 5)
	suppliers := []domain.SupplierProfile{
		{SKU: "X", LeadTimeDays: 7, CurrentStock: 10, TargetStock: 100, PackSize: 1},
	}

	svc := NewRecommendationService(2)
	result, err := svc.RecommendAll(context.Background(), sales, suppliers, RecommendationOptions{
		Window:   14,
		AsOfDate: asOf,
	})
	require.NoError(t, err)
	require.Len(t, result.Recommendations, 1)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "2024-05-14", result.AsOf)

	rec := result.Recommendations[0]
	assert.Equal(t, "X", rec.SKU)
	assert.InDelta(t, 5.0, rec.Debug.AvgDaily, 1e-9)
	assert.InDelta(t, 0.0, rec.Debug.Sigma, 1e-9)
	assert.InDelta(t, 35.0, rec.Debug.ReorderPoint, 1e-9)
	assert.Equal(t, 90, rec.RecommendedQty)
	require.NotNil(t, rec.ReorderByDate)
	assert.Equal(t, "2024-05-14", *rec.ReorderByDate)
	assert.GreaterOrEqual(t, rec.Confidence, 0.0)
	assert.LessOrEqual(t, rec.Confidence, 0.99)
}

func TestRecommendAllIsolatesMissingProfiles(t *testing.T) {
	start := day(2024, 5, 1)
	sales := append(
		constantSales("SKU-A", start, 10, 5),
		constantSales("SKU-B", start, 10, 3)...,
	)
	suppliers := []domain.SupplierProfile{
		{SKU: "SKU-A", LeadTimeDays: 7, CurrentStock: 10, TargetStock: 100, PackSize: 1},
	}

	svc := NewRecommendationService(4)
	result, err := svc.RecommendAll(context.Background(), sales, suppliers, RecommendationOptions{})
	require.NoError(t, err)

	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, "SKU-A", result.Recommendations[0].SKU)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "SKU-B", result.Errors[0].SKU)
	assert.Contains(t, result.Errors[0].Error, "no supplier profile")
}

func TestRecommendAllInvalidSalesFatal(t *testing.T) {
	svc := NewRecommendationService(4)
	_, err := svc.RecommendAll(context.Background(), nil, nil, RecommendationOptions{})
	assert.Error(t, err)
}

func TestRecommendAllNonDefaultWindow(t *testing.T) {
	start := day(2024, 5, 1)
	sales := constantSales("SKU-A", start, 10, 4)
	suppliers := []domain.SupplierProfile{
		{SKU: "SKU-A", LeadTimeDays: 2, CurrentStock: 50, TargetStock: 50, PackSize: 1},
	}

	svc := NewRecommendationService(1)
	result, err := svc.RecommendAll(context.Background(), sales, suppliers, RecommendationOptions{
		Window:   5,
		AsOfDate: day(2024, 5, 10),
	})
	require.NoError(t, err)
	require.Len(t, result.Recommendations, 1)
	assert.InDelta(t, 4.0, result.Recommendations[0].Debug.AvgDaily, 1e-9)
}

func TestRecommendAllDeterministicOrder(t *testing.T) {
	start := day(2024, 5, 1)
	var sales []domain.DemandRecord
	var suppliers []domain.SupplierProfile
	for _, sku := range []string{"SKU-C", "SKU-A", "SKU-B"} {
		sales = append(sales, constantSales(sku, start, 5, 2)...)
		suppliers = append(suppliers, domain.SupplierProfile{
			SKU: sku, LeadTimeDays: 3, CurrentStock: 10, TargetStock: 30, PackSize: 1,
		})
	}

	svc := NewRecommendationService(8)
	result, err := svc.RecommendAll(context.Background(), sales, suppliers, RecommendationOptions{})
	require.NoError(t, err)

	var got []string
	for _, rec := range result.Recommendations {
		got = append(got, rec.SKU)
	}
	assert.Equal(t, []string{"SKU-A", "SKU-B", "SKU-C"}, got)
}
