package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opsagent/opsagent/internal/domain"
	"github.com/opsagent/opsagent/internal/features"
	"github.com/opsagent/opsagent/internal/llm"
	"github.com/opsagent/opsagent/internal/reorder"
)

// RecommendationOptions parameterize a batch recommendation run. Zero
// values fall back to the engine defaults; a zero AsOfDate means "now".
type RecommendationOptions struct {
	Window      int
	Z           float64
	MinOrderQty int
	AsOfDate    time.Time
	Generator   llm.TextGenerator
}

// RecommendationService computes reorder recommendations for whole
// product catalogs. SKU computations are independent pure functions, so
// they are fanned out across a bounded worker group.
type RecommendationService struct {
	workers int
}

func NewRecommendationService(workers int) *RecommendationService {
	if workers < 1 {
		workers = 4
	}
	return &RecommendationService{workers: workers}
}

// RecommendAll aggregates the sales history, derives the latest feature
// snapshot per SKU and evaluates the reorder engine once per SKU. A missing
// supplier profile is a hard failure for that SKU, reported per SKU; one
// SKU's failure never aborts the rest of the batch.
func (s *RecommendationService) RecommendAll(ctx context.Context, sales []domain.DemandRecord, suppliers []domain.SupplierProfile, opts RecommendationOptions) (*domain.BatchRecommendations, error) {
	window := opts.Window
	if window <= 0 {
		window = reorder.DefaultWindow
	}

	asOf := opts.AsOfDate
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	daily, err := features.AggregateDaily(sales, nil)
	if err != nil {
		return nil, fmt.Errorf("aggregate sales: %w", err)
	}

	windows := featureWindows(window)
	rows := features.ComputeRollingFeatures(daily, windows)

	latest := make(map[string]domain.FeatureRow)
	for _, row := range rows {
		cur, ok := latest[row.SKU]
		if !ok || row.Date.After(cur.Date) {
			latest[row.SKU] = row
		}
	}

	skus := make([]string, 0, len(latest))
	for sku := range latest {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	profiles := make(map[string]domain.SupplierProfile, len(suppliers))
	for _, p := range suppliers {
		profiles[p.SKU] = p
	}

	recs := make([]*domain.Recommendation, len(skus))
	failures := make([]*domain.RecommendationError, len(skus))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, sku := range skus {
		i, sku := i, sku
		g.Go(func() error {
			profile, ok := profiles[sku]
			if !ok {
				failures[i] = &domain.RecommendationError{
					SKU:   sku,
					Error: "no supplier profile for sku",
				}
				return nil
			}

			row := latest[sku]
			avgDaily, ok := row.RollMean[window]
			if !ok {
				avgDaily = float64(row.QtySold)
			}
			sigma := row.RollStd[window]

			rec := reorder.ComputeRecommendation(ctx, reorder.Input{
				SKU:          sku,
				AvgDaily:     avgDaily,
				Sigma:        sigma,
				LeadTimeDays: profile.LeadTimeDays,
				CurrentStock: float64(profile.CurrentStock),
				TargetStock:  float64(profile.TargetStock),
				AsOfDate:     asOf,
				Z:            opts.Z,
				MinOrderQty:  opts.MinOrderQty,
				PackSize:     profile.PackSize,
				Generator:    opts.Generator,
			})
			recs[i] = &rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &domain.BatchRecommendations{
		AsOf:            asOf.Format("2006-01-02"),
		Recommendations: make([]domain.Recommendation, 0, len(skus)),
	}
	for i := range skus {
		if recs[i] != nil {
			result.Recommendations = append(result.Recommendations, *recs[i])
		}
		if failures[i] != nil {
			result.Errors = append(result.Errors, *failures[i])
		}
	}

	return result, nil
}

// featureWindows is the default window set, extended with the requested
// window when it is not one of the defaults.
func featureWindows(window int) []int {
	windows := make([]int, len(features.DefaultWindows))
	copy(windows, features.DefaultWindows)
	for _, w := range windows {
		if w == window {
			return windows
		}
	}
	return append(windows, window)
}
