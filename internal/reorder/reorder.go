// Package reorder implements the reorder decision engine: the safety-stock
// and reorder-point heuristics, the order-up-to-target quantity rule, the
// reorder-date projection and the confidence score.
package reorder

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/opsagent/opsagent/internal/domain"
	"github.com/opsagent/opsagent/internal/llm"
)

const (
	// DefaultZ is the service-level z-score used when none is given.
	DefaultZ = 1.65
	// DefaultMinOrderQty is the floor applied to positive orders.
	DefaultMinOrderQty = 1
	// DefaultWindow is the primary rolling window feeding the engine.
	DefaultWindow = 14
)

// Reorder deadline reasons carried in the debug payload.
const (
	ReasonBelowReorderPoint = "current_stock_below_reorder_point"
	ReasonNoDemand          = "no_demand"
	ReasonWithinLeadTime    = "within_lead_time"
	ReasonScheduled         = "scheduled"
)

// SafetyStock returns the service-level buffer z * sigma * sqrt(leadTime).
// With no lead time there is no lead-time risk and no buffer is needed.
func SafetyStock(sigma, leadTimeDays, z float64) float64 {
	if leadTimeDays <= 0 {
		return 0
	}
	return z * sigma * math.Sqrt(leadTimeDays)
}

// ReorderPoint is the expected consumption during the replenishment lead
// time plus the safety buffer.
func ReorderPoint(avgDaily, safety, leadTimeDays float64) float64 {
	return avgDaily*leadTimeDays + safety
}

// RecommendedQtyUpToTarget computes the order-up-to-target quantity: the raw
// need is rounded up to the nearest multiple of packSize, and minOrderQty is
// applied as a floor only when an order is warranted at all. A zero rounded
// need is never forced into a positive order.
func RecommendedQtyUpToTarget(currentStock, targetStock float64, minOrderQty, packSize int) int {
	need := math.Max(0, targetStock-currentStock)

	var rounded int
	if packSize <= 1 {
		rounded = int(math.Ceil(need))
	} else {
		rounded = int(math.Ceil(need/float64(packSize))) * packSize
	}

	if rounded == 0 {
		return 0
	}
	if rounded < minOrderQty {
		return minOrderQty
	}
	return rounded
}

// DaysOfCover returns how many days the current stock lasts at the average
// daily demand. The second return value is false when there is no demand
// signal to project from.
func DaysOfCover(currentStock, avgDaily float64) (float64, bool) {
	if avgDaily <= 0 {
		return 0, false
	}
	return currentStock / avgDaily, true
}

// Input is the full demand/inventory state for one SKU at one decision
// point. Zero values for Z, MinOrderQty and PackSize fall back to the
// package defaults; a zero AsOfDate means "now".
type Input struct {
	SKU          string
	AvgDaily     float64
	Sigma        float64
	LeadTimeDays int
	CurrentStock float64
	TargetStock  float64
	AsOfDate     time.Time
	Z            float64
	MinOrderQty  int
	PackSize     int

	// Generator optionally phrases the rationale. Any failure or empty
	// output falls back to the deterministic template; recommendations are
	// produced even when the capability is unreachable.
	Generator llm.TextGenerator
}

// ComputeRecommendation evaluates the reorder heuristics for one SKU and
// returns the immutable recommendation record, including the debug payload
// with every intermediate quantity.
func ComputeRecommendation(ctx context.Context, in Input) domain.Recommendation {
	asOf := in.AsOfDate
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	z := in.Z
	if z <= 0 {
		z = DefaultZ
	}
	minOrder := in.MinOrderQty
	if minOrder <= 0 {
		minOrder = DefaultMinOrderQty
	}
	packSize := in.PackSize
	if packSize <= 0 {
		packSize = 1
	}

	safety := SafetyStock(in.Sigma, float64(in.LeadTimeDays), z)
	rop := ReorderPoint(in.AvgDaily, safety, float64(in.LeadTimeDays))
	qty := RecommendedQtyUpToTarget(in.CurrentStock, in.TargetStock, minOrder, packSize)

	var reorderBy *time.Time
	var reason string
	switch {
	case in.CurrentStock < rop:
		d := dateOf(asOf)
		reorderBy = &d
		reason = ReasonBelowReorderPoint
	default:
		cover, ok := DaysOfCover(in.CurrentStock, in.AvgDaily)
		if !ok {
			reason = ReasonNoDemand
		} else {
			daysUntilReorder := math.Max(0, cover-rop/in.AvgDaily)
			latestOrderInDays := daysUntilReorder - float64(in.LeadTimeDays)
			if latestOrderInDays <= 0 {
				d := dateOf(asOf)
				reorderBy = &d
				reason = ReasonWithinLeadTime
			} else {
				d := dateOf(asOf.Add(time.Duration(latestOrderInDays * 24 * float64(time.Hour))))
				reorderBy = &d
				reason = ReasonScheduled
			}
		}
	}

	diff := math.Max(0, rop-in.CurrentStock)
	confidence := 0.5 + diff/(rop+1)
	confidence = math.Max(0, math.Min(0.99, confidence))
	confidence = math.Round(confidence*100) / 100

	debug := domain.RecommendationDebug{
		SKU:            in.SKU,
		AvgDaily:       in.AvgDaily,
		Sigma:          in.Sigma,
		LeadTimeDays:   in.LeadTimeDays,
		SafetyStock:    safety,
		ReorderPoint:   rop,
		CurrentStock:   in.CurrentStock,
		TargetStock:    in.TargetStock,
		RecommendedQty: qty,
		AsOfDate:       dateOf(asOf).Format("2006-01-02"),
		ReorderReason:  reason,
		PackSize:       packSize,
	}

	rationale := ""
	if in.Generator != nil {
		text, err := in.Generator.Generate(ctx, BuildPrompt(debug))
		if err != nil {
			log.Debug().Err(err).Str("sku", in.SKU).Msg("rationale generation failed, using template")
		} else {
			rationale = strings.TrimSpace(text)
		}
	}
	if rationale == "" {
		rationale = DefaultRationale(debug)
	}

	var reorderByStr *string
	if reorderBy != nil {
		s := reorderBy.Format("2006-01-02")
		reorderByStr = &s
	}

	return domain.Recommendation{
		SKU:            in.SKU,
		RecommendedQty: qty,
		ReorderByDate:  reorderByStr,
		Confidence:     confidence,
		Rationale:      rationale,
		Debug:          debug,
	}
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
