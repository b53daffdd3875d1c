package reorder

import (
	"fmt"
	"strconv"

	"github.com/opsagent/opsagent/internal/domain"
)

// BuildPrompt summarizes every computed quantity into the prompt handed to
// the text generator.
func BuildPrompt(info domain.RecommendationDebug) string {
	return fmt.Sprintf(
		"Provide a short (<= 40 words) human-friendly explanation for a reorder recommendation.\n"+
			"SKU: %s\n"+
			"Avg daily demand: %.2f\n"+
			"Demand sigma: %.2f\n"+
			"Lead time (days): %d\n"+
			"Safety stock: %.1f\n"+
			"Reorder point: %.1f\n"+
			"Current stock: %s\n"+
			"Pack size: %d\n"+
			"Recommended order: %d\n"+
			"Target (order-up-to): %s\n"+
			"Return a single-sentence rationale.",
		info.SKU,
		info.AvgDaily,
		info.Sigma,
		info.LeadTimeDays,
		info.SafetyStock,
		info.ReorderPoint,
		formatQty(info.CurrentStock),
		info.PackSize,
		info.RecommendedQty,
		formatQty(info.TargetStock),
	)
}

// DefaultRationale is the deterministic fallback sentence built from the
// same quantities. It needs no external capability.
func DefaultRationale(info domain.RecommendationDebug) string {
	return fmt.Sprintf(
		"Demand (avg daily) ~ %.2f. Using lead time %d days and demand volatility (sigma) ~ %.2f, "+
			"safety stock ~ %.1f. Reorder point ~ %.1f. Current stock is %s, so recommended order is "+
			"%d units to top up to target %s.",
		info.AvgDaily,
		info.LeadTimeDays,
		info.Sigma,
		info.SafetyStock,
		info.ReorderPoint,
		formatQty(info.CurrentStock),
		info.RecommendedQty,
		formatQty(info.TargetStock),
	)
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
