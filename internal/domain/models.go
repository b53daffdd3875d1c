// internal/domain/models.go
package domain

import "time"

// DemandRecord is a single raw sales transaction as loaded from a sales file.
// Records are unordered and may repeat the same (date, sku) pair.
type DemandRecord struct {
	Date    time.Time
	SKU     string
	QtySold int
}

// DailyDemand is one cell of the aggregated daily demand grid: for every
// selected SKU there is exactly one row per calendar day across the full
// observed date span, with missing days filled as zero.
type DailyDemand struct {
	Date    time.Time
	SKU     string
	QtySold int
}

// FeatureRow carries the causal rolling statistics for one SKU on one day.
// RollMean and RollStd are keyed by window size; a value computed for day d
// never includes day d's own sales.
type FeatureRow struct {
	Date     time.Time
	SKU      string
	QtySold  int
	RollMean map[int]float64
	RollStd  map[int]float64
}

// SupplierProfile holds the replenishment parameters for one SKU.
type SupplierProfile struct {
	SKU          string
	LeadTimeDays int
	CurrentStock int
	TargetStock  int
	PackSize     int // minimum order increment, 1 when not specified
}

// RecommendationDebug exposes every intermediate quantity behind a
// recommendation so the decision can be audited.
type RecommendationDebug struct {
	SKU            string  `json:"sku"`
	AvgDaily       float64 `json:"avg_daily"`
	Sigma          float64 `json:"sigma"`
	LeadTimeDays   int     `json:"lead_time_days"`
	SafetyStock    float64 `json:"safety_stock"`
	ReorderPoint   float64 `json:"reorder_point"`
	CurrentStock   float64 `json:"current_stock"`
	TargetStock    float64 `json:"target_stock"`
	RecommendedQty int     `json:"recommended_qty"`
	AsOfDate       string  `json:"as_of_date"`
	ReorderReason  string  `json:"reorder_reason"`
	PackSize       int     `json:"pack_size"`
}

// Recommendation is the immutable output of one reorder decision.
// ReorderByDate is an ISO date string; nil means no deadline could be
// projected (no demand signal).
type Recommendation struct {
	SKU            string              `json:"sku"`
	RecommendedQty int                 `json:"recommended_qty"`
	ReorderByDate  *string             `json:"reorder_by_date"`
	Confidence     float64             `json:"confidence"`
	Rationale      string              `json:"rationale"`
	Debug          RecommendationDebug `json:"debug"`
}

// RecommendationError reports a per-SKU failure inside a batch run without
// aborting the other SKUs.
type RecommendationError struct {
	SKU   string `json:"sku"`
	Error string `json:"error"`
}

// BatchRecommendations is the result of a batch recommendation run.
type BatchRecommendations struct {
	AsOf            string                `json:"as_of"`
	Recommendations []Recommendation      `json:"recommendations"`
	Errors          []RecommendationError `json:"errors,omitempty"`
}

// BacktestDay is one per-SKU end-of-day snapshot in a simulated run.
type BacktestDay struct {
	Date         time.Time `json:"date"`
	SKU          string    `json:"sku"`
	Demand       int       `json:"demand"`
	Sold         int       `json:"sold"`
	Stockout     int       `json:"stockout"`
	InventoryEnd int       `json:"inventory_end"`
}

// BacktestMetrics summarizes a single SKU over a simulated horizon.
type BacktestMetrics struct {
	ServiceLevel float64 `json:"service_level"`
	StockoutDays int     `json:"stockout_days"`
	TotalDays    int     `json:"total_days"`
	AvgInventory float64 `json:"avg_inventory"`
}

// BacktestResult holds the per-SKU summary and the full day-by-day history
// of a backtest run. SKUs with zero simulated days are absent from Summary.
type BacktestResult struct {
	Summary map[string]BacktestMetrics `json:"summary"`
	History []BacktestDay              `json:"history"`
}
