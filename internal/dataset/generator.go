package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// SalesFileName and SuppliersFileName are the default file names inside a
// data directory.
const (
	SalesFileName     = "sales_history.csv"
	SuppliersFileName = "suppliers.csv"
)

type sampleSKU struct {
	sku          string
	meanDemand   float64
	leadTimeDays int
	currentStock int
	targetStock  int
	packSize     int
}

var sampleSKUs = []sampleSKU{
	{"SKU-A", 10, 7, 35, 150, 1},
	{"SKU-B", 3, 14, 10, 200, 1},
	{"SKU-C", 8, 3, 60, 120, 6},
	{"SKU-D", 1, 21, 5, 300, 12},
	{"SKU-E", 5, 10, 80, 100, 1},
	{"SKU-F", 12, 5, 20, 180, 4},
}

// GenerateSampleData writes a synthetic sales_history.csv and suppliers.csv
// into dir: gaussian daily demand per SKU with occasional spikes, ending
// today. The seed makes the dataset reproducible.
func GenerateSampleData(dir string, days int, seed int64) error {
	if days <= 0 {
		days = 90
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	rng := rand.New(rand.NewSource(seed))
	start := time.Now().UTC().AddDate(0, 0, -(days - 1))

	salesPath := filepath.Join(dir, SalesFileName)
	salesFile, err := os.Create(salesPath)
	if err != nil {
		return fmt.Errorf("create sales file: %w", err)
	}
	defer salesFile.Close()

	writer := csv.NewWriter(salesFile)
	if err := writer.Write([]string{"date", "sku", "qty_sold"}); err != nil {
		return fmt.Errorf("write sales header: %w", err)
	}
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(dateLayout)
		for _, s := range sampleSKUs {
			stddev := math.Max(1, s.meanDemand*0.35)
			qty := int(rng.NormFloat64()*stddev + s.meanDemand)
			if qty < 0 {
				qty = 0
			}
			// occasional demand spike
			if rng.Float64() < 0.03 {
				qty += int(float64(qty) * (2 + rng.Float64()*3))
			}
			if err := writer.Write([]string{date, s.sku, strconv.Itoa(qty)}); err != nil {
				return fmt.Errorf("write sales row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush sales file: %w", err)
	}

	suppliersPath := filepath.Join(dir, SuppliersFileName)
	suppliersFile, err := os.Create(suppliersPath)
	if err != nil {
		return fmt.Errorf("create suppliers file: %w", err)
	}
	defer suppliersFile.Close()

	writer = csv.NewWriter(suppliersFile)
	if err := writer.Write([]string{"sku", "lead_time_days", "current_stock", "target_stock", "pack_size"}); err != nil {
		return fmt.Errorf("write suppliers header: %w", err)
	}
	for _, s := range sampleSKUs {
		row := []string{
			s.sku,
			strconv.Itoa(s.leadTimeDays),
			strconv.Itoa(s.currentStock),
			strconv.Itoa(s.targetStock),
			strconv.Itoa(s.packSize),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write supplier row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush suppliers file: %w", err)
	}

	return nil
}
