// Package dataset loads the tabular inputs of the system: sales history and
// supplier parameter files. It can also generate a synthetic dataset for
// local runs and demos.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opsagent/opsagent/internal/domain"
)

const dateLayout = "2006-01-02"

// LoadSales reads a sales history CSV. Required columns: date, sku,
// qty_sold. Malformed rows are validation errors, fatal to the request.
func LoadSales(path string) ([]domain.DemandRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sales file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	colMap, err := readHeader(reader, []string{"date", "sku", "qty_sold"})
	if err != nil {
		return nil, fmt.Errorf("sales file %s: %w", path, err)
	}

	var records []domain.DemandRecord
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read sales record: %w", err)
		}
		line++

		date, err := time.Parse(dateLayout, strings.TrimSpace(record[colMap["date"]]))
		if err != nil {
			return nil, fmt.Errorf("sales line %d: invalid date: %w", line, err)
		}

		sku := strings.TrimSpace(record[colMap["sku"]])
		if sku == "" {
			return nil, fmt.Errorf("sales line %d: empty sku", line)
		}

		qty, err := strconv.Atoi(strings.TrimSpace(record[colMap["qty_sold"]]))
		if err != nil {
			return nil, fmt.Errorf("sales line %d: invalid qty_sold: %w", line, err)
		}
		if qty < 0 {
			return nil, fmt.Errorf("sales line %d: negative qty_sold %d", line, qty)
		}

		records = append(records, domain.DemandRecord{Date: date, SKU: sku, QtySold: qty})
	}

	return records, nil
}

// LoadSuppliers reads a supplier CSV. Required columns: sku, lead_time_days,
// current_stock, target_stock. The optional pack_size column defaults to 1
// and is coerced to 1 when non-positive or unparseable.
func LoadSuppliers(path string) ([]domain.SupplierProfile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open suppliers file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	colMap, err := readHeader(reader, []string{"sku", "lead_time_days", "current_stock", "target_stock"})
	if err != nil {
		return nil, fmt.Errorf("suppliers file %s: %w", path, err)
	}
	packCol, hasPack := colMap["pack_size"]

	var profiles []domain.SupplierProfile
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read supplier record: %w", err)
		}
		line++

		sku := strings.TrimSpace(record[colMap["sku"]])
		if sku == "" {
			return nil, fmt.Errorf("suppliers line %d: empty sku", line)
		}

		leadTime, err := parseIntField(record[colMap["lead_time_days"]])
		if err != nil {
			return nil, fmt.Errorf("suppliers line %d: invalid lead_time_days: %w", line, err)
		}
		currentStock, err := parseIntField(record[colMap["current_stock"]])
		if err != nil {
			return nil, fmt.Errorf("suppliers line %d: invalid current_stock: %w", line, err)
		}
		targetStock, err := parseIntField(record[colMap["target_stock"]])
		if err != nil {
			return nil, fmt.Errorf("suppliers line %d: invalid target_stock: %w", line, err)
		}

		packSize := 1
		if hasPack {
			if v, err := parseIntField(record[packCol]); err == nil && v > 0 {
				packSize = v
			}
		}

		profiles = append(profiles, domain.SupplierProfile{
			SKU:          sku,
			LeadTimeDays: leadTime,
			CurrentStock: currentStock,
			TargetStock:  targetStock,
			PackSize:     packSize,
		})
	}

	return profiles, nil
}

func readHeader(reader *csv.Reader, required []string) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	colMap := make(map[string]int, len(header))
	for i, col := range header {
		colMap[strings.TrimSpace(col)] = i
	}

	for _, col := range required {
		if _, ok := colMap[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	return colMap, nil
}

// parseIntField parses an integer cell, accepting plain floats like "7.0"
// the way spreadsheet exports often write them.
func parseIntField(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
