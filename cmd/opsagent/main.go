package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/opsagent/opsagent/internal/backtest"
	"github.com/opsagent/opsagent/internal/dataset"
	"github.com/opsagent/opsagent/internal/domain"
	"github.com/opsagent/opsagent/internal/llm"
	"github.com/opsagent/opsagent/internal/reorder"
	"github.com/opsagent/opsagent/internal/service"
)

func newDataDirFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "data-dir",
		Usage:   "Directory holding sales_history.csv and suppliers.csv",
		Value:   "./data",
		EnvVars: []string{"APP_DATA_DIR"},
	}
}

func newEngineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "sales",
			Usage: "Path to the sales history CSV (overrides --data-dir)",
		},
		&cli.StringFlag{
			Name:  "suppliers",
			Usage: "Path to the supplier profile CSV (overrides --data-dir)",
		},
		&cli.IntFlag{
			Name:    "window",
			Usage:   "Rolling window in days for demand statistics",
			Value:   reorder.DefaultWindow,
			EnvVars: []string{"APP_WINDOW"},
		},
		&cli.Float64Flag{
			Name:    "z",
			Usage:   "Service-level z-score for safety stock",
			Value:   reorder.DefaultZ,
			EnvVars: []string{"APP_Z"},
		},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "opsagent",
		Usage: "Inventory reorder recommendations and backtesting",
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Generate a synthetic sales and supplier dataset",
				Flags: []cli.Flag{
					newDataDirFlag(),
					&cli.IntFlag{
						Name:  "days",
						Usage: "Number of days of sales history to generate",
						Value: 90,
					},
					&cli.Int64Flag{
						Name:  "seed",
						Usage: "Random seed for reproducible datasets",
						Value: 42,
					},
				},
				Action: runGenerate,
			},
			{
				Name:  "recommend",
				Usage: "Compute reorder recommendations for every SKU",
				Flags: append(newEngineFlags(),
					newDataDirFlag(),
					&cli.IntFlag{
						Name:    "min-order-qty",
						Usage:   "Minimum units per placed order",
						Value:   reorder.DefaultMinOrderQty,
						EnvVars: []string{"APP_MIN_ORDER_QTY"},
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Write the JSON result to this file instead of stdout",
					},
				),
				Action: runRecommend,
			},
			{
				Name:  "backtest",
				Usage: "Replay historical demand through the reorder engine",
				Flags: append(newEngineFlags(),
					newDataDirFlag(),
					&cli.StringFlag{
						Name:  "start",
						Usage: "Inclusive start date (YYYY-MM-DD)",
					},
					&cli.StringFlag{
						Name:  "end",
						Usage: "Inclusive end date (YYYY-MM-DD)",
					},
					&cli.StringFlag{
						Name:  "history-out",
						Usage: "Write the daily inventory trace to this CSV file",
					},
				),
				Action: runBacktest,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runGenerate(c *cli.Context) error {
	dir := c.String("data-dir")
	if err := dataset.GenerateSampleData(dir, c.Int("days"), c.Int64("seed")); err != nil {
		return fmt.Errorf("failed to generate sample data: %w", err)
	}
	fmt.Printf("Wrote %s and %s\n",
		filepath.Join(dir, dataset.SalesFileName),
		filepath.Join(dir, dataset.SuppliersFileName))
	return nil
}

func runRecommend(c *cli.Context) error {
	sales, suppliers, err := loadInputs(c)
	if err != nil {
		return err
	}

	var generator llm.TextGenerator
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		gemini, err := llm.NewGeminiGenerator(c.Context, apiKey, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			log.Printf("warning: Gemini client unavailable, using template rationales: %v", err)
		} else {
			defer gemini.Close()
			generator = llm.WithTimeout(gemini, 10*time.Second)
		}
	}

	svc := service.NewRecommendationService(0)
	result, err := svc.RecommendAll(c.Context, sales, suppliers, service.RecommendationOptions{
		Window:      c.Int("window"),
		Z:           c.Float64("z"),
		MinOrderQty: c.Int("min-order-qty"),
		Generator:   generator,
	})
	if err != nil {
		return fmt.Errorf("failed to compute recommendations: %w", err)
	}

	return writeJSON(c.String("out"), result)
}

func runBacktest(c *cli.Context) error {
	sales, suppliers, err := loadInputs(c)
	if err != nil {
		return err
	}

	start, err := parseDateFlag(c.String("start"))
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	end, err := parseDateFlag(c.String("end"))
	if err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}

	result, err := backtest.Run(c.Context, sales, suppliers, backtest.Options{
		Start:  start,
		End:    end,
		Window: c.Int("window"),
		Z:      c.Float64("z"),
	})
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	if path := c.String("history-out"); path != "" {
		if err := writeHistoryCSV(path, result.History); err != nil {
			return fmt.Errorf("failed to write history: %w", err)
		}
	}

	summary := struct {
		Summary map[string]domain.BacktestMetrics `json:"summary"`
	}{Summary: result.Summary}
	return writeJSON("", &summary)
}

func loadInputs(c *cli.Context) ([]domain.DemandRecord, []domain.SupplierProfile, error) {
	salesPath := c.String("sales")
	if salesPath == "" {
		salesPath = filepath.Join(c.String("data-dir"), dataset.SalesFileName)
	}
	suppliersPath := c.String("suppliers")
	if suppliersPath == "" {
		suppliersPath = filepath.Join(c.String("data-dir"), dataset.SuppliersFileName)
	}

	sales, err := dataset.LoadSales(salesPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load sales: %w", err)
	}
	suppliers, err := dataset.LoadSuppliers(suppliersPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load suppliers: %w", err)
	}
	return sales, suppliers, nil
}

func parseDateFlag(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func writeJSON(path string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Println(string(payload))
		return nil
	}
	if err := os.WriteFile(path, append(payload, '\n'), 0644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func writeHistoryCSV(path string, history []domain.BacktestDay) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "sku", "demand", "sold", "stockout", "inventory_end"}); err != nil {
		return err
	}
	for _, day := range history {
		record := []string{
			day.Date.Format("2006-01-02"),
			day.SKU,
			strconv.Itoa(day.Demand),
			strconv.Itoa(day.Sold),
			strconv.Itoa(day.Stockout),
			strconv.Itoa(day.InventoryEnd),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
