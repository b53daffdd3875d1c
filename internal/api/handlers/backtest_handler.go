package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opsagent/opsagent/internal/backtest"
	"github.com/opsagent/opsagent/internal/dataset"
)

type BacktestHandler struct {
	dataDir string
	window  int
	z       float64
}

func NewBacktestHandler(dataDir string, window int, z float64) *BacktestHandler {
	return &BacktestHandler{dataDir: dataDir, window: window, z: z}
}

type backtestRequest struct {
	SalesPath     string  `json:"sales_path"`
	SuppliersPath string  `json:"suppliers_path"`
	Start         string  `json:"start"`
	End           string  `json:"end"`
	Window        int     `json:"window"`
	Z             float64 `json:"z"`
}

// Run replays the sales history through the reorder engine and returns
// per-SKU service metrics plus the daily inventory trace.
func (h *BacktestHandler) Run(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if req.SalesPath == "" {
		req.SalesPath = filepath.Join(h.dataDir, dataset.SalesFileName)
	}
	if req.SuppliersPath == "" {
		req.SuppliersPath = filepath.Join(h.dataDir, dataset.SuppliersFileName)
	}
	if req.Window <= 0 {
		req.Window = h.window
	}
	if req.Z <= 0 {
		req.Z = h.z
	}

	start, err := parseOptionalDate(req.Start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date", "details": err.Error()})
		return
	}
	end, err := parseOptionalDate(req.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date", "details": err.Error()})
		return
	}

	sales, err := dataset.LoadSales(req.SalesPath)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to load sales", "details": err.Error()})
		return
	}

	suppliers, err := dataset.LoadSuppliers(req.SuppliersPath)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to load suppliers", "details": err.Error()})
		return
	}

	result, err := backtest.Run(c.Request.Context(), sales, suppliers, backtest.Options{
		Start:  start,
		End:    end,
		Window: req.Window,
		Z:      req.Z,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "backtest failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseOptionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
