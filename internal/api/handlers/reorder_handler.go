package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/opsagent/opsagent/internal/cache"
	"github.com/opsagent/opsagent/internal/dataset"
	"github.com/opsagent/opsagent/internal/llm"
	"github.com/opsagent/opsagent/internal/service"
)

// ReorderHandlerConfig carries the collaborators and defaults for the
// recommendation endpoint.
type ReorderHandlerConfig struct {
	Service     *service.RecommendationService
	Cache       cache.RecommendationCache
	Generator   llm.TextGenerator
	DataDir     string
	Window      int
	Z           float64
	MinOrderQty int
}

type ReorderHandler struct {
	cfg ReorderHandlerConfig
}

func NewReorderHandler(cfg ReorderHandlerConfig) *ReorderHandler {
	if cfg.Cache == nil {
		cfg.Cache = cache.NewNoopRecommendationCache()
	}
	return &ReorderHandler{cfg: cfg}
}

type recommendRequest struct {
	SalesPath     string  `json:"sales_path"`
	SuppliersPath string  `json:"suppliers_path"`
	Window        int     `json:"window"`
	Z             float64 `json:"z"`
	MinOrderQty   int     `json:"min_order_qty"`
}

// Recommend computes reorder recommendations for every SKU in the sales
// history. The request body is optional; defaults come from the data dir
// and the configured engine parameters.
func (h *ReorderHandler) Recommend(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	h.applyDefaults(&req)

	key := cache.BuildKey(
		req.SalesPath,
		req.SuppliersPath,
		strconv.Itoa(req.Window),
		strconv.FormatFloat(req.Z, 'f', -1, 64),
		strconv.Itoa(req.MinOrderQty),
	)
	if cached, ok, err := h.cfg.Cache.Get(c.Request.Context(), key); err != nil {
		log.Warn().Err(err).Msg("recommend: cache get failed")
	} else if ok {
		c.JSON(http.StatusOK, cached)
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

	result, err := h.cfg.Service.RecommendAll(c.Request.Context(), sales, suppliers, service.RecommendationOptions{
		Window:      req.Window,
		Z:           req.Z,
		MinOrderQty: req.MinOrderQty,
		Generator:   h.cfg.Generator,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to compute recommendations", "details": err.Error()})
		return
	}

	if err := h.cfg.Cache.Set(c.Request.Context(), key, result); err != nil {
		log.Warn().Err(err).Msg("recommend: cache set failed")
	}

	c.JSON(http.StatusOK, result)
}

// InvalidateCache drops every cached recommendation response, for use after
// replacing the data files on disk.
func (h *ReorderHandler) InvalidateCache(c *gin.Context) {
	if err := h.cfg.Cache.InvalidateAll(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to invalidate cache", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *ReorderHandler) applyDefaults(req *recommendRequest) {
	if req.SalesPath == "" {
		req.SalesPath = filepath.Join(h.cfg.DataDir, dataset.SalesFileName)
	}
	if req.SuppliersPath == "" {
		req.SuppliersPath = filepath.Join(h.cfg.DataDir, dataset.SuppliersFileName)
	}
	if req.Window <= 0 {
		req.Window = h.cfg.Window
	}
	if req.Z <= 0 {
		req.Z = h.cfg.Z
	}
	if req.MinOrderQty <= 0 {
		req.MinOrderQty = h.cfg.MinOrderQty
	}
}
