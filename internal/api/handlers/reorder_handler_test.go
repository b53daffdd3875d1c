package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsagent/opsagent/internal/domain"
	"github.com/opsagent/opsagent/internal/service"
)

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	sales := "date,sku,qty_sold\n"
	for day := 1; day <= 14; day++ {
		sales += fmt.Sprintf("2024-05-%02d,SKU-A,5\n", day)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sales_history.csv"), []byte(sales), 0644))

	suppliers := "sku,lead_time_days,current_stock,target_stock,pack_size\nSKU-A,7,10,100,1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "suppliers.csv"), []byte(suppliers), 0644))

	return dir
}

func newTestRouter(dataDir string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	reorderHandler := NewReorderHandler(ReorderHandlerConfig{
		Service:     service.NewRecommendationService(2),
		DataDir:     dataDir,
		Window:      14,
		Z:           1.65,
		MinOrderQty: 1,
	})
	router.POST("/api/v1/recommend", reorderHandler.Recommend)

	router.DELETE("/api/v1/cache", reorderHandler.InvalidateCache)

	backtestHandler := NewBacktestHandler(dataDir, 14, 1.65)
	router.POST("/api/v1/backtest", backtestHandler.Run)

	return router
}

func TestInvalidateCacheEndpoint(t *testing.T) {
	router := newTestRouter(t.TempDir())

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cache", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecommendEndpointDefaults(t *testing.T) {
	router := newTestRouter(writeFixtures(t))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommend", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.BatchRecommendations
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Recommendations, 1)

	got := result.Recommendations[0]
	assert.Equal(t, "SKU-A", got.SKU)
	assert.InDelta(t, 5.0, got.Debug.AvgDaily, 1e-9)
	assert.Equal(t, 90, got.RecommendedQty)
	assert.NotEmpty(t, got.Rationale)
}

func TestRecommendEndpointMissingSales(t *testing.T) {
	router := newTestRouter(t.TempDir())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommend", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to load sales")
}

func TestBacktestEndpoint(t *testing.T) {
	router := newTestRouter(writeFixtures(t))

	body, err := json.Marshal(map[string]any{"window": 7})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/backtest", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.BacktestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Contains(t, result.Summary, "SKU-A")
	assert.NotEmpty(t, result.History)
}

func TestBacktestEndpointRejectsBadDate(t *testing.T) {
	router := newTestRouter(writeFixtures(t))

	body := []byte(`{"start": "05/01/2024"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/backtest", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid start date")
}
