// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/opsagent/opsagent/internal/api/handlers"
	"github.com/opsagent/opsagent/internal/api/middleware"
	"github.com/opsagent/opsagent/internal/cache"
	"github.com/opsagent/opsagent/internal/llm"
	"github.com/opsagent/opsagent/internal/service"
)

// Services bundles everything the HTTP layer needs.
type Services struct {
	Recommendation *service.RecommendationService
	Cache          cache.RecommendationCache
	Generator      llm.TextGenerator
	DataDir        string
	Window         int
	Z              float64
	MinOrderQty    int
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		reorderHandler := handlers.NewReorderHandler(handlers.ReorderHandlerConfig{
			Service:     services.Recommendation,
			Cache:       services.Cache,
			Generator:   services.Generator,
			DataDir:     services.DataDir,
			Window:      services.Window,
			Z:           services.Z,
			MinOrderQty: services.MinOrderQty,
		})
		apiGroup.POST("/recommend", reorderHandler.Recommend)
		apiGroup.DELETE("/cache", reorderHandler.InvalidateCache)

		backtestHandler := handlers.NewBacktestHandler(services.DataDir, services.Window, services.Z)
		apiGroup.POST("/backtest", backtestHandler.Run)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
