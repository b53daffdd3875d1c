// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opsagent/opsagent/internal/api"
	"github.com/opsagent/opsagent/internal/cache"
	"github.com/opsagent/opsagent/internal/config"
	"github.com/opsagent/opsagent/internal/llm"
	"github.com/opsagent/opsagent/internal/service"
	"github.com/opsagent/opsagent/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Optional Gemini-backed rationale generation
	var generator llm.TextGenerator
	if cfg.LLM.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiGenerator(context.Background(), cfg.LLM.GeminiAPIKey, cfg.LLM.GeminiModel)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Gemini client unavailable, using template rationales")
		} else {
			defer gemini.Close()
			generator = llm.WithTimeout(gemini, time.Duration(cfg.LLM.TimeoutSeconds)*time.Second)
		}
	}

	// Optional Redis cache, with a no-op fallback
	recCache, err := cache.NewRecommendationCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Cache unavailable, continuing without caching")
		recCache = cache.NewNoopRecommendationCache()
	}

	recommendationService := service.NewRecommendationService(cfg.App.Workers)

	router := api.NewRouter(&api.Services{
		Recommendation: recommendationService,
		Cache:          recCache,
		Generator:      generator,
		DataDir:        cfg.App.DataDir,
		Window:         cfg.App.Window,
		Z:              cfg.App.Z,
		MinOrderQty:    cfg.App.MinOrderQty,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
