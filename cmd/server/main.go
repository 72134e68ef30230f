// backend-go/cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/retailinsight/backend-go/internal/api"
	"github.com/retailinsight/backend-go/internal/cache"
	"github.com/retailinsight/backend-go/internal/config"
	"github.com/retailinsight/backend-go/internal/pipeline"
	"github.com/retailinsight/backend-go/internal/repository/postgres"
	"github.com/retailinsight/backend-go/internal/service"
	"github.com/retailinsight/backend-go/internal/storage"
	"github.com/retailinsight/backend-go/pkg/logger"
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

	// Snapshot data
	snapshots := service.NewSnapshotStore(cfg.App.DataDir)
	if err := snapshots.Reload(); err != nil {
		logger.Log.Warn().Err(err).Str("data_dir", cfg.App.DataDir).
			Msg("no dataset snapshot available yet")
	}

	// Artifact storage: object storage when configured, local directory
	// otherwise.
	var store storage.ArtifactStore
	var err error
	if cfg.Storage.Enabled {
		store, err = storage.NewMinioStore(storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
		})
	} else {
		store, err = storage.NewLocalStore(cfg.App.ArtifactDir)
	}
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize artifact storage")
	}

	// Run telemetry is optional; the pipeline runs without a database.
	var recorder pipeline.RunRecorder
	if db, dbErr := postgres.NewDB(&cfg.Database); dbErr == nil {
		recorder = postgres.NewRunRepository(db)
		defer db.Close()
	} else {
		logger.Log.Warn().Err(dbErr).Msg("database unavailable, run telemetry disabled")
	}

	comparisonCache, err := cache.NewComparisonCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("comparison cache unavailable, using noop")
		comparisonCache = cache.NewNoopComparisonCache()
	}

	batchCfg := pipeline.DefaultBatchConfig()
	batchCfg.HorizonDays = cfg.Model.HorizonDays
	batchCfg.Train.MinObservations = cfg.Model.MinObservations
	batchCfg.Train.TrendWindow = cfg.Model.TrendWindowDays
	batchCfg.Features.MinHistory = cfg.Model.MinObservations
	batchCfg.Recommend.SafetyFactor = cfg.Recommend.SafetyFactor
	batchCfg.Recommend.LeadTimePeriods = cfg.Recommend.LeadTimeDays
	batchCfg.Recommend.ServiceLevel = cfg.Recommend.ServiceLevel
	batchCfg.Recommend.MinOrderUnit = cfg.Recommend.MinOrderUnit

	forecastService := service.NewForecastService(snapshots, store, recorder, batchCfg)
	if err := forecastService.LoadArtifacts(context.Background()); err != nil {
		logger.Log.Info().Err(err).Msg("no stored artifacts, train before forecasting")
	}

	services := &api.Services{
		ForecastService:   forecastService,
		ComparisonService: service.NewComparisonService(snapshots, comparisonCache),
		AnalyticsService:  service.NewAnalyticsService(snapshots),
		SnapshotStore:     snapshots,
	}

	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
