// internal/api/api.go
package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/retailinsight/backend-go/internal/api/handlers"
	"github.com/retailinsight/backend-go/internal/api/middleware"
	"github.com/retailinsight/backend-go/internal/service"
)

type Services struct {
	ForecastService   *service.ForecastService
	ComparisonService *service.ComparisonService
	AnalyticsService  *service.AnalyticsService
	SnapshotStore     *service.SnapshotStore
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
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

	router.GET("/health", handlers.Health(services.ForecastService))

	apiGroup := router.Group("/api/v1")

	if services != nil {
		productHandler := handlers.NewProductHandler(services.SnapshotStore, services.AnalyticsService)
		productGroup := apiGroup.Group("/products")
		{
			productGroup.GET("", productHandler.ListProducts)
			productGroup.GET("/:id", productHandler.GetProduct)
			productGroup.GET("/:id/analytics/monthly", productHandler.GetMonthlyAnalytics)
			productGroup.GET("/:id/analytics/monthly/export", productHandler.ExportMonthlyAnalytics)
		}

		if services.ForecastService != nil {
			forecastHandler := handlers.NewForecastHandler(services.ForecastService)
			productGroup.GET("/:id/forecast", forecastHandler.GetForecast)
			productGroup.GET("/:id/recommendation", forecastHandler.GetRecommendation)

			batchGroup := apiGroup.Group("/batch")
			{
				batchGroup.POST("/train", forecastHandler.Train)
				batchGroup.GET("/stats", forecastHandler.GetStats)
				batchGroup.GET("/recommendations", forecastHandler.ListRecommendations)
			}
		}

		if services.ComparisonService != nil {
			comparisonHandler := handlers.NewComparisonHandler(services.ComparisonService)
			productGroup.GET("/:id/comparison", comparisonHandler.GetComparison)
			productGroup.GET("/:id/comparison/years", comparisonHandler.GetYears)
		}
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
