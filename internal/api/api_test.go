package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailinsight/backend-go/internal/cache"
	"github.com/retailinsight/backend-go/internal/dataset"
	"github.com/retailinsight/backend-go/internal/domain"
	"github.com/retailinsight/backend-go/internal/pipeline"
	"github.com/retailinsight/backend-go/internal/service"
	"github.com/retailinsight/backend-go/internal/storage"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	products := []domain.Product{
		{ID: "P1", Name: "Rice 5kg", Category: "Staples", Cost: 10, MarginPercent: 20},
	}
	var sales []domain.SalesRecord
	var calendar []domain.CalendarEntry
	for i := 0; i < 60; i++ {
		d := base.AddDate(0, 0, i)
		calendar = append(calendar, domain.CalendarEntry{Date: d, SeasonTag: "regular", Weekday: d.Weekday()})
		sales = append(sales, domain.SalesRecord{
			Date: d, ProductID: "P1", QuantitySold: 5, Revenue: decimal.NewFromInt(60),
		})
	}
	snap, err := dataset.NewSnapshot(sales, products, calendar)
	require.NoError(t, err)

	snapshots := service.NewSnapshotStore("")
	snapshots.Set(snap)

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	forecastSvc := service.NewForecastService(snapshots, store, nil, pipeline.DefaultBatchConfig())
	_, err = forecastSvc.Train(context.Background())
	require.NoError(t, err)

	return NewRouter(&Services{
		ForecastService:   forecastSvc,
		ComparisonService: service.NewComparisonService(snapshots, cache.NewNoopComparisonCache()),
		AnalyticsService:  service.NewAnalyticsService(snapshots),
		SnapshotStore:     snapshots,
	}, nil)
}

func get(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter(t)

	w := get(t, router, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["model_ready"])
}

func TestListProducts(t *testing.T) {
	router := testRouter(t)

	w := get(t, router, "/api/v1/products")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Products []domain.Product `json:"products"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, domain.ProductID("P1"), body.Products[0].ID)
}

func TestGetForecast(t *testing.T) {
	router := testRouter(t)

	w := get(t, router, "/api/v1/products/P1/forecast?horizon=7")
	require.Equal(t, http.StatusOK, w.Code)

	var resp service.ForecastResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Forecasts, 7)
	assert.NotEmpty(t, resp.History)

	w = get(t, router, "/api/v1/products/MISSING/forecast")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRecommendation(t *testing.T) {
	router := testRouter(t)

	w := get(t, router, "/api/v1/products/P1/recommendation?safety_factor=0.2&lead_time=7")
	require.Equal(t, http.StatusOK, w.Code)

	var rec domain.StockRecommendation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, 0.2, rec.SafetyFactor)
	assert.Greater(t, rec.RecommendedQuantity, int64(0))
}

func TestGetComparison(t *testing.T) {
	router := testRouter(t)

	w := get(t, router, "/api/v1/products/P1/comparison?years=2023")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Reports []domain.ComparisonReport `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Reports, 1)
	assert.Equal(t, int64(300), body.Reports[0].TotalQuantity)

	w = get(t, router, "/api/v1/products/P1/comparison?years=nope")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMonthlyAnalyticsExport(t *testing.T) {
	router := testRouter(t)

	w := get(t, router, "/api/v1/products/P1/analytics/monthly/export")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Body.String(), "month,monthly_qty,monthly_revenue,monthly_profit")
}
