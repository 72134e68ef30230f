package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/retailinsight/backend-go/internal/domain"
	"github.com/retailinsight/backend-go/internal/recommend"
	"github.com/retailinsight/backend-go/internal/service"
)

type ForecastHandler struct {
	service *service.ForecastService
}

func NewForecastHandler(svc *service.ForecastService) *ForecastHandler {
	return &ForecastHandler{service: svc}
}

func Health(svc *service.ForecastService) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{"status": "ok"}
		if svc != nil {
			status["model_ready"] = svc.Ready()
			status["encoder_revision"] = svc.EncoderRevision()
		}
		c.JSON(http.StatusOK, status)
	}
}

func (h *ForecastHandler) GetForecast(c *gin.Context) {
	horizon, _ := strconv.Atoi(c.DefaultQuery("horizon", "0"))

	resp, err := h.service.Forecast(c.Request.Context(), domain.ProductID(c.Param("id")), horizon)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ForecastHandler) GetRecommendation(c *gin.Context) {
	cfg := recommend.DefaultConfig()
	if v := c.Query("safety_factor"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.SafetyFactor = f
		}
	}
	if v := c.Query("lead_time"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LeadTimePeriods = n
		}
	}
	if v := c.Query("service_level"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ServiceLevel = f
		}
	}
	if v := c.Query("min_order_unit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MinOrderUnit = n
		}
	}

	rec, err := h.service.Recommend(c.Request.Context(), domain.ProductID(c.Param("id")), cfg)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *ForecastHandler) Train(c *gin.Context) {
	result, err := h.service.Train(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "trained",
		"stats":  result.Stats,
	})
}

func (h *ForecastHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Stats())
}

func (h *ForecastHandler) ListRecommendations(c *gin.Context) {
	recs := h.service.Recommendations()
	c.JSON(http.StatusOK, gin.H{"recommendations": recs, "count": len(recs)})
}
