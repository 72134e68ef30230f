package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/retailinsight/backend-go/internal/domain"
	"github.com/retailinsight/backend-go/internal/service"
)

type ComparisonHandler struct {
	service *service.ComparisonService
}

func NewComparisonHandler(svc *service.ComparisonService) *ComparisonHandler {
	return &ComparisonHandler{service: svc}
}

// GetComparison serves year-over-year reports. Years come comma separated,
// e.g. ?years=2022,2023; omitting them compares every year on record.
func (h *ComparisonHandler) GetComparison(c *gin.Context) {
	var years []int
	if raw := strings.TrimSpace(c.Query("years")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			year, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year: " + part})
				return
			}
			years = append(years, year)
		}
	}

	reports, err := h.service.Compare(c.Request.Context(), domain.ProductID(c.Param("id")), years)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (h *ComparisonHandler) GetYears(c *gin.Context) {
	years, err := h.service.Years(domain.ProductID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"years": years})
}
