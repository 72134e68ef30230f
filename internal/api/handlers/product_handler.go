package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/retailinsight/backend-go/internal/domain"
	"github.com/retailinsight/backend-go/internal/service"
)

type ProductHandler struct {
	snapshots *service.SnapshotStore
	analytics *service.AnalyticsService
}

func NewProductHandler(snapshots *service.SnapshotStore, analytics *service.AnalyticsService) *ProductHandler {
	return &ProductHandler{snapshots: snapshots, analytics: analytics}
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	snap := h.snapshots.Get()
	if snap == nil {
		respondError(c, service.ErrNoSnapshot)
		return
	}

	products := make([]domain.Product, 0, len(snap.Products))
	for _, id := range snap.ProductIDs() {
		if p, ok := snap.Product(id); ok {
			products = append(products, p)
		}
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.snapshots.Product(domain.ProductID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetMonthlyAnalytics(c *gin.Context) {
	summary, err := h.analytics.Monthly(domain.ProductID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ProductHandler) ExportMonthlyAnalytics(c *gin.Context) {
	id := c.Param("id")

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_monthly.csv", id))

	if err := h.analytics.ExportMonthlyCSV(domain.ProductID(id), c.Writer); err != nil {
		respondError(c, err)
	}
}
