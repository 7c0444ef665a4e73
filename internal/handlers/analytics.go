// internal/handlers/analytics.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ClockZinc/STAR-ENGINE/internal/services"
	"github.com/ClockZinc/STAR-ENGINE/internal/utils"
)

type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// GET /analytics/overview
func (h *AnalyticsHandler) GetOverview(c *gin.Context) {
	overview, err := h.analyticsService.GetDashboardOverview()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, overview)
}

// GET /analytics/assets/status-distribution
func (h *AnalyticsHandler) GetStatusDistribution(c *gin.Context) {
	rows, err := h.analyticsService.GetAssetStatusDistribution()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, rows)
}

// GET /analytics/assets/creation-trend
func (h *AnalyticsHandler) GetCreationTrend(c *gin.Context) {
	rows, err := h.analyticsService.GetAssetCreationTrend()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, rows)
}
