package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emra-dev/lms-api/internal/dto"
	"github.com/emra-dev/lms-api/internal/service"
	"github.com/emra-dev/lms-api/pkg/response"
)

type analyticsService interface {
	InstructorDashboard(ctx context.Context, viewer service.Viewer) (*dto.InstructorDashboard, error)
	StudentStats(ctx context.Context, viewer service.Viewer) (*dto.StudentStats, error)
}

// AnalyticsHandler exposes the dashboards.
type AnalyticsHandler struct {
	service analyticsService
	metrics *service.MetricsService
}

// NewAnalyticsHandler constructs the handler.
func NewAnalyticsHandler(svc analyticsService, metrics *service.MetricsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: svc, metrics: metrics}
}

// InstructorDashboard godoc
// @Summary Teacher analytics dashboard
// @Description Students, net revenue, 7-day revenue series and top courses.
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.ErrorBody
// @Router /analytics/instructor [get]
func (h *AnalyticsHandler) InstructorDashboard(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	dashboard, err := h.service.InstructorDashboard(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}

// StudentStats godoc
// @Summary Learner progress overview
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /analytics/student [get]
func (h *AnalyticsHandler) StudentStats(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	stats, err := h.service.StudentStats(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Metrics exposes the Prometheus scrape endpoint.
func (h *AnalyticsHandler) Metrics(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
