package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/correction-api/internal/dto"
	"github.com/noah-isme/correction-api/internal/models"
	appErrors "github.com/noah-isme/correction-api/pkg/errors"
	"github.com/noah-isme/correction-api/pkg/response"
)

type analyticsService interface {
	List(ctx context.Context, query dto.AnalyticsQuery) ([]models.ClassAnalytics, error)
	Get(ctx context.Context, userID, classLevel string) (*models.ClassAnalytics, error)
	Update(ctx context.Context, classLevel string, req dto.UpdateAnalyticsRequest) (*models.ClassAnalytics, error)
	Refresh(ctx context.Context, userID, classLevel string) (*models.ClassAnalytics, error)
}

// AnalyticsHandler exposes class analytics endpoints.
type AnalyticsHandler struct {
	analytics analyticsService
}

// NewAnalyticsHandler constructs the handler.
func NewAnalyticsHandler(analytics analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// List godoc
// @Summary List class analytics of a user
// @Tags Analytics
// @Produce json
// @Param userId query string true "Owner ID"
// @Success 200 {object} response.Envelope
// @Router /analytics [get]
func (h *AnalyticsHandler) List(c *gin.Context) {
	query, ok := bindAnalyticsQuery(c)
	if !ok {
		return
	}
	items, err := h.analytics.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get the analytics of one class level
// @Tags Analytics
// @Produce json
// @Param classLevel path string true "Class level"
// @Param userId query string true "Owner ID"
// @Success 200 {object} response.Envelope
// @Router /analytics/{classLevel} [get]
func (h *AnalyticsHandler) Get(c *gin.Context) {
	query, ok := bindAnalyticsQuery(c)
	if !ok {
		return
	}
	analytics, err := h.analytics.Get(c.Request.Context(), query.UserID, c.Param("classLevel"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, analytics, nil)
}

// Update godoc
// @Summary Merge figures into the analytics of one class level
// @Tags Analytics
// @Accept json
// @Produce json
// @Param classLevel path string true "Class level"
// @Param payload body dto.UpdateAnalyticsRequest true "Figures to merge"
// @Success 200 {object} response.Envelope
// @Router /analytics/{classLevel} [put]
func (h *AnalyticsHandler) Update(c *gin.Context) {
	var req dto.UpdateAnalyticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid analytics payload"))
		return
	}
	analytics, err := h.analytics.Update(c.Request.Context(), c.Param("classLevel"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, analytics, nil)
}

// Refresh godoc
// @Summary Recompute the analytics of one class level from graded copies
// @Tags Analytics
// @Produce json
// @Param classLevel path string true "Class level"
// @Param userId query string true "Owner ID"
// @Success 200 {object} response.Envelope
// @Router /analytics/{classLevel}/refresh [post]
func (h *AnalyticsHandler) Refresh(c *gin.Context) {
	query, ok := bindAnalyticsQuery(c)
	if !ok {
		return
	}
	analytics, err := h.analytics.Refresh(c.Request.Context(), query.UserID, c.Param("classLevel"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, analytics, nil)
}

func bindAnalyticsQuery(c *gin.Context) (dto.AnalyticsQuery, bool) {
	var query dto.AnalyticsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return query, false
	}
	if query.UserID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "userId is required"))
		return query, false
	}
	return query, true
}
