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

type assistService interface {
	SuggestRubric(ctx context.Context, classLevel, subject string, totalPoints float64) (*models.RubricSuggestion, error)
	SuggestExercises(ctx context.Context, req models.ExerciseRequest) ([]string, error)
}

// AssistHandler exposes the teaching assistant endpoints.
type AssistHandler struct {
	assist assistService
}

// NewAssistHandler constructs the handler.
func NewAssistHandler(assist assistService) *AssistHandler {
	return &AssistHandler{assist: assist}
}

// Rubric godoc
// @Summary Suggest a grading rubric
// @Tags Assist
// @Accept json
// @Produce json
// @Param payload body dto.RubricSuggestionRequest true "Rubric request"
// @Success 200 {object} response.Envelope
// @Router /assist/rubric [post]
func (h *AssistHandler) Rubric(c *gin.Context) {
	var req dto.RubricSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rubric request"))
		return
	}
	suggestion, err := h.assist.SuggestRubric(c.Request.Context(), req.ClassLevel, req.Subject, req.TotalPoints)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, suggestion, nil)
}

// Exercises godoc
// @Summary Suggest exercises
// @Tags Assist
// @Accept json
// @Produce json
// @Param payload body models.ExerciseRequest true "Exercise request"
// @Success 200 {object} response.Envelope
// @Router /assist/exercises [post]
func (h *AssistHandler) Exercises(c *gin.Context) {
	var req models.ExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exercise request"))
		return
	}
	exercises, err := h.assist.SuggestExercises(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ExerciseSuggestions{Exercises: exercises}, nil)
}
