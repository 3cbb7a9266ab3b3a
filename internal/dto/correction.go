package dto

import "github.com/noah-isme/correction-api/internal/models"

// CriterionInput describes one rubric line in a request.
type CriterionInput struct {
	Description string  `json:"description" validate:"required"`
	Points      float64 `json:"points" validate:"gt=0"`
}

// CreateCorrectionRequest describes the payload for creating a correction project.
type CreateCorrectionRequest struct {
	UserID      string           `json:"userId" validate:"required"`
	Title       string           `json:"title" validate:"required,max=200"`
	ClassLevel  string           `json:"classLevel" validate:"required"`
	Subject     string           `json:"subject" validate:"required"`
	TotalPoints float64          `json:"totalPoints" validate:"gt=0"`
	Criteria    []CriterionInput `json:"criteria" validate:"required,min=1,dive"`
}

// UpdateCorrectionRequest describes a partial update. Omitted fields are left untouched.
type UpdateCorrectionRequest struct {
	Title       *string                  `json:"title" validate:"omitempty,max=200"`
	ClassLevel  *string                  `json:"classLevel"`
	Subject     *string                  `json:"subject"`
	TotalPoints *float64                 `json:"totalPoints" validate:"omitempty,gt=0"`
	Status      *models.CorrectionStatus `json:"status" validate:"omitempty,oneof=draft in_progress completed"`
	Criteria    []CriterionInput         `json:"criteria" validate:"omitempty,dive"`
}

// ListCorrectionsQuery filters the list endpoint.
type ListCorrectionsQuery struct {
	UserID string `form:"userId" validate:"required"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=200"`
}

// SubmitBatchRequest is the JSON form of a batch submission.
type SubmitBatchRequest struct {
	Files []models.BatchFile `json:"files" binding:"required,min=1,dive"`
}

// BatchAccepted is returned when a batch starts.
type BatchAccepted struct {
	BatchID   string   `json:"batchId"`
	ProjectID string   `json:"projectId"`
	Files     []string `json:"files"`
}

// RubricSuggestionRequest asks for a rubric proposal.
type RubricSuggestionRequest struct {
	ClassLevel  string  `json:"classLevel" validate:"required"`
	Subject     string  `json:"subject" validate:"required"`
	TotalPoints float64 `json:"totalPoints" validate:"gt=0"`
}

// ExerciseSuggestions wraps suggested exercises.
type ExerciseSuggestions struct {
	Exercises []string `json:"exercises"`
}
