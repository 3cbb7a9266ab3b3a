package dto

import "time"

// AnalyticsQuery selects the analytics of one teacher.
type AnalyticsQuery struct {
	UserID string `form:"userId" validate:"required"`
}

// StudentProgressInput is one graded copy in an analytics update.
type StudentProgressInput struct {
	CorrectionID string    `json:"correctionId" validate:"required"`
	CopyID       string    `json:"copyId"`
	Grade        float64   `json:"grade" validate:"gte=0,lte=20"`
	Date         time.Time `json:"date" validate:"required"`
}

// UpdateAnalyticsRequest merges the provided figures into the class analytics.
type UpdateAnalyticsRequest struct {
	UserID          string                 `json:"userId" validate:"required"`
	AverageGrade    *float64               `json:"averageGrade" validate:"omitempty,gte=0,lte=20"`
	SuccessRate     *float64               `json:"successRate" validate:"omitempty,gte=0,lte=100"`
	MonthlyProgress *float64               `json:"monthlyProgress"`
	StudentProgress []StudentProgressInput `json:"studentProgress" validate:"omitempty,dive"`
}
