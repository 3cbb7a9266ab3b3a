package dto

import "github.com/noah-isme/correction-api/internal/models"

// CreateCourseRequest describes the payload for saving a course.
type CreateCourseRequest struct {
	UserID      string              `json:"userId" validate:"required"`
	Title       string              `json:"title" validate:"required,max=200"`
	Description string              `json:"description"`
	ClassLevel  string              `json:"classLevel" validate:"required"`
	Duration    string              `json:"duration"`
	Objectives  []string            `json:"objectives" validate:"omitempty,dive,required"`
	Content     string              `json:"content"`
	Resources   []string            `json:"resources" validate:"omitempty,dive,required"`
	Status      models.CourseStatus `json:"status" validate:"omitempty,oneof=draft published"`
}

// UpdateCourseRequest describes a partial course update. Omitted fields are left untouched.
type UpdateCourseRequest struct {
	Title       *string              `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string              `json:"description"`
	ClassLevel  *string              `json:"classLevel" validate:"omitempty,min=1"`
	Duration    *string              `json:"duration"`
	Objectives  *[]string            `json:"objectives" validate:"omitempty,dive,required"`
	Content     *string              `json:"content"`
	Resources   *[]string            `json:"resources" validate:"omitempty,dive,required"`
	Status      *models.CourseStatus `json:"status" validate:"omitempty,oneof=draft published"`
}

// ListCoursesQuery filters the course list.
type ListCoursesQuery struct {
	UserID string `form:"userId" validate:"required"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=200"`
}
