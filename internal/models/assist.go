package models

// RubricSuggestion is a proposed grading rubric.
type RubricSuggestion struct {
	Criteria    []Criterion `json:"criteria"`
	TotalPoints float64     `json:"totalPoints"`
	Raw         string      `json:"raw"`
}

// ExerciseRequest describes the exercises a teacher wants suggested.
type ExerciseRequest struct {
	ClassLevel string `json:"classLevel" validate:"required"`
	Objectives string `json:"objectives" validate:"required"`
	Duration   string `json:"duration" validate:"required"`
	Format     string `json:"format,omitempty"`
	Interests  string `json:"interests,omitempty"`
}
