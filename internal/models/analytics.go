package models

import (
	"time"

	"github.com/noah-isme/correction-api/pkg/document"
)

// GradeScale is the scale every analytics grade is expressed on.
const GradeScale = 20.0

// StudentProgress is the grade of one corrected copy.
type StudentProgress struct {
	CorrectionID string    `json:"correctionId"`
	CopyID       string    `json:"copyId"`
	Grade        float64   `json:"grade"`
	Date         time.Time `json:"date"`
}

// ClassAnalytics summarises the grades a teacher gave in one class level.
// AverageGrade is on GradeScale; SuccessRate and MonthlyProgress are percentages.
type ClassAnalytics struct {
	ID              string            `json:"id"`
	OwnerID         string            `json:"userId"`
	ClassLevel      string            `json:"classLevel"`
	AverageGrade    float64           `json:"averageGrade"`
	SuccessRate     float64           `json:"successRate"`
	MonthlyProgress float64           `json:"monthlyProgress"`
	StudentProgress []StudentProgress `json:"studentProgress"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// Document converts the analytics into their stored form. The update time is owned by the store.
func (a *ClassAnalytics) Document() document.Map {
	progress := make(document.List, 0, len(a.StudentProgress))
	for _, p := range a.StudentProgress {
		progress = append(progress, document.Map{
			"correctionId": document.String(p.CorrectionID),
			"copyId":       document.String(p.CopyID),
			"grade":        document.Float(p.Grade),
			"date":         document.Time(p.Date),
		})
	}
	return document.Map{
		DocKeyOwnerID:     document.String(a.OwnerID),
		"classLevel":      document.String(a.ClassLevel),
		"averageGrade":    document.Float(a.AverageGrade),
		"successRate":     document.Float(a.SuccessRate),
		"monthlyProgress": document.Float(a.MonthlyProgress),
		"studentProgress": progress,
	}
}

// AnalyticsFromDocument reads stored analytics back.
func AnalyticsFromDocument(id string, m document.Map) *ClassAnalytics {
	a := &ClassAnalytics{
		ID:              id,
		OwnerID:         m.String(DocKeyOwnerID),
		ClassLevel:      m.String("classLevel"),
		AverageGrade:    m.Float("averageGrade"),
		SuccessRate:     m.Float("successRate"),
		MonthlyProgress: m.Float("monthlyProgress"),
		StudentProgress: []StudentProgress{},
		UpdatedAt:       m.Time(DocKeyUpdatedAt),
	}
	for _, item := range m.Maps("studentProgress") {
		a.StudentProgress = append(a.StudentProgress, StudentProgress{
			CorrectionID: item.String("correctionId"),
			CopyID:       item.String("copyId"),
			Grade:        item.Float("grade"),
			Date:         item.Time("date"),
		})
	}
	return a
}
