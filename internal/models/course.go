package models

import (
	"time"

	"github.com/noah-isme/correction-api/pkg/document"
)

// CourseStatus tells whether a course is still being written.
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
)

// Valid reports whether s is a known status.
func (s CourseStatus) Valid() bool {
	return s == CourseStatusDraft || s == CourseStatusPublished
}

// Course is a lesson plan prepared by a teacher for one class level.
type Course struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"userId"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	ClassLevel  string       `json:"classLevel"`
	Duration    string       `json:"duration"`
	Objectives  []string     `json:"objectives"`
	Content     string       `json:"content"`
	Resources   []string     `json:"resources"`
	Status      CourseStatus `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// CoursePatch carries the fields of a partial course update; nil fields are left untouched.
type CoursePatch struct {
	Title       *string
	Description *string
	ClassLevel  *string
	Duration    *string
	Objectives  *[]string
	Content     *string
	Resources   *[]string
	Status      *CourseStatus
}

// Document converts the course into its stored form. ID and timestamps are owned by the store.
func (c *Course) Document() document.Map {
	return document.Map{
		DocKeyOwnerID: document.String(c.OwnerID),
		"title":       document.String(c.Title),
		"description": document.String(c.Description),
		"classLevel":  document.String(c.ClassLevel),
		"duration":    document.String(c.Duration),
		"objectives":  stringsDocument(c.Objectives),
		"content":     document.String(c.Content),
		"resources":   stringsDocument(c.Resources),
		"status":      document.String(c.Status),
	}
}

// Document converts the patch into the partial stored form.
func (p CoursePatch) Document() document.Map {
	out := document.Map{}
	setString := func(key string, v *string) {
		if v != nil {
			out[key] = document.String(*v)
		}
	}
	setString("title", p.Title)
	setString("description", p.Description)
	setString("classLevel", p.ClassLevel)
	setString("duration", p.Duration)
	setString("content", p.Content)
	if p.Objectives != nil {
		out["objectives"] = stringsDocument(*p.Objectives)
	}
	if p.Resources != nil {
		out["resources"] = stringsDocument(*p.Resources)
	}
	if p.Status != nil {
		out["status"] = document.String(*p.Status)
	}
	return out
}

// Empty reports whether the patch changes nothing.
func (p CoursePatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.ClassLevel == nil && p.Duration == nil &&
		p.Objectives == nil && p.Content == nil && p.Resources == nil && p.Status == nil
}

// CourseFromDocument reads a stored document back into a course.
func CourseFromDocument(id string, m document.Map) *Course {
	c := &Course{
		ID:          id,
		OwnerID:     m.String(DocKeyOwnerID),
		Title:       m.String("title"),
		Description: m.String("description"),
		ClassLevel:  m.String("classLevel"),
		Duration:    m.String("duration"),
		Objectives:  m.Strings("objectives"),
		Content:     m.String("content"),
		Resources:   m.Strings("resources"),
		Status:      CourseStatus(m.String("status")),
		CreatedAt:   m.Time(DocKeyCreatedAt),
		UpdatedAt:   m.Time(DocKeyUpdatedAt),
	}
	if !c.Status.Valid() {
		c.Status = CourseStatusDraft
	}
	if c.Objectives == nil {
		c.Objectives = []string{}
	}
	if c.Resources == nil {
		c.Resources = []string{}
	}
	return c
}

func stringsDocument(items []string) document.List {
	list := make(document.List, 0, len(items))
	for _, item := range items {
		list = append(list, document.String(item))
	}
	return list
}
