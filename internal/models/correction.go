package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/noah-isme/correction-api/pkg/document"
)

// CorrectionStatus enumerates the lifecycle of a correction project.
type CorrectionStatus string

const (
	CorrectionStatusDraft      CorrectionStatus = "draft"
	CorrectionStatusInProgress CorrectionStatus = "in_progress"
	CorrectionStatusCompleted  CorrectionStatus = "completed"
)

func (s CorrectionStatus) rank() int {
	switch s {
	case CorrectionStatusDraft:
		return 0
	case CorrectionStatusInProgress:
		return 1
	case CorrectionStatusCompleted:
		return 2
	default:
		return -1
	}
}

// Valid reports whether s is a known status.
func (s CorrectionStatus) Valid() bool {
	return s.rank() >= 0
}

// CanTransitionTo reports whether moving from s to next keeps the lifecycle forward-only.
// Staying in the same status is allowed.
func (s CorrectionStatus) CanTransitionTo(next CorrectionStatus) bool {
	return s.Valid() && next.Valid() && next.rank() >= s.rank()
}

// Criterion is one line of a grading rubric.
type Criterion struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Points      float64 `json:"points"`
}

// Copy is one submitted file and its correction.
type Copy struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Content          string    `json:"content"`
	CorrectionResult *string   `json:"correctionResult,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	Archived         bool      `json:"archived"`
}

// CorrectionProject aggregates the rubric and every copy corrected against it.
type CorrectionProject struct {
	ID          string           `json:"id"`
	OwnerID     string           `json:"userId"`
	Title       string           `json:"title"`
	ClassLevel  string           `json:"classLevel"`
	Subject     string           `json:"subject"`
	TotalPoints float64          `json:"totalPoints"`
	Status      CorrectionStatus `json:"status"`
	Criteria    []Criterion      `json:"criteria"`
	Copies      []Copy           `json:"copies"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// CorrectionProjectPatch carries the fields of a partial update; nil fields are left untouched.
// Copies, when set, replaces the whole sequence.
type CorrectionProjectPatch struct {
	Title       *string
	ClassLevel  *string
	Subject     *string
	TotalPoints *float64
	Status      *CorrectionStatus
	Criteria    *[]Criterion
	Copies      *[]Copy
}

// Document keys shared by the store and the models.
const (
	DocKeyOwnerID   = "userId"
	DocKeyCopies    = "copies"
	DocKeyCreatedAt = "createdAt"
	DocKeyUpdatedAt = "updatedAt"
)

// ActiveCopies returns the copies that are not archived.
func (p *CorrectionProject) ActiveCopies() []Copy {
	active := make([]Copy, 0, len(p.Copies))
	for _, c := range p.Copies {
		if !c.Archived {
			active = append(active, c)
		}
	}
	return active
}

// CriteriaTotal sums the points of every criterion.
func (p *CorrectionProject) CriteriaTotal() float64 {
	var total float64
	for _, c := range p.Criteria {
		total += c.Points
	}
	return total
}

// CriteriaMatchTotal reports whether the rubric adds up to the grading scale.
func (p *CorrectionProject) CriteriaMatchTotal() bool {
	return math.Abs(p.CriteriaTotal()-p.TotalPoints) < 1e-9
}

// RubricText renders the criteria one per line.
func (p *CorrectionProject) RubricText() string {
	var b strings.Builder
	for i, c := range p.Criteria {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s: %s points", c.Description, formatPoints(c.Points))
	}
	return b.String()
}

// FindCopy returns the index of the copy with id, or -1.
func (p *CorrectionProject) FindCopy(id string) int {
	for i, c := range p.Copies {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func formatPoints(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

// Document converts the project into its stored form. ID and timestamps are owned by the store.
func (p *CorrectionProject) Document() document.Map {
	return document.Map{
		DocKeyOwnerID: document.String(p.OwnerID),
		"title":       document.String(p.Title),
		"classLevel":  document.String(p.ClassLevel),
		"subject":     document.String(p.Subject),
		"totalPoints": document.Float(p.TotalPoints),
		"status":      document.String(p.Status),
		"criteria":    criteriaDocument(p.Criteria),
		DocKeyCopies:  CopiesDocument(p.Copies),
	}
}

// Document converts the patch into the partial stored form.
func (p CorrectionProjectPatch) Document() document.Map {
	out := document.Map{}
	if p.Title != nil {
		out["title"] = document.String(*p.Title)
	}
	if p.ClassLevel != nil {
		out["classLevel"] = document.String(*p.ClassLevel)
	}
	if p.Subject != nil {
		out["subject"] = document.String(*p.Subject)
	}
	if p.TotalPoints != nil {
		out["totalPoints"] = document.Float(*p.TotalPoints)
	}
	if p.Status != nil {
		out["status"] = document.String(*p.Status)
	}
	if p.Criteria != nil {
		out["criteria"] = criteriaDocument(*p.Criteria)
	}
	if p.Copies != nil {
		out[DocKeyCopies] = CopiesDocument(*p.Copies)
	}
	return out
}

// Empty reports whether the patch changes nothing.
func (p CorrectionProjectPatch) Empty() bool {
	return p.Title == nil && p.ClassLevel == nil && p.Subject == nil && p.TotalPoints == nil &&
		p.Status == nil && p.Criteria == nil && p.Copies == nil
}

func criteriaDocument(criteria []Criterion) document.List {
	list := make(document.List, 0, len(criteria))
	for _, c := range criteria {
		list = append(list, document.Map{
			"id":          document.String(c.ID),
			"description": document.String(c.Description),
			"points":      document.Float(c.Points),
		})
	}
	return list
}

// CopiesDocument converts copies into their stored form.
func CopiesDocument(copies []Copy) document.List {
	list := make(document.List, 0, len(copies))
	for _, c := range copies {
		item := document.Map{
			"id":        document.String(c.ID),
			"name":      document.String(c.Name),
			"content":   document.String(c.Content),
			"createdAt": document.Time(c.CreatedAt),
			"archived":  document.Bool(c.Archived),
		}
		if c.CorrectionResult != nil {
			item["correctionResult"] = document.String(*c.CorrectionResult)
		}
		list = append(list, item)
	}
	return list
}

// ProjectFromDocument reads a restored document back into a project.
func ProjectFromDocument(id string, m document.Map) *CorrectionProject {
	p := &CorrectionProject{
		ID:          id,
		OwnerID:     m.String(DocKeyOwnerID),
		Title:       m.String("title"),
		ClassLevel:  m.String("classLevel"),
		Subject:     m.String("subject"),
		TotalPoints: m.Float("totalPoints"),
		Status:      CorrectionStatus(m.String("status")),
		CreatedAt:   m.Time(DocKeyCreatedAt),
		UpdatedAt:   m.Time(DocKeyUpdatedAt),
	}
	if !p.Status.Valid() {
		p.Status = CorrectionStatusDraft
	}
	for _, item := range m.Maps("criteria") {
		p.Criteria = append(p.Criteria, Criterion{
			ID:          item.String("id"),
			Description: item.String("description"),
			Points:      item.Float("points"),
		})
	}
	for _, item := range m.Maps(DocKeyCopies) {
		c := Copy{
			ID:        item.String("id"),
			Name:      item.String("name"),
			Content:   item.String("content"),
			CreatedAt: item.Time("createdAt"),
			Archived:  item.Bool("archived"),
		}
		if item.Has("correctionResult") {
			result := item.String("correctionResult")
			c.CorrectionResult = &result
		}
		p.Copies = append(p.Copies, c)
	}
	if p.Criteria == nil {
		p.Criteria = []Criterion{}
	}
	if p.Copies == nil {
		p.Copies = []Copy{}
	}
	return p
}
