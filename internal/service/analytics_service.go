package service

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/correction-api/internal/dto"
	"github.com/noah-isme/correction-api/internal/models"
	"github.com/noah-isme/correction-api/internal/repository"
	"github.com/noah-isme/correction-api/pkg/document"
	appErrors "github.com/noah-isme/correction-api/pkg/errors"
)

const (
	analyticsCollection   = "analytics"
	analyticsProjectLimit = 200
	passingGrade          = models.GradeScale / 2
)

// analyticsNamespace derives one stable document id per (user, class level).
var analyticsNamespace = uuid.MustParse("3d1b5c0e-7a4f-4f61-9a52-1c2e8f6b0d47")

var gradePattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*/\s*(\d+(?:[.,]\d+)?)`)

type analyticsStore interface {
	Fetch(ctx context.Context, collection, id string) (document.Map, error)
	MergeUpsert(ctx context.Context, collection, id, ownerID string, partial document.Map) error
	ListByOwner(ctx context.Context, collection, ownerID string, limit int) ([]repository.StoredDocument, error)
}

type projectLister interface {
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.CorrectionProject, error)
}

// AnalyticsService keeps per-class grading statistics, keyed by teacher and class level.
type AnalyticsService struct {
	docs      analyticsStore
	projects  projectLister
	sanitizer *document.Sanitizer
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewAnalyticsService constructs an AnalyticsService.
func NewAnalyticsService(docs analyticsStore, projects projectLister, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		docs:      docs,
		projects:  projects,
		sanitizer: document.NewSanitizer(),
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AnalyticsID returns the document id of the analytics of userID for classLevel.
func AnalyticsID(userID, classLevel string) string {
	return uuid.NewSHA1(analyticsNamespace, []byte(userID+"_"+classLevel)).String()
}

// Update merges the provided figures into the class analytics, creating them on first use.
func (s *AnalyticsService) Update(ctx context.Context, classLevel string, req dto.UpdateAnalyticsRequest) (*models.ClassAnalytics, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid analytics payload")
	}
	if strings.TrimSpace(classLevel) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classLevel is required")
	}
	partial := document.Map{
		models.DocKeyOwnerID: document.String(req.UserID),
		"classLevel":         document.String(classLevel),
	}
	if req.AverageGrade != nil {
		partial["averageGrade"] = document.Float(*req.AverageGrade)
	}
	if req.SuccessRate != nil {
		partial["successRate"] = document.Float(*req.SuccessRate)
	}
	if req.MonthlyProgress != nil {
		partial["monthlyProgress"] = document.Float(*req.MonthlyProgress)
	}
	if req.StudentProgress != nil {
		progress := make([]models.StudentProgress, 0, len(req.StudentProgress))
		for _, p := range req.StudentProgress {
			progress = append(progress, models.StudentProgress{CorrectionID: p.CorrectionID, CopyID: p.CopyID, Grade: p.Grade, Date: p.Date})
		}
		a := models.ClassAnalytics{StudentProgress: progress}
		partial["studentProgress"] = a.Document()["studentProgress"]
	}
	if err := s.merge(ctx, req.UserID, classLevel, partial); err != nil {
		return nil, err
	}
	return s.Get(ctx, req.UserID, classLevel)
}

// Refresh recomputes the class analytics from the graded copies of the user's projects
// for classLevel and stores the result.
func (s *AnalyticsService) Refresh(ctx context.Context, userID, classLevel string) (*models.ClassAnalytics, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(classLevel) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "userId and classLevel are required")
	}
	projects, err := s.projects.ListByOwner(ctx, userID, analyticsProjectLimit)
	if err != nil {
		return nil, err
	}
	analytics := ComputeClassAnalytics(userID, classLevel, projects)
	if err := s.merge(ctx, userID, classLevel, analytics.Document()); err != nil {
		return nil, err
	}
	s.logger.Info("class analytics refreshed",
		zap.String("user_id", userID),
		zap.String("class_level", classLevel),
		zap.Int("grades", len(analytics.StudentProgress)))
	return s.Get(ctx, userID, classLevel)
}

// Get returns the analytics of userID for classLevel.
func (s *AnalyticsService) Get(ctx context.Context, userID, classLevel string) (*models.ClassAnalytics, error) {
	id := AnalyticsID(userID, classLevel)
	start := time.Now()
	raw, err := s.docs.Fetch(ctx, analyticsCollection, id)
	s.metrics.ObserveDBQuery("analytics.fetch", time.Since(start))
	if err != nil {
		return nil, s.persistenceError(err, "failed to load analytics")
	}
	restored, err := s.sanitizer.RestoreMap(raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDataCorruption.Code, appErrors.ErrDataCorruption.Status, appErrors.ErrDataCorruption.Message)
	}
	return models.AnalyticsFromDocument(id, restored), nil
}

// List returns every class analytics of the user, most recently updated first.
func (s *AnalyticsService) List(ctx context.Context, query dto.AnalyticsQuery) ([]models.ClassAnalytics, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid analytics query")
	}
	start := time.Now()
	docs, err := s.docs.ListByOwner(ctx, analyticsCollection, query.UserID, 0)
	s.metrics.ObserveDBQuery("analytics.list", time.Since(start))
	if err != nil {
		return nil, s.persistenceError(err, "failed to list analytics")
	}
	out := make([]models.ClassAnalytics, 0, len(docs))
	for _, doc := range docs {
		restored, err := s.sanitizer.RestoreMap(doc.Body)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrDataCorruption.Code, appErrors.ErrDataCorruption.Status, appErrors.ErrDataCorruption.Message)
		}
		out = append(out, *models.AnalyticsFromDocument(doc.ID, restored))
	}
	return out, nil
}

func (s *AnalyticsService) merge(ctx context.Context, userID, classLevel string, partial document.Map) error {
	partial[models.DocKeyUpdatedAt] = document.Time(s.now())
	start := time.Now()
	err := s.docs.MergeUpsert(ctx, analyticsCollection, AnalyticsID(userID, classLevel), userID, s.sanitizer.SanitizeMap(partial))
	s.metrics.ObserveDBQuery("analytics.upsert", time.Since(start))
	if err != nil {
		return s.persistenceError(err, "failed to update analytics")
	}
	return nil
}

func (s *AnalyticsService) persistenceError(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrDocumentNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, "analytics not found")
	case errors.Is(err, repository.ErrDocumentTooLarge):
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "analytics exceed the document size limit")
	default:
		s.logger.Warn(message, zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, message)
	}
}

// ComputeClassAnalytics derives statistics from the active graded copies of the projects
// matching classLevel. Copies whose correction carries no "X/Y" grade are ignored.
func ComputeClassAnalytics(userID, classLevel string, projects []models.CorrectionProject) models.ClassAnalytics {
	out := models.ClassAnalytics{OwnerID: userID, ClassLevel: classLevel, StudentProgress: []models.StudentProgress{}}
	for _, project := range projects {
		if !strings.EqualFold(strings.TrimSpace(project.ClassLevel), strings.TrimSpace(classLevel)) {
			continue
		}
		for _, c := range project.ActiveCopies() {
			if c.CorrectionResult == nil {
				continue
			}
			grade, ok := ParseGrade(*c.CorrectionResult)
			if !ok {
				continue
			}
			out.StudentProgress = append(out.StudentProgress, models.StudentProgress{
				CorrectionID: project.ID,
				CopyID:       c.ID,
				Grade:        grade,
				Date:         c.CreatedAt,
			})
		}
	}
	if len(out.StudentProgress) == 0 {
		return out
	}
	sort.SliceStable(out.StudentProgress, func(i, j int) bool {
		return out.StudentProgress[i].Date.Before(out.StudentProgress[j].Date)
	})

	var sum float64
	passed := 0
	for _, p := range out.StudentProgress {
		sum += p.Grade
		if p.Grade >= passingGrade {
			passed++
		}
	}
	n := float64(len(out.StudentProgress))
	out.AverageGrade = round2(sum / n)
	out.SuccessRate = round2(float64(passed) / n * 100)
	out.MonthlyProgress = round2(monthlyProgress(out.StudentProgress))
	return out
}

// monthlyProgress compares the average of the latest month with the previous month that
// has grades, as a percentage. Grades must be sorted by date.
func monthlyProgress(grades []models.StudentProgress) float64 {
	type bucket struct {
		sum   float64
		count int
	}
	var months []string
	buckets := map[string]*bucket{}
	for _, g := range grades {
		key := g.Date.UTC().Format("2006-01")
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
			months = append(months, key)
		}
		b.sum += g.Grade
		b.count++
	}
	if len(months) < 2 {
		return 0
	}
	latest := buckets[months[len(months)-1]]
	previous := buckets[months[len(months)-2]]
	prevAvg := previous.sum / float64(previous.count)
	if prevAvg == 0 {
		return 0
	}
	return (latest.sum/float64(latest.count) - prevAvg) / prevAvg * 100
}

// ParseGrade reads the last "X/Y" mark of a correction and scales it to GradeScale.
func ParseGrade(text string) (float64, bool) {
	matches := gradePattern.FindAllStringSubmatch(text, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		num, err1 := strconv.ParseFloat(strings.Replace(matches[i][1], ",", ".", 1), 64)
		den, err2 := strconv.ParseFloat(strings.Replace(matches[i][2], ",", ".", 1), 64)
		if err1 != nil || err2 != nil || den <= 0 || num > den {
			continue
		}
		return round2(num / den * models.GradeScale), true
	}
	return 0, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
