package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/correction-api/internal/dto"
	"github.com/noah-isme/correction-api/internal/models"
	"github.com/noah-isme/correction-api/internal/repository"
	"github.com/noah-isme/correction-api/pkg/document"
	appErrors "github.com/noah-isme/correction-api/pkg/errors"
)

const courseCollection = "courses"

// CourseService stores the lesson plans of a teacher.
type CourseService struct {
	docs      documentStore
	sanitizer *document.Sanitizer
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewCourseService constructs a CourseService.
func NewCourseService(docs documentStore, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{
		docs:      docs,
		sanitizer: document.NewSanitizer(),
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create saves a new course. Status defaults to draft.
func (s *CourseService) Create(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	status := req.Status
	if status == "" {
		status = models.CourseStatusDraft
	}
	now := s.now()
	course := &models.Course{
		OwnerID:     req.UserID,
		Title:       req.Title,
		Description: req.Description,
		ClassLevel:  req.ClassLevel,
		Duration:    req.Duration,
		Objectives:  nonNilStrings(req.Objectives),
		Content:     req.Content,
		Resources:   nonNilStrings(req.Resources),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	body := course.Document()
	body[models.DocKeyCreatedAt] = document.Time(now)
	body[models.DocKeyUpdatedAt] = document.Time(now)

	start := time.Now()
	id, err := s.docs.Insert(ctx, courseCollection, course.OwnerID, s.sanitizer.SanitizeMap(body))
	s.metrics.ObserveDBQuery("courses.insert", time.Since(start))
	if err != nil {
		return nil, s.persistenceError(err, "failed to save course")
	}
	course.ID = id
	s.logger.Info("course created", zap.String("course_id", id), zap.String("user_id", course.OwnerID))
	return course, nil
}

// Get returns one course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	start := time.Now()
	raw, err := s.docs.Fetch(ctx, courseCollection, id)
	s.metrics.ObserveDBQuery("courses.fetch", time.Since(start))
	if err != nil {
		return nil, s.persistenceError(err, "failed to load course")
	}
	restored, err := s.sanitizer.RestoreMap(raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDataCorruption.Code, appErrors.ErrDataCorruption.Status, appErrors.ErrDataCorruption.Message)
	}
	return models.CourseFromDocument(id, restored), nil
}

// List returns the user's courses, most recently updated first.
func (s *CourseService) List(ctx context.Context, query dto.ListCoursesQuery) ([]models.Course, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid list query")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	start := time.Now()
	docs, err := s.docs.ListByOwner(ctx, courseCollection, query.UserID, limit)
	s.metrics.ObserveDBQuery("courses.list", time.Since(start))
	if err != nil {
		return nil, nil, s.persistenceError(err, "failed to list courses")
	}
	courses := make([]models.Course, 0, len(docs))
	for _, doc := range docs {
		restored, err := s.sanitizer.RestoreMap(doc.Body)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrDataCorruption.Code, appErrors.ErrDataCorruption.Status, appErrors.ErrDataCorruption.Message)
		}
		courses = append(courses, *models.CourseFromDocument(doc.ID, restored))
	}
	return courses, &models.Pagination{Page: 1, PageSize: limit, TotalCount: len(courses)}, nil
}

// Update merges the provided fields into the course and returns the stored result.
func (s *CourseService) Update(ctx context.Context, id string, req dto.UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	patch := models.CoursePatch{
		Title:       req.Title,
		Description: req.Description,
		ClassLevel:  req.ClassLevel,
		Duration:    req.Duration,
		Objectives:  req.Objectives,
		Content:     req.Content,
		Resources:   req.Resources,
		Status:      req.Status,
	}
	if patch.Empty() {
		return s.Get(ctx, id)
	}
	partial := patch.Document()
	partial[models.DocKeyUpdatedAt] = document.Time(s.now())

	start := time.Now()
	err := s.docs.MergeUpdate(ctx, courseCollection, id, s.sanitizer.SanitizeMap(partial))
	s.metrics.ObserveDBQuery("courses.merge", time.Since(start))
	if err != nil {
		return nil, s.persistenceError(err, "failed to update course")
	}
	return s.Get(ctx, id)
}

// Delete removes the course. Deleting an unknown id succeeds.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := s.docs.Remove(ctx, courseCollection, id)
	s.metrics.ObserveDBQuery("courses.remove", time.Since(start))
	if err != nil {
		return s.persistenceError(err, "failed to delete course")
	}
	return nil
}

func (s *CourseService) persistenceError(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrDocumentNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	case errors.Is(err, repository.ErrDocumentTooLarge):
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "course exceeds the document size limit")
	default:
		s.logger.Warn(message, zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, message)
	}
}

func nonNilStrings(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
