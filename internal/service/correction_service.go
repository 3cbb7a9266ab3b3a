package service

import (
	"context"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/correction-api/internal/dto"
	"github.com/noah-isme/correction-api/internal/models"
	"github.com/noah-isme/correction-api/pkg/lock"
	appErrors "github.com/noah-isme/correction-api/pkg/errors"
)

const defaultListLimit = 50

type correctionRepository interface {
	Create(ctx context.Context, project *models.CorrectionProject) (string, error)
	Get(ctx context.Context, id string) (*models.CorrectionProject, error)
	Update(ctx context.Context, id string, patch models.CorrectionProjectPatch) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.CorrectionProject, error)
}

// CorrectionService implements project workflows outside the batch pipeline.
// Every read-merge-write takes the same per-project lock as the pipeline.
type CorrectionService struct {
	store     correctionRepository
	locker    lock.Locker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCorrectionService builds a CorrectionService with sane defaults.
func NewCorrectionService(store correctionRepository, locker lock.Locker, validate *validator.Validate, logger *zap.Logger) *CorrectionService {
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CorrectionService{store: store, locker: locker, validator: validate, logger: logger}
}

// Create validates the rubric and stores a new draft project.
func (s *CorrectionService) Create(ctx context.Context, req dto.CreateCorrectionRequest) (*models.CorrectionProject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid correction payload")
	}
	criteria := toCriteria(req.Criteria)
	if err := checkCriteriaTotal(criteria, req.TotalPoints); err != nil {
		return nil, err
	}
	project := &models.CorrectionProject{
		OwnerID:     req.UserID,
		Title:       req.Title,
		ClassLevel:  req.ClassLevel,
		Subject:     req.Subject,
		TotalPoints: req.TotalPoints,
		Status:      models.CorrectionStatusDraft,
		Criteria:    criteria,
		Copies:      []models.Copy{},
	}
	if _, err := s.store.Create(ctx, project); err != nil {
		return nil, err
	}
	s.logger.Info("correction created", zap.String("correction_id", project.ID), zap.String("user_id", project.OwnerID))
	return project, nil
}

// Get returns a project.
func (s *CorrectionService) Get(ctx context.Context, id string) (*models.CorrectionProject, error) {
	return s.store.Get(ctx, id)
}

// List returns the user's projects, most recent first.
func (s *CorrectionService) List(ctx context.Context, query dto.ListCorrectionsQuery) ([]models.CorrectionProject, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid list query")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	projects, err := s.store.ListByOwner(ctx, query.UserID, limit)
	if err != nil {
		return nil, nil, err
	}
	return projects, &models.Pagination{Page: 1, PageSize: limit, TotalCount: len(projects)}, nil
}

// Update applies a partial update. Status only moves forward and the rubric must keep
// adding up to the grading scale.
func (s *CorrectionService) Update(ctx context.Context, id string, req dto.UpdateCorrectionRequest) (*models.CorrectionProject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid correction payload")
	}
	var result *models.CorrectionProject
	err := s.withProject(ctx, id, func(project *models.CorrectionProject) (*models.CorrectionProjectPatch, error) {
		patch := &models.CorrectionProjectPatch{
			Title:       req.Title,
			ClassLevel:  req.ClassLevel,
			Subject:     req.Subject,
			TotalPoints: req.TotalPoints,
			Status:      req.Status,
		}
		if req.Status != nil && !project.Status.CanTransitionTo(*req.Status) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot move correction from %s to %s", project.Status, *req.Status))
		}
		if req.Criteria != nil || req.TotalPoints != nil {
			criteria := project.Criteria
			if req.Criteria != nil {
				criteria = toCriteria(req.Criteria)
				patch.Criteria = &criteria
			}
			total := project.TotalPoints
			if req.TotalPoints != nil {
				total = *req.TotalPoints
			}
			if err := checkCriteriaTotal(criteria, total); err != nil {
				return nil, err
			}
		}
		if patch.Empty() {
			result = project
			return nil, nil
		}
		return patch, nil
	})
	if err != nil {
		return nil, err
	}
	if result != nil {
		return result, nil
	}
	return s.store.Get(ctx, id)
}

// Delete removes the project. Deleting twice is not an error.
func (s *CorrectionService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Complete moves the project to completed. Completing a completed project is a no-op.
func (s *CorrectionService) Complete(ctx context.Context, id string) (*models.CorrectionProject, error) {
	err := s.withProject(ctx, id, func(project *models.CorrectionProject) (*models.CorrectionProjectPatch, error) {
		if project.Status == models.CorrectionStatusCompleted {
			return nil, nil
		}
		status := models.CorrectionStatusCompleted
		return &models.CorrectionProjectPatch{Status: &status}, nil
	})
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// ArchiveCopy soft-deletes one copy. The copy stays in history but leaves the active set.
func (s *CorrectionService) ArchiveCopy(ctx context.Context, id, copyID string) (*models.CorrectionProject, error) {
	err := s.withProject(ctx, id, func(project *models.CorrectionProject) (*models.CorrectionProjectPatch, error) {
		idx := project.FindCopy(copyID)
		if idx < 0 {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "copy not found")
		}
		if project.Copies[idx].Archived {
			return nil, nil
		}
		copies := append([]models.Copy(nil), project.Copies...)
		copies[idx].Archived = true
		return &models.CorrectionProjectPatch{Copies: &copies}, nil
	})
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// withProject runs one serialized read-merge-write cycle. A nil patch skips the write.
func (s *CorrectionService) withProject(ctx context.Context, id string, fn func(*models.CorrectionProject) (*models.CorrectionProjectPatch, error)) error {
	unlock, err := s.locker.Lock(ctx, projectLockKey(id))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to acquire correction lock")
	}
	defer unlock()

	project, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	patch, err := fn(project)
	if err != nil || patch == nil {
		return err
	}
	return s.store.Update(ctx, id, *patch)
}

func projectLockKey(id string) string {
	return "correction:" + id
}

func toCriteria(inputs []dto.CriterionInput) []models.Criterion {
	criteria := make([]models.Criterion, 0, len(inputs))
	for _, in := range inputs {
		criteria = append(criteria, models.Criterion{ID: uuid.NewString(), Description: in.Description, Points: in.Points})
	}
	return criteria
}

func checkCriteriaTotal(criteria []models.Criterion, total float64) error {
	var sum float64
	for _, c := range criteria {
		sum += c.Points
	}
	if math.Abs(sum-total) > 1e-9 {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("criteria add up to %g points, expected %g", sum, total))
	}
	return nil
}
