package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/correction-api/internal/models"
	"github.com/noah-isme/correction-api/internal/repository"
	"github.com/noah-isme/correction-api/pkg/document"
	appErrors "github.com/noah-isme/correction-api/pkg/errors"
)

const (
	correctionCollection = "corrections"
	copyContentChunksKey = "contentChunks"
	copyContentLengthKey = "contentLength"
)

type documentStore interface {
	Insert(ctx context.Context, collection, ownerID string, body document.Map) (string, error)
	Fetch(ctx context.Context, collection, id string) (document.Map, error)
	MergeUpdate(ctx context.Context, collection, id string, partial document.Map) error
	Remove(ctx context.Context, collection, id string) error
	ListByOwner(ctx context.Context, collection, ownerID string, limit int) ([]repository.StoredDocument, error)
}

// CorrectionStore reads and writes correction projects in the document store.
// Copy contents are chunked on write and reassembled on read.
type CorrectionStore struct {
	docs      documentStore
	sanitizer *document.Sanitizer
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewCorrectionStore constructs a store chunking copy contents at chunkSize characters.
func NewCorrectionStore(docs documentStore, chunkSize int, metrics *MetricsService, logger *zap.Logger) *CorrectionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CorrectionStore{
		docs: docs,
		sanitizer: document.NewSanitizer(document.ChunkRule{
			Collection:  models.DocKeyCopies,
			Field:       "content",
			ChunksField: copyContentChunksKey,
			LengthField: copyContentLengthKey,
			Limit:       chunkSize,
		}),
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts the project and returns its new id. ID and timestamps are set on project.
func (s *CorrectionStore) Create(ctx context.Context, project *models.CorrectionProject) (string, error) {
	now := s.now()
	body := project.Document()
	body[models.DocKeyCreatedAt] = document.Time(now)
	body[models.DocKeyUpdatedAt] = document.Time(now)

	start := time.Now()
	id, err := s.docs.Insert(ctx, correctionCollection, project.OwnerID, s.sanitizer.SanitizeMap(body))
	s.metrics.ObserveDBQuery("corrections.insert", time.Since(start))
	if err != nil {
		return "", s.persistenceError(err, "failed to create correction")
	}
	project.ID = id
	project.CreatedAt = now
	project.UpdatedAt = now
	return id, nil
}

// Get loads a project with every copy content reassembled.
func (s *CorrectionStore) Get(ctx context.Context, id string) (*models.CorrectionProject, error) {
	start := time.Now()
	raw, err := s.docs.Fetch(ctx, correctionCollection, id)
	s.metrics.ObserveDBQuery("corrections.fetch", time.Since(start))
	if err != nil {
		return nil, s.persistenceError(err, "failed to load correction")
	}
	return s.restore(id, raw)
}

// Update merges the fields set in patch into the stored project. A set Copies field
// replaces the whole sequence.
func (s *CorrectionStore) Update(ctx context.Context, id string, patch models.CorrectionProjectPatch) error {
	partial := patch.Document()
	partial[models.DocKeyUpdatedAt] = document.Time(s.now())

	start := time.Now()
	err := s.docs.MergeUpdate(ctx, correctionCollection, id, s.sanitizer.SanitizeMap(partial))
	s.metrics.ObserveDBQuery("corrections.merge", time.Since(start))
	if err != nil {
		return s.persistenceError(err, "failed to update correction")
	}
	return nil
}

// Delete removes the project. Deleting an unknown id succeeds.
func (s *CorrectionStore) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := s.docs.Remove(ctx, correctionCollection, id)
	s.metrics.ObserveDBQuery("corrections.remove", time.Since(start))
	if err != nil {
		return s.persistenceError(err, "failed to delete correction")
	}
	return nil
}

// ListByOwner returns the owner's projects, most recently updated first.
func (s *CorrectionStore) ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.CorrectionProject, error) {
	start := time.Now()
	docs, err := s.docs.ListByOwner(ctx, correctionCollection, ownerID, limit)
	s.metrics.ObserveDBQuery("corrections.list", time.Since(start))
	if err != nil {
		return nil, s.persistenceError(err, "failed to list corrections")
	}
	projects := make([]models.CorrectionProject, 0, len(docs))
	for _, doc := range docs {
		project, err := s.restore(doc.ID, doc.Body)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *project)
	}
	return projects, nil
}

func (s *CorrectionStore) restore(id string, raw document.Map) (*models.CorrectionProject, error) {
	restored, err := s.sanitizer.RestoreMap(raw)
	if err != nil {
		s.logger.Error("correction document is corrupted", zap.String("correction_id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrDataCorruption.Code, appErrors.ErrDataCorruption.Status, appErrors.ErrDataCorruption.Message)
	}
	return models.ProjectFromDocument(id, restored), nil
}

func (s *CorrectionStore) persistenceError(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrDocumentNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, "correction not found")
	case errors.Is(err, repository.ErrDocumentTooLarge):
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "correction exceeds the document size limit")
	default:
		s.logger.Warn(message, zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, message)
	}
}
