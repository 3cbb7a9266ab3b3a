package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/correction-api/internal/models"
	appErrors "github.com/noah-isme/correction-api/pkg/errors"
	"github.com/noah-isme/correction-api/pkg/jobs"
	"github.com/noah-isme/correction-api/pkg/llm"
	"github.com/noah-isme/correction-api/pkg/lock"
	"github.com/noah-isme/correction-api/pkg/middleware/requestid"
)

const (
	correctionJobType   = "correction.file"
	batchCacheKeyPrefix = "batch:"
)

type projectStore interface {
	Get(ctx context.Context, id string) (*models.CorrectionProject, error)
	Update(ctx context.Context, id string, patch models.CorrectionProjectPatch) error
}

type corrector interface {
	Correct(ctx context.Context, req CorrectionRequest) (string, error)
}

type progressCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CorrectionRequest is the input of one AI correction.
type CorrectionRequest struct {
	ClassLevel string
	Subject    string
	Rubric     string
	Content    string
}

// PipelineConfig tunes the correction pipeline.
type PipelineConfig struct {
	MaxFileChars      int
	CorrectionTimeout time.Duration
	MaxPromptTokens   int
	Workers           int
	BufferSize        int
	ProgressTTL       time.Duration
}

// CorrectionPipeline corrects batches of files concurrently and commits each result into
// its project through a per-project serialized read-merge-write cycle.
type CorrectionPipeline struct {
	store    projectStore
	grader   corrector
	locker   lock.Locker
	progress progressCache
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      PipelineConfig
	queue    *jobs.Queue
	now      func() time.Time

	mu      sync.RWMutex
	batches map[string]*Batch
}

type fileTask struct {
	batch   *Batch
	project *models.CorrectionProject
	file    models.BatchFile
}

// NewCorrectionPipeline wires the pipeline. Start must be called before SubmitBatch.
func NewCorrectionPipeline(store projectStore, grader corrector, locker lock.Locker, progress progressCache, metrics *MetricsService, cfg PipelineConfig, logger *zap.Logger) *CorrectionPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	if cfg.MaxFileChars <= 0 {
		cfg.MaxFileChars = 1_000_000
	}
	if cfg.CorrectionTimeout <= 0 {
		cfg.CorrectionTimeout = 90 * time.Second
	}
	if cfg.ProgressTTL <= 0 {
		cfg.ProgressTTL = time.Hour
	}
	p := &CorrectionPipeline{
		store:    store,
		grader:   grader,
		locker:   locker,
		progress: progress,
		metrics:  metrics,
		logger:   logger.Named("pipeline"),
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		batches:  make(map[string]*Batch),
	}
	p.queue = jobs.NewQueue("corrections", p.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
		OnStart:    func(jobs.Job) { p.metrics.FileStarted() },
	})
	metrics.TrackQueue(p.queue.Pending, p.queue.InFlight)
	return p
}

// Start launches the workers.
func (p *CorrectionPipeline) Start(ctx context.Context) {
	p.queue.Start(ctx)
}

// Stop stops the workers and fails every file that never reached one, so each
// registered batch still settles with a complete outcome set.
func (p *CorrectionPipeline) Stop() {
	p.queue.Stop()
	stopped := appErrors.Clone(appErrors.ErrInternal, "correction queue stopped")
	for _, job := range p.queue.Drain() {
		if task, ok := job.Payload.(fileTask); ok {
			p.fail(task.batch, task.file.Name, stopped, OutcomePersistence, false)
		}
	}

	p.mu.RLock()
	batches := make([]*Batch, 0, len(p.batches))
	for _, b := range p.batches {
		batches = append(batches, b)
	}
	p.mu.RUnlock()
	for _, b := range batches {
		for _, name := range b.unsettled() {
			p.fail(b, name, stopped, OutcomePersistence, false)
		}
	}
}

// SubmitBatch starts correcting files against the project and returns the live batch.
// The project must exist; file names must be unique within the batch.
func (p *CorrectionPipeline) SubmitBatch(ctx context.Context, projectID string, files []models.BatchFile) (*Batch, error) {
	if len(files) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "batch contains no files")
	}
	names := make([]string, 0, len(files))
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		if f.Name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "file name is required")
		}
		if _, dup := seen[f.Name]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate file name %q", f.Name))
		}
		seen[f.Name] = struct{}{}
		names = append(names, f.Name)
	}

	project, err := p.store.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	batch := newBatch(uuid.NewString(), projectID, names, p.now())
	p.register(batch)
	p.publish(ctx, batch)

	p.logger.Info("batch submitted",
		zap.String("batch_id", batch.ID()),
		zap.String("correction_id", projectID),
		zap.Int("files", len(files)),
		zap.String("request_id", requestid.FromContext(ctx)))

	go p.dispatch(batch, project, files)
	return batch, nil
}

// Batch returns a live batch known to this process.
func (p *CorrectionPipeline) Batch(id string) (*Batch, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	b, ok := p.batches[id]
	return b, ok
}

// Progress returns the latest snapshot of a batch, from memory or from the shared cache.
func (p *CorrectionPipeline) Progress(ctx context.Context, id string) (models.BatchSnapshot, error) {
	if b, ok := p.Batch(id); ok {
		return b.Snapshot(), nil
	}
	if p.progress != nil {
		var snapshot models.BatchSnapshot
		found, err := p.progress.Get(ctx, batchCacheKeyPrefix+id, &snapshot)
		if err != nil {
			return models.BatchSnapshot{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch progress")
		}
		if found {
			return snapshot, nil
		}
	}
	return models.BatchSnapshot{}, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
}

func (p *CorrectionPipeline) register(batch *Batch) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := p.now().Add(-p.cfg.ProgressTTL)
	for id, b := range p.batches {
		if finished := b.FinishedAt(); finished != nil && finished.Before(cutoff) {
			delete(p.batches, id)
		}
	}
	p.batches[batch.ID()] = batch
}

func (p *CorrectionPipeline) dispatch(batch *Batch, project *models.CorrectionProject, files []models.BatchFile) {
	for _, f := range files {
		job := jobs.Job{
			ID:      batch.ID() + "/" + f.Name,
			Type:    correctionJobType,
			Payload: fileTask{batch: batch, project: project, file: f},
		}
		if err := p.queue.Enqueue(context.Background(), job); err != nil {
			p.fail(batch, f.Name, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "correction queue unavailable"), OutcomePersistence, false)
		}
	}
}

func (p *CorrectionPipeline) handle(ctx context.Context, job jobs.Job) error {
	task, ok := job.Payload.(fileTask)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	p.process(ctx, task)
	return nil
}

func (p *CorrectionPipeline) process(ctx context.Context, task fileTask) {
	batch, name := task.batch, task.file.Name
	log := p.logger.With(zap.String("batch_id", batch.ID()), zap.String("file", name))

	if strings.TrimSpace(task.file.Content) == "" {
		p.fail(batch, name, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file %q is empty", name)), OutcomeRejected, true)
		return
	}
	if n := utf8.RuneCountInString(task.file.Content); n > p.cfg.MaxFileChars {
		err := appErrors.Clone(appErrors.ErrSizeLimitExceeded,
			fmt.Sprintf("file %q has %d characters, limit is %d", name, n, p.cfg.MaxFileChars))
		p.fail(batch, name, err, OutcomeRejected, true)
		return
	}
	p.advance(ctx, batch, name, models.FileStateSizeChecked)

	content, truncated := llm.Truncate(task.file.Content, p.cfg.MaxPromptTokens, llm.DefaultBytesPerToken)
	if truncated {
		log.Debug("file content truncated for correction", zap.Int("sent_bytes", len(content)))
	}
	p.advance(ctx, batch, name, models.FileStateSubmitted)

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CorrectionTimeout)
	start := time.Now()
	result, err := p.grader.Correct(callCtx, CorrectionRequest{
		ClassLevel: task.project.ClassLevel,
		Subject:    task.project.Subject,
		Rubric:     task.project.RubricText(),
		Content:    content,
	})
	cancel()
	p.metrics.ObserveCollaborator(time.Since(start), err)
	if err != nil {
		p.fail(batch, name, collaboratorError(err), OutcomeCollaborator, true)
		return
	}

	copyID, err := p.commit(ctx, batch.ProjectID(), task.file, result)
	if err != nil {
		p.fail(batch, name, err, OutcomePersistence, true)
		return
	}

	p.metrics.FileSettled(OutcomeSucceeded)
	log.Debug("file corrected", zap.String("copy_id", copyID))
	p.settle(ctx, batch, name, models.FileOutcome{CopyID: copyID})
}

// commit appends the corrected copy to the latest stored project under the project lock.
func (p *CorrectionPipeline) commit(ctx context.Context, projectID string, file models.BatchFile, result string) (string, error) {
	start := time.Now()
	defer func() { p.metrics.ObserveCommit(time.Since(start)) }()

	unlock, err := p.locker.Lock(ctx, projectLockKey(projectID))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to acquire correction lock")
	}
	defer unlock()

	project, err := p.store.Get(ctx, projectID)
	if err != nil {
		return "", err
	}

	added := models.Copy{
		ID:               uuid.NewString(),
		Name:             file.Name,
		Content:          file.Content,
		CorrectionResult: &result,
		CreatedAt:        p.now(),
	}
	copies := append(project.Copies, added)
	status := project.Status
	if status != models.CorrectionStatusCompleted {
		status = models.CorrectionStatusInProgress
	}
	if err := p.store.Update(ctx, projectID, models.CorrectionProjectPatch{Copies: &copies, Status: &status}); err != nil {
		return "", err
	}
	return added.ID, nil
}

func (p *CorrectionPipeline) advance(ctx context.Context, batch *Batch, name string, state models.FileState) {
	if batch.transition(name, state) {
		p.publish(ctx, batch)
	}
}

func (p *CorrectionPipeline) fail(batch *Batch, name string, err error, outcome string, started bool) {
	appErr := appErrors.FromError(err)
	if started {
		p.metrics.FileSettled(outcome)
	}
	p.logger.Warn("file failed",
		zap.String("batch_id", batch.ID()),
		zap.String("file", name),
		zap.String("code", appErr.Code),
		zap.Error(err))
	p.settle(context.Background(), batch, name, models.FileOutcome{Error: appErr.Error(), Code: appErr.Code})
}

func (p *CorrectionPipeline) settle(ctx context.Context, batch *Batch, name string, outcome models.FileOutcome) {
	if !batch.settle(name, outcome, p.now()) {
		p.publish(ctx, batch)
		return
	}
	snapshot := batch.Snapshot()
	p.logger.Info("batch settled",
		zap.String("batch_id", batch.ID()),
		zap.Int("succeeded", snapshot.Count(models.FileStateSucceeded)),
		zap.Int("failed", snapshot.Count(models.FileStateFailed)))
	p.publish(ctx, batch)
}

func (p *CorrectionPipeline) publish(ctx context.Context, batch *Batch) {
	if p.progress == nil {
		return
	}
	if err := p.progress.Set(ctx, batchCacheKeyPrefix+batch.ID(), batch.Snapshot(), p.cfg.ProgressTTL); err != nil {
		p.logger.Debug("batch progress not published", zap.String("batch_id", batch.ID()), zap.Error(err))
	}
}

func collaboratorError(err error) error {
	message := "correction service failed"
	if errors.Is(err, context.DeadlineExceeded) || llm.TypeOf(err) == llm.ErrorTypeTimeout {
		message = "correction service timed out"
	}
	return appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, message)
}
