package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/correction-api/internal/dto"
	"github.com/noah-isme/correction-api/internal/models"
	"github.com/noah-isme/correction-api/internal/service"
	appErrors "github.com/noah-isme/correction-api/pkg/errors"
	"github.com/noah-isme/correction-api/pkg/response"
)

type correctionServiceMock struct {
	project   *models.CorrectionProject
	err       error
	deleted   []string
	lastQuery dto.ListCorrectionsQuery
}

func (m *correctionServiceMock) Create(ctx context.Context, req dto.CreateCorrectionRequest) (*models.CorrectionProject, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.CorrectionProject{ID: "p1", OwnerID: req.UserID, Title: req.Title, Status: models.CorrectionStatusDraft}, nil
}

func (m *correctionServiceMock) Get(ctx context.Context, id string) (*models.CorrectionProject, error) {
	return m.project, m.err
}

func (m *correctionServiceMock) List(ctx context.Context, query dto.ListCorrectionsQuery) ([]models.CorrectionProject, *models.Pagination, error) {
	m.lastQuery = query
	return []models.CorrectionProject{*m.project}, &models.Pagination{Page: 1, PageSize: 50, TotalCount: 1}, m.err
}

func (m *correctionServiceMock) Update(ctx context.Context, id string, req dto.UpdateCorrectionRequest) (*models.CorrectionProject, error) {
	return m.project, m.err
}

func (m *correctionServiceMock) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return m.err
}

func (m *correctionServiceMock) Complete(ctx context.Context, id string) (*models.CorrectionProject, error) {
	return m.project, m.err
}

func (m *correctionServiceMock) ArchiveCopy(ctx context.Context, id, copyID string) (*models.CorrectionProject, error) {
	return m.project, m.err
}

type exporterMock struct{}

func (exporterMock) Export(ctx context.Context, projectID, format string) (*service.ExportFile, error) {
	if format == "xlsx" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	return &service.ExportFile{Filename: "dissertation.csv", ContentType: "text/csv; charset=utf-8", Data: []byte("File\n")}, nil
}

// projectStoreStub backs a real pipeline for handler tests.
type projectStoreStub struct {
	mu      sync.Mutex
	project models.CorrectionProject
}

func (s *projectStoreStub) Get(ctx context.Context, id string) (*models.CorrectionProject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.project.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "correction not found")
	}
	p := s.project
	p.Copies = append([]models.Copy(nil), s.project.Copies...)
	return &p, nil
}

func (s *projectStoreStub) Update(ctx context.Context, id string, patch models.CorrectionProjectPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if patch.Copies != nil {
		s.project.Copies = *patch.Copies
	}
	if patch.Status != nil {
		s.project.Status = *patch.Status
	}
	return nil
}

type correctorStub struct{}

func (correctorStub) Correct(ctx context.Context, req service.CorrectionRequest) (string, error) {
	return "18/20", nil
}

func newTestContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data interface{}) response.Envelope {
	t.Helper()
	var env struct {
		response.Envelope
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env.Envelope
}

func newPipelineForTest(t *testing.T) (*service.CorrectionPipeline, *projectStoreStub) {
	t.Helper()
	store := &projectStoreStub{project: models.CorrectionProject{ID: "p1", Status: models.CorrectionStatusDraft}}
	pipeline := service.NewCorrectionPipeline(store, correctorStub{}, nil, nil, nil, service.PipelineConfig{Workers: 2}, nil)
	pipeline.Start(context.Background())
	t.Cleanup(pipeline.Stop)
	return pipeline, store
}

func TestCorrectionHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCorrectionHandler(&correctionServiceMock{}, nil, nil)

	body, _ := json.Marshal(dto.CreateCorrectionRequest{UserID: "u1", Title: "Dissertation"})
	c, w := newTestContext(http.MethodPost, "/api/v1/corrections", body)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var project models.CorrectionProject
	decodeEnvelope(t, w, &project)
	assert.Equal(t, "p1", project.ID)
	assert.Equal(t, "u1", project.OwnerID)
}

func TestCorrectionHandlerCreateRejectsMalformedJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCorrectionHandler(&correctionServiceMock{}, nil, nil)

	c, w := newTestContext(http.MethodPost, "/api/v1/corrections", []byte("{"))
	handler.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
}

func TestCorrectionHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCorrectionHandler(&correctionServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "correction not found")}, nil, nil)

	c, w := newTestContext(http.MethodGet, "/api/v1/corrections/x", nil)
	c.Params = gin.Params{{Key: "id", Value: "x"}}
	handler.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCorrectionHandlerListBindsQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &correctionServiceMock{project: &models.CorrectionProject{ID: "p1"}}
	handler := NewCorrectionHandler(svc, nil, nil)

	c, w := newTestContext(http.MethodGet, "/api/v1/corrections?userId=u1&limit=5", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.ListCorrectionsQuery{UserID: "u1", Limit: 5}, svc.lastQuery)
	env := decodeEnvelope(t, w, nil)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)
}

func TestCorrectionHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &correctionServiceMock{}
	handler := NewCorrectionHandler(svc, nil, nil)

	c, w := newTestContext(http.MethodDelete, "/api/v1/corrections/p1", nil)
	c.Params = gin.Params{{Key: "id", Value: "p1"}}
	handler.Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"p1"}, svc.deleted)
}

func TestCorrectionHandlerSubmitMultipartBatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pipeline, store := newPipelineForTest(t)
	handler := NewCorrectionHandler(&correctionServiceMock{}, pipeline, nil)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for name, content := range map[string]string{"alice.txt": "première copie", "bob.txt": "seconde copie"} {
		part, err := form.CreateFormFile(multipartFilesField, name)
		require.NoError(t, err)
		_, _ = part.Write([]byte(content))
	}
	require.NoError(t, form.Close())

	c, w := newTestContext(http.MethodPost, "/api/v1/corrections/p1/batches", buf.Bytes())
	c.Request.Header.Set("Content-Type", form.FormDataContentType())
	c.Params = gin.Params{{Key: "id", Value: "p1"}}
	handler.SubmitBatch(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	var accepted dto.BatchAccepted
	decodeEnvelope(t, w, &accepted)
	assert.ElementsMatch(t, []string{"alice.txt", "bob.txt"}, accepted.Files)
	assert.Equal(t, "/api/v1/batches/"+accepted.BatchID, w.Header().Get("Location"))

	batch, ok := pipeline.Batch(accepted.BatchID)
	require.True(t, ok)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := batch.Wait(ctx)
	require.NoError(t, err)

	project, err := store.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, project.Copies, 2)

	progress := NewBatchHandler(pipeline)
	c, w = newTestContext(http.MethodGet, "/api/v1/batches/"+accepted.BatchID, nil)
	c.Params = gin.Params{{Key: "id", Value: accepted.BatchID}}
	progress.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	var snapshot models.BatchSnapshot
	env := decodeEnvelope(t, w, &snapshot)
	assert.True(t, snapshot.Settled)
	assert.EqualValues(t, 2, env.Meta["succeeded"])
}

func TestCorrectionHandlerSubmitJSONBatchRejectsDuplicates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pipeline, _ := newPipelineForTest(t)
	handler := NewCorrectionHandler(&correctionServiceMock{}, pipeline, nil)

	body, _ := json.Marshal(dto.SubmitBatchRequest{Files: []models.BatchFile{{Name: "a.txt"}, {Name: "a.txt"}}})
	c, w := newTestContext(http.MethodPost, "/api/v1/corrections/p1/batches", body)
	c.Params = gin.Params{{Key: "id", Value: "p1"}}
	handler.SubmitBatch(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCorrectionHandlerSubmitJSONBatchEnforcesBindingRules(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pipeline, _ := newPipelineForTest(t)
	handler := NewCorrectionHandler(&correctionServiceMock{}, pipeline, nil)

	for name, body := range map[string]string{
		"missing files": `{}`,
		"empty files":   `{"files":[]}`,
		"unnamed file":  `{"files":[{"content":"x"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			c, w := newTestContext(http.MethodPost, "/api/v1/corrections/p1/batches", []byte(body))
			c.Params = gin.Params{{Key: "id", Value: "p1"}}
			handler.SubmitBatch(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			env := decodeEnvelope(t, w, nil)
			require.NotNil(t, env.Error)
			assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
		})
	}
}

func TestCorrectionHandlerSubmitUnknownProject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pipeline, _ := newPipelineForTest(t)
	handler := NewCorrectionHandler(&correctionServiceMock{}, pipeline, nil)

	body, _ := json.Marshal(dto.SubmitBatchRequest{Files: []models.BatchFile{{Name: "a.txt", Content: "x"}}})
	c, w := newTestContext(http.MethodPost, "/api/v1/corrections/other/batches", body)
	c.Params = gin.Params{{Key: "id", Value: "other"}}
	handler.SubmitBatch(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBatchHandlerUnknownBatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pipeline, _ := newPipelineForTest(t)

	c, w := newTestContext(http.MethodGet, "/api/v1/batches/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	NewBatchHandler(pipeline).Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCorrectionHandlerExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCorrectionHandler(&correctionServiceMock{}, nil, exporterMock{})

	c, w := newTestContext(http.MethodGet, "/api/v1/corrections/p1/export?format=csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "p1"}}
	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="dissertation.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "File\n", w.Body.String())

	c, w = newTestContext(http.MethodGet, "/api/v1/corrections/p1/export?format=xlsx", nil)
	handler.Export(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
