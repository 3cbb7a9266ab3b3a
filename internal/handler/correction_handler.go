package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/correction-api/internal/dto"
	"github.com/noah-isme/correction-api/internal/models"
	"github.com/noah-isme/correction-api/internal/service"
	appErrors "github.com/noah-isme/correction-api/pkg/errors"
	"github.com/noah-isme/correction-api/pkg/response"
)

type correctionService interface {
	Create(ctx context.Context, req dto.CreateCorrectionRequest) (*models.CorrectionProject, error)
	Get(ctx context.Context, id string) (*models.CorrectionProject, error)
	List(ctx context.Context, query dto.ListCorrectionsQuery) ([]models.CorrectionProject, *models.Pagination, error)
	Update(ctx context.Context, id string, req dto.UpdateCorrectionRequest) (*models.CorrectionProject, error)
	Delete(ctx context.Context, id string) error
	Complete(ctx context.Context, id string) (*models.CorrectionProject, error)
	ArchiveCopy(ctx context.Context, id, copyID string) (*models.CorrectionProject, error)
}

type batchSubmitter interface {
	SubmitBatch(ctx context.Context, projectID string, files []models.BatchFile) (*service.Batch, error)
}

type correctionExporter interface {
	Export(ctx context.Context, projectID, format string) (*service.ExportFile, error)
}

// CorrectionHandler exposes correction project endpoints.
type CorrectionHandler struct {
	corrections correctionService
	pipeline    batchSubmitter
	exports     correctionExporter
}

// NewCorrectionHandler constructs the handler.
func NewCorrectionHandler(corrections correctionService, pipeline batchSubmitter, exports correctionExporter) *CorrectionHandler {
	return &CorrectionHandler{corrections: corrections, pipeline: pipeline, exports: exports}
}

// Create godoc
// @Summary Create correction project
// @Tags Corrections
// @Accept json
// @Produce json
// @Param payload body dto.CreateCorrectionRequest true "Project payload"
// @Success 201 {object} response.Envelope
// @Router /corrections [post]
func (h *CorrectionHandler) Create(c *gin.Context) {
	var req dto.CreateCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid correction payload"))
		return
	}
	project, err := h.corrections.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// List godoc
// @Summary List correction projects of a user
// @Tags Corrections
// @Produce json
// @Param userId query string true "Owner ID"
// @Param limit query int false "Max results"
// @Success 200 {object} response.Envelope
// @Router /corrections [get]
func (h *CorrectionHandler) List(c *gin.Context) {
	var query dto.ListCorrectionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	projects, pagination, err := h.corrections.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, pagination)
}

// Get godoc
// @Summary Get correction project
// @Tags Corrections
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /corrections/{id} [get]
func (h *CorrectionHandler) Get(c *gin.Context) {
	project, err := h.corrections.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// Update godoc
// @Summary Update correction project
// @Tags Corrections
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body dto.UpdateCorrectionRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /corrections/{id} [patch]
func (h *CorrectionHandler) Update(c *gin.Context) {
	var req dto.UpdateCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid correction payload"))
		return
	}
	project, err := h.corrections.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// Delete godoc
// @Summary Delete correction project
// @Tags Corrections
// @Param id path string true "Project ID"
// @Success 204
// @Router /corrections/{id} [delete]
func (h *CorrectionHandler) Delete(c *gin.Context) {
	if err := h.corrections.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Complete godoc
// @Summary Mark correction project as completed
// @Tags Corrections
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /corrections/{id}/complete [post]
func (h *CorrectionHandler) Complete(c *gin.Context) {
	project, err := h.corrections.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// ArchiveCopy godoc
// @Summary Archive a corrected copy
// @Tags Corrections
// @Produce json
// @Param id path string true "Project ID"
// @Param copyId path string true "Copy ID"
// @Success 200 {object} response.Envelope
// @Router /corrections/{id}/copies/{copyId}/archive [post]
func (h *CorrectionHandler) ArchiveCopy(c *gin.Context) {
	project, err := h.corrections.ArchiveCopy(c.Request.Context(), c.Param("id"), c.Param("copyId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// SubmitBatch godoc
// @Summary Submit files for AI correction
// @Description Accepts multipart "files" parts or a JSON body. Progress is available under /batches/{id}.
// @Tags Corrections
// @Accept json,mpfd
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body dto.SubmitBatchRequest false "JSON files"
// @Success 202 {object} response.Envelope
// @Router /corrections/{id}/batches [post]
func (h *CorrectionHandler) SubmitBatch(c *gin.Context) {
	files, err := batchFilesFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	batch, err := h.pipeline.SubmitBatch(c.Request.Context(), c.Param("id"), files)
	if err != nil {
		response.Error(c, err)
		return
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	response.Accepted(c, batchLocation(c, batch.ID()), dto.BatchAccepted{BatchID: batch.ID(), ProjectID: batch.ProjectID(), Files: names})
}

// Export godoc
// @Summary Export corrected copies
// @Tags Corrections
// @Produce text/csv,application/pdf
// @Param id path string true "Project ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /corrections/{id}/export [get]
func (h *CorrectionHandler) Export(c *gin.Context) {
	file, err := h.exports.Export(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// batchLocation resolves the batch URL under the same prefix the request came in on.
func batchLocation(c *gin.Context, batchID string) string {
	prefix := c.Request.URL.Path
	if i := strings.Index(prefix, "/corrections/"); i >= 0 {
		prefix = prefix[:i]
	} else {
		prefix = ""
	}
	return prefix + "/batches/" + batchID
}
