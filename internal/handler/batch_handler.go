package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/correction-api/internal/models"
	"github.com/noah-isme/correction-api/pkg/response"
)

type batchProgress interface {
	Progress(ctx context.Context, id string) (models.BatchSnapshot, error)
}

// BatchHandler exposes batch progress.
type BatchHandler struct {
	batches batchProgress
}

// NewBatchHandler constructs the handler.
func NewBatchHandler(batches batchProgress) *BatchHandler {
	return &BatchHandler{batches: batches}
}

// Get godoc
// @Summary Batch progress
// @Description Per-file state and, once settled, the copy id or error of every file.
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /batches/{id} [get]
func (h *BatchHandler) Get(c *gin.Context) {
	snapshot, err := h.batches.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{
		"succeeded": snapshot.Count(models.FileStateSucceeded),
		"failed":    snapshot.Count(models.FileStateFailed),
		"total":     len(snapshot.States),
	}
	response.JSON(c, http.StatusOK, snapshot, nil, meta)
}
