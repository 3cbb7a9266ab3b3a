package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/correction-api/internal/models"
)

func TestMetricsServiceReportsQueueDepth(t *testing.T) {
	metrics := NewMetricsService()
	snapshot := metrics.Snapshot()
	assert.Zero(t, snapshot.QueuePending)
	assert.Zero(t, snapshot.QueueInFlight)

	metrics.TrackQueue(func() int { return 7 }, func() int { return 2 })
	snapshot = metrics.Snapshot()
	assert.Equal(t, 7, snapshot.QueuePending)
	assert.Equal(t, 2, snapshot.QueueInFlight)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "correction_queue_pending 7")
	assert.Contains(t, rec.Body.String(), "correction_queue_in_flight 2")
}

func TestPipelineExposesQueueDepth(t *testing.T) {
	f := newPipelineFixture(t, PipelineConfig{Workers: 1}, nil)
	f.grader.delay = 300 * time.Millisecond
	projectID := f.createProject(t)

	_, err := f.pipeline.SubmitBatch(context.Background(), projectID, []models.BatchFile{
		{Name: "a.txt", Content: "x"},
		{Name: "b.txt", Content: "y"},
		{Name: "c.txt", Content: "z"},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s := f.metrics.Snapshot()
		return s.QueueInFlight == 1 && s.QueuePending == 2
	}, time.Second, 5*time.Millisecond)
}

func TestMetricsServiceNilIsSafe(t *testing.T) {
	var metrics *MetricsService
	metrics.TrackQueue(func() int { return 1 }, nil)
	assert.Zero(t, metrics.Snapshot().QueuePending)
}
