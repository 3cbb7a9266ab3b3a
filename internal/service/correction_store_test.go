package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/correction-api/internal/models"
	"github.com/noah-isme/correction-api/pkg/document"
	appErrors "github.com/noah-isme/correction-api/pkg/errors"
)

func sampleProject() *models.CorrectionProject {
	return &models.CorrectionProject{
		OwnerID:     "teacher-1",
		Title:       "Dissertation",
		ClassLevel:  "Terminale",
		Subject:     "Philosophie",
		TotalPoints: 20,
		Status:      models.CorrectionStatusDraft,
		Criteria: []models.Criterion{
			{ID: "c1", Description: "Problématique", Points: 8},
			{ID: "c2", Description: "Argumentation", Points: 12},
		},
		Copies: []models.Copy{},
	}
}

func TestCorrectionStoreRoundTripChunksLongContent(t *testing.T) {
	docs := newMemoryDocumentStore()
	docs.maxField = 20
	store := NewCorrectionStore(docs, 10, nil, nil)
	ctx := context.Background()

	project := sampleProject()
	id, err := store.Create(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, id, project.ID)
	assert.False(t, project.CreatedAt.IsZero())

	result := "12/20"
	content := strings.Repeat("Être ou ne pas être. ", 4)
	copies := []models.Copy{{ID: "copy-1", Name: "a.txt", Content: content, CorrectionResult: &result, CreatedAt: time.Now().UTC()}}
	require.NoError(t, store.Update(ctx, id, models.CorrectionProjectPatch{Copies: &copies}))

	stored := docs.raw(correctionCollection, id).Maps(models.DocKeyCopies)[0]
	assert.False(t, stored.Has("content"))
	assert.Equal(t, int64(len([]rune(content))), stored.Int(copyContentLengthKey))
	assert.Greater(t, len(stored.List(copyContentChunksKey)), 1)

	loaded, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, loaded.Copies, 1)
	assert.Equal(t, content, loaded.Copies[0].Content)
	assert.Equal(t, "12/20", *loaded.Copies[0].CorrectionResult)
	assert.Equal(t, "teacher-1", loaded.OwnerID)
	assert.Equal(t, project.Criteria, loaded.Criteria)
}

func TestCorrectionStoreGetUnknownProject(t *testing.T) {
	store := NewCorrectionStore(newMemoryDocumentStore(), 100, nil, nil)

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestCorrectionStoreUpdateReplacesCopiesAndKeepsOtherFields(t *testing.T) {
	store := NewCorrectionStore(newMemoryDocumentStore(), 100, nil, nil)
	ctx := context.Background()
	id, err := store.Create(ctx, sampleProject())
	require.NoError(t, err)

	first := []models.Copy{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}
	require.NoError(t, store.Update(ctx, id, models.CorrectionProjectPatch{Copies: &first}))
	second := []models.Copy{{ID: "3", Name: "c"}}
	require.NoError(t, store.Update(ctx, id, models.CorrectionProjectPatch{Copies: &second}))

	loaded, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, loaded.Copies, 1)
	assert.Equal(t, "3", loaded.Copies[0].ID)
	assert.Equal(t, "Dissertation", loaded.Title)
	assert.Equal(t, models.CorrectionStatusDraft, loaded.Status)
}

func TestCorrectionStoreUpdateUnknownProject(t *testing.T) {
	store := NewCorrectionStore(newMemoryDocumentStore(), 100, nil, nil)
	title := "x"

	err := store.Update(context.Background(), "missing", models.CorrectionProjectPatch{Title: &title})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestCorrectionStoreDeleteIsIdempotent(t *testing.T) {
	store := NewCorrectionStore(newMemoryDocumentStore(), 100, nil, nil)
	ctx := context.Background()
	id, err := store.Create(ctx, sampleProject())
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, id))
	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Get(ctx, id)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestCorrectionStoreDetectsCorruptedContent(t *testing.T) {
	docs := newMemoryDocumentStore()
	store := NewCorrectionStore(docs, 4, nil, nil)
	ctx := context.Background()
	id, err := store.Create(ctx, sampleProject())
	require.NoError(t, err)
	copies := []models.Copy{{ID: "1", Name: "a", Content: "abcdefghijkl"}}
	require.NoError(t, store.Update(ctx, id, models.CorrectionProjectPatch{Copies: &copies}))

	raw := docs.raw(correctionCollection, id)
	raw.Maps(models.DocKeyCopies)[0][copyContentChunksKey] = document.List{document.String("abcd")}
	docs.setRaw(correctionCollection, id, raw)

	_, err = store.Get(ctx, id)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDataCorruption))
	assert.True(t, errors.Is(err, document.ErrCorruptedField))
}

func TestCorrectionStoreReportsOversizedFields(t *testing.T) {
	docs := newMemoryDocumentStore()
	docs.maxField = 5
	store := NewCorrectionStore(docs, 100, nil, nil)

	project := sampleProject()
	project.Title = "a title well beyond the field limit"
	_, err := store.Create(context.Background(), project)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPersistence))
	assert.Contains(t, err.Error(), "size limit")
}

func TestCorrectionStoreWrapsBackendFailures(t *testing.T) {
	docs := newMemoryDocumentStore()
	store := NewCorrectionStore(docs, 100, nil, nil)
	ctx := context.Background()
	id, err := store.Create(ctx, sampleProject())
	require.NoError(t, err)

	docs.mergeErr = errors.New("connection reset")
	title := "new"
	err = store.Update(ctx, id, models.CorrectionProjectPatch{Title: &title})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPersistence))
}

func TestCorrectionStoreListsMostRecentFirst(t *testing.T) {
	store := NewCorrectionStore(newMemoryDocumentStore(), 100, nil, nil)
	ctx := context.Background()
	first, err := store.Create(ctx, sampleProject())
	require.NoError(t, err)
	second, err := store.Create(ctx, sampleProject())
	require.NoError(t, err)
	other := sampleProject()
	other.OwnerID = "teacher-2"
	_, err = store.Create(ctx, other)
	require.NoError(t, err)

	title := "touched"
	require.NoError(t, store.Update(ctx, first, models.CorrectionProjectPatch{Title: &title}))

	projects, err := store.ListByOwner(ctx, "teacher-1", 10)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, first, projects[0].ID)
	assert.Equal(t, second, projects[1].ID)
}
