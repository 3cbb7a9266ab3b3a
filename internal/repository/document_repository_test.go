package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/correction-api/pkg/document"
)

const testDocID = "6f1c1c1e-8d2a-4c55-9f3e-0a9b0c1d2e3f"

func newDocumentRepoMock(t *testing.T, limits DocumentLimits) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewDocumentRepository(sqlxDB, limits), mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestDocumentRepositoryInsert(t *testing.T) {
	repo, mock, cleanup := newDocumentRepoMock(t, DocumentLimits{MaxDocumentBytes: 1000, MaxFieldBytes: 100})
	defer cleanup()

	mock.ExpectExec("INSERT INTO documents").
		WithArgs("corrections", sqlmock.AnyArg(), "user-1", `{"title":"Contrôle"}`, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := repo.Insert(context.Background(), "corrections", "user-1", document.Map{"title": document.String("Contrôle")})
	require.NoError(t, err)
	assert.Len(t, id, 36)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryRejectsOversizedDocuments(t *testing.T) {
	repo, mock, cleanup := newDocumentRepoMock(t, DocumentLimits{MaxDocumentBytes: 64, MaxFieldBytes: 1000})
	defer cleanup()

	_, err := repo.Insert(context.Background(), "corrections", "user-1", document.Map{"title": document.String(strings.Repeat("a", 80))})
	require.ErrorIs(t, err, ErrDocumentTooLarge)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryRejectsOversizedFields(t *testing.T) {
	repo, _, cleanup := newDocumentRepoMock(t, DocumentLimits{MaxDocumentBytes: 10000, MaxFieldBytes: 10})
	defer cleanup()

	body := document.Map{"copies": document.List{document.Map{"content": document.String(strings.Repeat("b", 11))}}}
	_, err := repo.Insert(context.Background(), "corrections", "user-1", body)
	require.ErrorIs(t, err, ErrDocumentTooLarge)
}

func TestDocumentRepositoryFetch(t *testing.T) {
	repo, mock, cleanup := newDocumentRepoMock(t, DocumentLimits{})
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "body"}).AddRow(testDocID, []byte(`{"title":"x","createdAt":{"seconds":1700000000,"nanos":0}}`))
	mock.ExpectQuery("SELECT id, body FROM documents").WithArgs("corrections", testDocID).WillReturnRows(rows)

	body, err := repo.Fetch(context.Background(), "corrections", testDocID)
	require.NoError(t, err)
	assert.Equal(t, "x", body.String("title"))
	assert.Equal(t, document.Timestamp{Seconds: 1700000000}, body["createdAt"])
}

func TestDocumentRepositoryFetchNotFound(t *testing.T) {
	repo, mock, cleanup := newDocumentRepoMock(t, DocumentLimits{})
	defer cleanup()

	mock.ExpectQuery("SELECT id, body FROM documents").WithArgs("corrections", testDocID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "body"}))

	_, err := repo.Fetch(context.Background(), "corrections", testDocID)
	require.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = repo.Fetch(context.Background(), "corrections", "not-a-uuid")
	require.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestDocumentRepositoryMergeUpdate(t *testing.T) {
	repo, mock, cleanup := newDocumentRepoMock(t, DocumentLimits{MaxDocumentBytes: 1000})
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT body FROM documents .+ FOR UPDATE").
		WithArgs("corrections", testDocID).
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow([]byte(`{"status":"draft","title":"old"}`)))
	mock.ExpectExec("UPDATE documents SET body").
		WithArgs("corrections", testDocID, `{"status":"draft","title":"new"}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.MergeUpdate(context.Background(), "corrections", testDocID, document.Map{"title": document.String("new")})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryMergeUpdateMissing(t *testing.T) {
	repo, mock, cleanup := newDocumentRepoMock(t, DocumentLimits{})
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT body FROM documents").
		WithArgs("corrections", testDocID).
		WillReturnRows(sqlmock.NewRows([]string{"body"}))
	mock.ExpectRollback()

	err := repo.MergeUpdate(context.Background(), "corrections", testDocID, document.Map{"title": document.String("new")})
	require.ErrorIs(t, err, ErrDocumentNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryMergeUpdateTooLargeRollsBack(t *testing.T) {
	repo, mock, cleanup := newDocumentRepoMock(t, DocumentLimits{MaxDocumentBytes: 40})
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT body FROM documents").
		WithArgs("corrections", testDocID).
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow([]byte(`{"title":"old"}`)))
	mock.ExpectRollback()

	err := repo.MergeUpdate(context.Background(), "corrections", testDocID, document.Map{"notes": document.String(strings.Repeat("n", 50))})
	require.ErrorIs(t, err, ErrDocumentTooLarge)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryMergeUpsertCreatesMissingDocument(t *testing.T) {
	repo, mock, cleanup := newDocumentRepoMock(t, DocumentLimits{MaxDocumentBytes: 1000})
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents .+ ON CONFLICT \\(collection, id\\) DO NOTHING").
		WithArgs("analytics", testDocID, "user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT body FROM documents .+ FOR UPDATE").
		WithArgs("analytics", testDocID).
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow([]byte(`{}`)))
	mock.ExpectExec("UPDATE documents SET body").
		WithArgs("analytics", testDocID, `{"averageGrade":12.5}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.MergeUpsert(context.Background(), "analytics", testDocID, "user-1", document.Map{"averageGrade": document.Float(12.5)})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryMergeUpsertKeepsExistingFields(t *testing.T) {
	repo, mock, cleanup := newDocumentRepoMock(t, DocumentLimits{})
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").
		WithArgs("analytics", testDocID, "user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT body FROM documents").
		WithArgs("analytics", testDocID).
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow([]byte(`{"classLevel":"3e","successRate":40}`)))
	mock.ExpectExec("UPDATE documents SET body").
		WithArgs("analytics", testDocID, `{"classLevel":"3e","successRate":55}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.MergeUpsert(context.Background(), "analytics", testDocID, "user-1", document.Map{"successRate": document.Float(55)})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryMergeUpsertRejectsInvalidID(t *testing.T) {
	repo, mock, cleanup := newDocumentRepoMock(t, DocumentLimits{})
	defer cleanup()

	err := repo.MergeUpsert(context.Background(), "analytics", "user-1_3e", "user-1", document.Map{})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryRemoveIsIdempotent(t *testing.T) {
	repo, mock, cleanup := newDocumentRepoMock(t, DocumentLimits{})
	defer cleanup()

	mock.ExpectExec("DELETE FROM documents").WithArgs("corrections", testDocID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM documents").WithArgs("corrections", testDocID).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Remove(context.Background(), "corrections", testDocID))
	require.NoError(t, repo.Remove(context.Background(), "corrections", testDocID))
	require.NoError(t, repo.Remove(context.Background(), "corrections", "garbage"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryListByOwner(t *testing.T) {
	repo, mock, cleanup := newDocumentRepoMock(t, DocumentLimits{})
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "body"}).
		AddRow("b", []byte(`{"title":"recent"}`)).
		AddRow("a", []byte(`{"title":"older"}`))
	mock.ExpectQuery("SELECT id, body FROM documents\\s+WHERE collection = \\$1 AND owner_id = \\$2\\s+ORDER BY updated_at DESC").
		WithArgs("corrections", "user-1", 50).
		WillReturnRows(rows)

	docs, err := repo.ListByOwner(context.Background(), "corrections", "user-1", 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].ID)
	assert.Equal(t, "recent", docs[0].Body.String("title"))
}
