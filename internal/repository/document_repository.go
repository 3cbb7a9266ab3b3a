package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/correction-api/pkg/document"
)

var (
	// ErrDocumentNotFound is returned when no document exists for the requested id.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrDocumentTooLarge is returned when a write would exceed the store limits.
	ErrDocumentTooLarge = errors.New("document exceeds size limit")
)

// DocumentLimits bounds what a single document may hold.
type DocumentLimits struct {
	MaxDocumentBytes int
	MaxFieldBytes    int
}

// StoredDocument is a document body with its identity.
type StoredDocument struct {
	ID   string
	Body document.Map
}

type documentRow struct {
	ID   string `db:"id"`
	Body []byte `db:"body"`
}

// DocumentRepository persists JSON documents in PostgreSQL and enforces per-document size limits.
type DocumentRepository struct {
	db     *sqlx.DB
	limits DocumentLimits
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB, limits DocumentLimits) *DocumentRepository {
	return &DocumentRepository{db: db, limits: limits}
}

// Insert stores body under a new id and returns it.
func (r *DocumentRepository) Insert(ctx context.Context, collection, ownerID string, body document.Map) (string, error) {
	payload, err := r.encode(body)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	now := time.Now().UTC()
	const query = `INSERT INTO documents (collection, id, owner_id, body, created_at, updated_at)
VALUES ($1, $2, $3, $4::jsonb, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, collection, id, ownerID, payload, now, now); err != nil {
		return "", fmt.Errorf("insert %s document: %w", collection, err)
	}
	return id, nil
}

// Fetch returns the body of the document.
func (r *DocumentRepository) Fetch(ctx context.Context, collection, id string) (document.Map, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrDocumentNotFound
	}
	const query = `SELECT id, body FROM documents WHERE collection = $1 AND id = $2`
	var row documentRow
	if err := r.db.GetContext(ctx, &row, query, collection, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("fetch %s document: %w", collection, err)
	}
	body, err := document.ParseMap(row.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s document %s: %w", collection, id, err)
	}
	return body, nil
}

// MergeUpdate replaces the top-level keys present in partial and leaves the others untouched.
// The read and the write happen under a row lock.
func (r *DocumentRepository) MergeUpdate(ctx context.Context, collection, id string, partial document.Map) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrDocumentNotFound
	}
	return r.merge(ctx, collection, id, "", partial, false)
}

// MergeUpsert behaves like MergeUpdate but first creates an empty document owned by
// ownerID when none exists under id.
func (r *DocumentRepository) MergeUpsert(ctx context.Context, collection, id, ownerID string, partial document.Map) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("upsert %s document: invalid id %q", collection, id)
	}
	return r.merge(ctx, collection, id, ownerID, partial, true)
}

func (r *DocumentRepository) merge(ctx context.Context, collection, id, ownerID string, partial document.Map, upsert bool) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s merge: %w", collection, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if upsert {
		const insertQuery = `INSERT INTO documents (collection, id, owner_id, body, created_at, updated_at)
VALUES ($1, $2, $3, '{}'::jsonb, $4, $4)
ON CONFLICT (collection, id) DO NOTHING`
		if _, err = tx.ExecContext(ctx, insertQuery, collection, id, ownerID, now); err != nil {
			err = fmt.Errorf("create %s document: %w", collection, err)
			return err
		}
	}

	var current []byte
	const selectQuery = `SELECT body FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`
	if err = tx.GetContext(ctx, &current, selectQuery, collection, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrDocumentNotFound
			return err
		}
		err = fmt.Errorf("lock %s document: %w", collection, err)
		return err
	}
	existing, err := document.ParseMap(current)
	if err != nil {
		err = fmt.Errorf("decode %s document %s: %w", collection, id, err)
		return err
	}

	payload, err := r.encode(existing.Merge(partial))
	if err != nil {
		return err
	}
	const updateQuery = `UPDATE documents SET body = $3::jsonb, updated_at = $4 WHERE collection = $1 AND id = $2`
	if _, err = tx.ExecContext(ctx, updateQuery, collection, id, payload, now); err != nil {
		err = fmt.Errorf("update %s document: %w", collection, err)
		return err
	}
	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit %s merge: %w", collection, err)
		return err
	}
	return nil
}

// Remove deletes the document. Removing a missing document is not an error.
func (r *DocumentRepository) Remove(ctx context.Context, collection, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	const query = `DELETE FROM documents WHERE collection = $1 AND id = $2`
	if _, err := r.db.ExecContext(ctx, query, collection, id); err != nil {
		return fmt.Errorf("remove %s document: %w", collection, err)
	}
	return nil
}

// ListByOwner returns the owner's documents, most recently updated first.
func (r *DocumentRepository) ListByOwner(ctx context.Context, collection, ownerID string, limit int) ([]StoredDocument, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, body FROM documents
WHERE collection = $1 AND owner_id = $2
ORDER BY updated_at DESC
LIMIT $3`
	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, query, collection, ownerID, limit); err != nil {
		return nil, fmt.Errorf("list %s documents: %w", collection, err)
	}
	docs := make([]StoredDocument, 0, len(rows))
	for _, row := range rows {
		body, err := document.ParseMap(row.Body)
		if err != nil {
			return nil, fmt.Errorf("decode %s document %s: %w", collection, row.ID, err)
		}
		docs = append(docs, StoredDocument{ID: row.ID, Body: body})
	}
	return docs, nil
}

func (r *DocumentRepository) encode(body document.Map) (string, error) {
	if r.limits.MaxFieldBytes > 0 {
		var oversized int
		document.Walk(body, func(s string) {
			if len(s) > r.limits.MaxFieldBytes && len(s) > oversized {
				oversized = len(s)
			}
		})
		if oversized > 0 {
			return "", fmt.Errorf("%w: field of %d bytes, limit %d", ErrDocumentTooLarge, oversized, r.limits.MaxFieldBytes)
		}
	}
	payload, err := document.Marshal(body)
	if err != nil {
		return "", err
	}
	if r.limits.MaxDocumentBytes > 0 && len(payload) > r.limits.MaxDocumentBytes {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrDocumentTooLarge, len(payload), r.limits.MaxDocumentBytes)
	}
	return string(payload), nil
}
