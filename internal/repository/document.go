package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/pagination"
	"github.com/cloo-solutions/gistify/internal/service"
)

const documentColumns = `id, source_name, raw_text, object_key, content_type, chunk_count, created_at`

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, source_name, raw_text, object_key, content_type, chunk_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.SourceName, d.RawText, nullableString(d.ObjectKey), d.ContentType, d.ChunkCount, d.CreatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	if uuid.Validate(id) != nil {
		return nil, domain.ErrDocumentNotFound
	}
	d, err := scanDocument(r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *DocumentRepository) SetChunkCount(ctx context.Context, id string, n int) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE documents SET chunk_count = $2 WHERE id = $1`, id, n)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.DocumentPage, error) {
	limit = pagination.ClampLimit(limit)

	var rows pgx.Rows
	var err error
	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+`
			 FROM documents
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+`
			 FROM documents
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanDocuments(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}
	return &service.DocumentPage{Items: items, NextCursor: nextCursor, HasMore: hasMore}, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return domain.ErrDocumentNotFound
	}
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// DeleteCreatedBefore removes up to limit documents older than cutoff and returns
// them so their stored objects can be cleaned up. Chunks and summaries cascade.
func (r *DocumentRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`DELETE FROM documents
		 WHERE id IN (
			SELECT id FROM documents
			WHERE created_at < $1
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+documentColumns,
		cutoff, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var objectKey *string
	if err := row.Scan(&d.ID, &d.SourceName, &d.RawText, &objectKey, &d.ContentType, &d.ChunkCount, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.ObjectKey = stringValue(objectKey)
	return &d, nil
}

func scanDocuments(rows pgx.Rows) ([]*domain.Document, error) {
	var docs []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
