package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/pagination"
	"github.com/cloo-solutions/gistify/internal/service"
)

const summaryColumns = `id, doc_id, summary_type, summary_text, advantages, disadvantages, source_name, created_at`

type SummaryRepository struct {
	db dbtx
}

func NewSummaryRepository(pool *pgxpool.Pool) *SummaryRepository {
	return &SummaryRepository{db: pool}
}

// Create stores the record and returns the generated id.
func (r *SummaryRepository) Create(ctx context.Context, s *domain.SummaryRecord) (string, error) {
	if err := domain.ValidateSummaryRecord(s); err != nil {
		return "", err
	}
	var id string
	err := r.db.QueryRow(ctx,
		`INSERT INTO summaries (doc_id, summary_type, summary_text, advantages, disadvantages, source_name, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		s.DocID, string(s.SummaryType), s.SummaryText, s.Advantages, s.Disadvantages, s.SourceName, s.CreatedAt,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListByDocument pages through a document's summaries, newest first.
func (r *SummaryRepository) ListByDocument(ctx context.Context, docID string, cursor *pagination.Cursor, limit int) (*service.SummaryPage, error) {
	limit = pagination.ClampLimit(limit)

	var rows pgx.Rows
	var err error
	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+summaryColumns+`
			 FROM summaries
			 WHERE doc_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			docID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+summaryColumns+`
			 FROM summaries
			 WHERE doc_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			docID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.SummaryRecord
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
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
	return &service.SummaryPage{Items: items, NextCursor: nextCursor, HasMore: hasMore}, nil
}

func scanSummary(row pgx.Row) (*domain.SummaryRecord, error) {
	var s domain.SummaryRecord
	var summaryType string
	if err := row.Scan(&s.ID, &s.DocID, &summaryType, &s.SummaryText, &s.Advantages, &s.Disadvantages, &s.SourceName, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.SummaryType = domain.SummaryType(summaryType)
	return &s, nil
}

var _ service.SummaryWriter = (*SummaryRepository)(nil)
