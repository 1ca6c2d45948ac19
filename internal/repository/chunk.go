package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/service"
)

// ChunkRepository stores chunk embeddings in pgvector and serves document-scoped lookups.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

const upsertChunkSQL = `INSERT INTO chunks (id, doc_id, chunk_index, content, source_name, embedding)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE
	SET content = EXCLUDED.content,
	    source_name = EXCLUDED.source_name,
	    embedding = EXCLUDED.embedding`

// Add upserts chunks by id in one transaction, so a failed write leaves no partial document.
func (r *ChunkRepository) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, c := range chunks {
			batch.Queue(upsertChunkSQL, c.ID, c.DocID, c.OrderIndex, c.Text, c.SourceName, pgvector.NewVector(c.Embedding))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert %d chunks: %w", len(chunks), err)
		}
		return nil
	})
}

// Query orders a document's chunks by cosine distance, or, when q.Embedding is nil,
// returns the chunks whose text contains any keyword in document order.
func (r *ChunkRepository) Query(ctx context.Context, q service.VectorQuery) ([]domain.Chunk, error) {
	limit := q.TopK
	if limit <= 0 {
		limit = 15
	}

	var rows pgx.Rows
	var err error
	if q.Embedding == nil {
		if len(q.Keywords) == 0 {
			return nil, nil
		}
		patterns := make([]string, len(q.Keywords))
		for i, kw := range q.Keywords {
			patterns[i] = "%" + kw + "%"
		}
		rows, err = r.db.Query(ctx,
			`SELECT id, doc_id, chunk_index, content, source_name, embedding
			 FROM chunks
			 WHERE doc_id = $1 AND content ILIKE ANY($2)
			 ORDER BY chunk_index
			 LIMIT $3`,
			q.DocID, patterns, limit,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, doc_id, chunk_index, content, source_name, embedding
			 FROM chunks
			 WHERE doc_id = $1
			 ORDER BY embedding <=> $2
			 LIMIT $3`,
			q.DocID, pgvector.NewVector(q.Embedding), limit,
		)
	}
	if err != nil {
		return nil, err
	}
	return scanChunks(rows)
}

// Get returns every chunk of a document in chunk order.
func (r *ChunkRepository) Get(ctx context.Context, docID string) ([]domain.Chunk, error) {
	if uuid.Validate(docID) != nil {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, doc_id, chunk_index, content, source_name, embedding
		 FROM chunks
		 WHERE doc_id = $1
		 ORDER BY chunk_index`,
		docID,
	)
	if err != nil {
		return nil, err
	}
	return scanChunks(rows)
}

func scanChunks(rows pgx.Rows) ([]domain.Chunk, error) {
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var emb pgvector.Vector
		if err := rows.Scan(&c.ID, &c.DocID, &c.OrderIndex, &c.Text, &c.SourceName, &emb); err != nil {
			return nil, err
		}
		c.Embedding = emb.Slice()
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ChunkRepository) DeleteDocument(ctx context.Context, docID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE doc_id = $1`, docID)
	return err
}

var _ service.VectorStore = (*ChunkRepository)(nil)
