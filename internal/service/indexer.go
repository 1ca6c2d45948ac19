package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/logger"
	"github.com/cloo-solutions/gistify/internal/metrics"
)

// Embedder turns texts into vectors. Implementations must return one vector per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorQuery scopes a store lookup to one document. When Embedding is nil the
// store matches chunks containing any of Keywords instead of ranking by distance.
type VectorQuery struct {
	DocID     string
	Embedding []float32
	Keywords  []string
	TopK      int
}

// VectorStore persists chunk embeddings and answers scoped nearest-neighbour queries.
type VectorStore interface {
	Add(ctx context.Context, chunks []domain.Chunk) error
	Query(ctx context.Context, q VectorQuery) ([]domain.Chunk, error)
	// Get returns every chunk of a document in chunk order.
	Get(ctx context.Context, docID string) ([]domain.Chunk, error)
	DeleteDocument(ctx context.Context, docID string) error
}

// Indexer chunks a document, embeds the chunks in batches and writes them to the store.
type Indexer struct {
	embedder  Embedder
	store     VectorStore
	chunkCfg  ChunkConfig
	batchSize int
	metrics   *metrics.Metrics
}

func NewIndexer(embedder Embedder, store VectorStore, chunkCfg ChunkConfig, batchSize int, m *metrics.Metrics) *Indexer {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &Indexer{
		embedder:  embedder,
		store:     store,
		chunkCfg:  chunkCfg,
		batchSize: batchSize,
		metrics:   m,
	}
}

// Index stores every chunk of doc under the identity {doc_id}_{ordinal} and returns the chunk count.
// Re-indexing the same text requires a new document id.
func (ix *Indexer) Index(ctx context.Context, doc *domain.Document) (int, error) {
	if doc == nil || doc.ID == "" {
		return 0, domain.ErrMissingRequiredField
	}
	texts := chunkText(doc.RawText, ix.chunkCfg)
	if len(texts) == 0 {
		return 0, domain.ErrEmptyDocument
	}

	chunks := make([]domain.Chunk, 0, len(texts))
	for start := 0; start < len(texts); start += ix.batchSize {
		end := min(start+ix.batchSize, len(texts))
		vectors, err := ix.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return 0, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != end-start {
			return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), end-start)
		}
		for i, vec := range vectors {
			ordinal := start + i
			chunks = append(chunks, domain.Chunk{
				ID:         domain.ChunkID(doc.ID, ordinal),
				DocID:      doc.ID,
				Text:       texts[ordinal],
				Embedding:  vec,
				OrderIndex: ordinal,
				SourceName: doc.SourceName,
			})
		}
	}

	if err := ix.store.Add(ctx, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	ix.metrics.ChunksIndexed(len(chunks))
	logger.FromContext(ctx).Info("document indexed", "doc_id", doc.ID, "chunks", len(chunks))
	return len(chunks), nil
}
