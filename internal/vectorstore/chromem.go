// Package vectorstore keeps chunk embeddings and document text in an embedded
// chromem-go database so the CLI can run without Postgres.
package vectorstore

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/philippgille/chromem-go"

	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/service"
)

const (
	chunkCollection    = "chunks"
	documentCollection = "documents"

	metaDocID       = "doc_id"
	metaOrder       = "order_index"
	metaSource      = "source_name"
	metaContentType = "content_type"
	metaChunkCount  = "chunk_count"
	metaCreatedAt   = "created_at"
)

// documentVector is the unit vector every document record carries. The documents
// collection is only read by id or in full, never ranked.
var documentVector = []float32{1}

// Store implements the pipeline's VectorStore and DocumentReader over chromem-go.
type Store struct {
	chunks    *chromem.Collection
	documents *chromem.Collection
	now       func() time.Time
}

// Open opens a persistent store under dir. An empty dir keeps everything in memory.
func Open(dir string) (*Store, error) {
	var (
		db  *chromem.DB
		err error
	)
	if dir == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dir, false)
		if err != nil {
			return nil, fmt.Errorf("open chromem db at %s: %w", dir, err)
		}
	}
	return newStore(db)
}

func newStore(db *chromem.DB) (*Store, error) {
	chunks, err := db.GetOrCreateCollection(chunkCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s collection: %w", chunkCollection, err)
	}
	documents, err := db.GetOrCreateCollection(documentCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s collection: %w", documentCollection, err)
	}
	return &Store{chunks: chunks, documents: documents, now: time.Now}, nil
}

func (s *Store) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", c.ID)
		}
		docs = append(docs, chromem.Document{
			ID:      c.ID,
			Content: c.Text,
			Metadata: map[string]string{
				metaDocID:  c.DocID,
				metaOrder:  strconv.Itoa(c.OrderIndex),
				metaSource: c.SourceName,
			},
			Embedding: c.Embedding,
		})
	}
	if err := s.chunks.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add chunks: %w", err)
	}
	return nil
}

// Query ranks a document's chunks by similarity, or, when q.Embedding is nil,
// returns the chunks containing any keyword in document order.
func (s *Store) Query(ctx context.Context, q service.VectorQuery) ([]domain.Chunk, error) {
	if q.Embedding == nil {
		return s.keywordQuery(ctx, q)
	}
	return s.rank(ctx, q.DocID, q.Embedding, q.TopK)
}

func (s *Store) rank(ctx context.Context, docID string, embedding []float32, topK int) ([]domain.Chunk, error) {
	n := min(topK, s.chunks.Count())
	if n <= 0 {
		return nil, nil
	}
	results, err := s.chunks.QueryEmbedding(ctx, embedding, n, map[string]string{metaDocID: docID}, nil)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	out := make([]domain.Chunk, 0, len(results))
	for _, r := range results {
		out = append(out, toChunk(r.ID, r.Content, r.Metadata, r.Embedding))
	}
	return out, nil
}

// Get returns every chunk of a document in order. The indexer assigns
// contiguous ordinals, so the walk stops at the first missing id.
func (s *Store) Get(ctx context.Context, docID string) ([]domain.Chunk, error) {
	var out []domain.Chunk
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := s.chunks.GetByID(ctx, domain.ChunkID(docID, i))
		if err != nil {
			return out, nil
		}
		out = append(out, toChunk(rec.ID, rec.Content, rec.Metadata, rec.Embedding))
	}
}

// keywordQuery matches case-insensitively like the Postgres ILIKE path;
// chromem's $contains filter is case-sensitive.
func (s *Store) keywordQuery(ctx context.Context, q service.VectorQuery) ([]domain.Chunk, error) {
	if len(q.Keywords) == 0 {
		return nil, nil
	}
	chunks, err := s.Get(ctx, q.DocID)
	if err != nil {
		return nil, err
	}
	keywords := make([]string, 0, len(q.Keywords))
	for _, kw := range q.Keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			keywords = append(keywords, kw)
		}
	}

	var out []domain.Chunk
	for _, c := range chunks {
		text := strings.ToLower(c.Text)
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				out = append(out, c)
				break
			}
		}
		if q.TopK > 0 && len(out) == q.TopK {
			break
		}
	}
	return out, nil
}

func (s *Store) DeleteDocument(ctx context.Context, docID string) error {
	if err := s.chunks.Delete(ctx, map[string]string{metaDocID: docID}, nil); err != nil {
		return fmt.Errorf("delete chunks of %s: %w", docID, err)
	}
	if err := s.documents.Delete(ctx, nil, nil, docID); err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	return nil
}

// CreateDocument stores the extracted text and metadata of a document.
func (s *Store) CreateDocument(ctx context.Context, doc *domain.Document) error {
	if err := domain.ValidateDocument(doc); err != nil {
		return err
	}
	created := doc.CreatedAt
	if created.IsZero() {
		created = s.now().UTC()
	}
	err := s.documents.AddDocument(ctx, chromem.Document{
		ID:      doc.ID,
		Content: doc.RawText,
		Metadata: map[string]string{
			metaSource:      doc.SourceName,
			metaContentType: doc.ContentType,
			metaChunkCount:  strconv.Itoa(doc.ChunkCount),
			metaCreatedAt:   created.Format(time.RFC3339Nano),
		},
		Embedding: documentVector,
	})
	if err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	rec, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, domain.ErrDocumentNotFound
	}
	return toDocument(rec.ID, rec.Content, rec.Metadata), nil
}

// ListDocuments returns every stored document, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]*domain.Document, error) {
	n := s.documents.Count()
	if n == 0 {
		return nil, nil
	}
	results, err := s.documents.QueryEmbedding(ctx, documentVector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	docs := make([]*domain.Document, 0, len(results))
	for _, r := range results {
		docs = append(docs, toDocument(r.ID, r.Content, r.Metadata))
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	return docs, nil
}

func toChunk(id, content string, meta map[string]string, embedding []float32) domain.Chunk {
	order, _ := strconv.Atoi(meta[metaOrder])
	return domain.Chunk{
		ID:         id,
		DocID:      meta[metaDocID],
		Text:       content,
		Embedding:  embedding,
		OrderIndex: order,
		SourceName: meta[metaSource],
	}
}

func toDocument(id, content string, meta map[string]string) *domain.Document {
	count, _ := strconv.Atoi(meta[metaChunkCount])
	created, _ := time.Parse(time.RFC3339Nano, meta[metaCreatedAt])
	return &domain.Document{
		ID:          id,
		SourceName:  meta[metaSource],
		RawText:     content,
		ContentType: meta[metaContentType],
		ChunkCount:  count,
		CreatedAt:   created,
	}
}

var _ service.VectorStore = (*Store)(nil)
var _ service.DocumentReader = (*Store)(nil)
