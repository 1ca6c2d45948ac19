package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"unicode"

	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/gistify/internal/domain"
)

// MockEmbedder mocks the embedding capability
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockVectorStore mocks the vector store
type MockVectorStore struct {
	mock.Mock
}

func (m *MockVectorStore) Add(ctx context.Context, chunks []domain.Chunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

func (m *MockVectorStore) Query(ctx context.Context, q VectorQuery) ([]domain.Chunk, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Chunk), args.Error(1)
}

func (m *MockVectorStore) Get(ctx context.Context, docID string) ([]domain.Chunk, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Chunk), args.Error(1)
}

func (m *MockVectorStore) DeleteDocument(ctx context.Context, docID string) error {
	args := m.Called(ctx, docID)
	return args.Error(0)
}

// MockGenerator mocks the generation capability
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string, params domain.DecodingParams) (string, error) {
	args := m.Called(ctx, prompt, params)
	return args.String(0), args.Error(1)
}

// MockDocumentReader mocks document lookups
type MockDocumentReader struct {
	mock.Mock
}

func (m *MockDocumentReader) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

// MockSummaryWriter mocks summary persistence
type MockSummaryWriter struct {
	mock.Mock
}

func (m *MockSummaryWriter) Create(ctx context.Context, s *domain.SummaryRecord) (string, error) {
	args := m.Called(ctx, s)
	return args.String(0), args.Error(1)
}

// hashEmbedder is a deterministic bag-of-words embedder.
type hashEmbedder struct {
	dims int
}

func (e hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, e.dims)
		for _, w := range strings.FieldsFunc(strings.ToLower(t), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(w))
			vec[h.Sum32()%uint32(e.dims)]++
		}
		out[i] = vec
	}
	return out, nil
}

// memStore is an in-memory VectorStore.
type memStore struct {
	chunks []domain.Chunk
}

func (s *memStore) Add(_ context.Context, chunks []domain.Chunk) error {
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func (s *memStore) Query(_ context.Context, q VectorQuery) ([]domain.Chunk, error) {
	var scoped []domain.Chunk
	for _, c := range s.chunks {
		if c.DocID == q.DocID {
			scoped = append(scoped, c)
		}
	}
	if q.Embedding == nil {
		var out []domain.Chunk
		for _, c := range scoped {
			lower := strings.ToLower(c.Text)
			for _, kw := range q.Keywords {
				if strings.Contains(lower, kw) {
					out = append(out, c)
					break
				}
			}
		}
		return limit(out, q.TopK), nil
	}
	sort.SliceStable(scoped, func(i, j int) bool {
		return cosineSimilarity(q.Embedding, scoped[i].Embedding) > cosineSimilarity(q.Embedding, scoped[j].Embedding)
	})
	return limit(scoped, q.TopK), nil
}

func (s *memStore) Get(_ context.Context, docID string) ([]domain.Chunk, error) {
	var out []domain.Chunk
	for _, c := range s.chunks {
		if c.DocID == docID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (s *memStore) DeleteDocument(_ context.Context, docID string) error {
	kept := s.chunks[:0]
	for _, c := range s.chunks {
		if c.DocID != docID {
			kept = append(kept, c)
		}
	}
	s.chunks = kept
	return nil
}

func limit(chunks []domain.Chunk, k int) []domain.Chunk {
	if k > 0 && len(chunks) > k {
		return chunks[:k]
	}
	return chunks
}

// distinctWords returns n unique tokens that never trip the repetition check.
func distinctWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("tok%04d", i+1)
	}
	return strings.Join(words, " ")
}
