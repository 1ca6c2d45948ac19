package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/gistify/internal/domain"
)

func TestIndexer_Index_AssignsOrdinalIDs(t *testing.T) {
	store := &memStore{}
	ix := NewIndexer(hashEmbedder{dims: 16}, store, ChunkConfig{MaxChars: 12}, 2, nil)

	doc := &domain.Document{ID: "doc1", SourceName: "paper.pdf", RawText: "alpha beta\ngamma delta\nepsilon\nzeta eta"}
	n, err := ix.Index(context.Background(), doc)
	require.NoError(t, err)

	require.Equal(t, n, len(store.chunks))
	for i, c := range store.chunks {
		assert.Equal(t, domain.ChunkID("doc1", i), c.ID)
		assert.Equal(t, i, c.OrderIndex)
		assert.Equal(t, "doc1", c.DocID)
		assert.Equal(t, "paper.pdf", c.SourceName)
		assert.Len(t, c.Embedding, 16)
	}
}

func TestIndexer_Index_BatchesEmbeddings(t *testing.T) {
	emb := new(MockEmbedder)
	store := new(MockVectorStore)
	ix := NewIndexer(emb, store, ChunkConfig{MaxChars: 5}, 2, nil)

	emb.On("Embed", mock.Anything, []string{"aaaa", "bbbb"}).Return([][]float32{{1}, {2}}, nil).Once()
	emb.On("Embed", mock.Anything, []string{"cccc"}).Return([][]float32{{3}}, nil).Once()
	store.On("Add", mock.Anything, mock.MatchedBy(func(c []domain.Chunk) bool {
		return len(c) == 3 && c[2].ID == "d_2" && c[2].Embedding[0] == 3
	})).Return(nil)

	n, err := ix.Index(context.Background(), &domain.Document{ID: "d", RawText: "aaaa\nbbbb\ncccc"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	emb.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestIndexer_Index_EmptyDocument(t *testing.T) {
	ix := NewIndexer(hashEmbedder{dims: 4}, &memStore{}, DefaultChunkConfig(), 0, nil)

	_, err := ix.Index(context.Background(), &domain.Document{ID: "d", RawText: "  \n "})
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)

	_, err = ix.Index(context.Background(), &domain.Document{RawText: "text"})
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
}

func TestIndexer_Index_EmbedError(t *testing.T) {
	emb := new(MockEmbedder)
	store := new(MockVectorStore)
	ix := NewIndexer(emb, store, DefaultChunkConfig(), 10, nil)

	emb.On("Embed", mock.Anything, mock.Anything).Return(nil, errors.New("rate limited"))

	_, err := ix.Index(context.Background(), &domain.Document{ID: "d", RawText: strings.Repeat("x", 10)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	store.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestIndexer_Index_VectorCountMismatch(t *testing.T) {
	emb := new(MockEmbedder)
	ix := NewIndexer(emb, new(MockVectorStore), DefaultChunkConfig(), 10, nil)

	emb.On("Embed", mock.Anything, mock.Anything).Return([][]float32{}, nil)

	_, err := ix.Index(context.Background(), &domain.Document{ID: "d", RawText: "hello"})
	assert.Error(t, err)
}
