//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/pagination"
	"github.com/cloo-solutions/gistify/internal/testutil"
)

func createDocument(ctx context.Context, t *testing.T, repo *DocumentRepository, name string, createdAt time.Time) *domain.Document {
	t.Helper()
	doc := domain.NewDocument(uuid.NewString(), name, "Solar panels convert sunlight.", "text/plain", createdAt.UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, doc))
	return doc
}

func TestDocumentRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(testutil.SetupPostgres(t, "../../migrations"))

	doc := domain.NewDocument(uuid.NewString(), "paper.pdf", "text", "application/pdf", time.Now().UTC().Truncate(time.Microsecond))
	doc.ObjectKey = "documents/" + doc.ID + "/paper.pdf"
	require.NoError(t, repo.Create(ctx, doc))
	require.NoError(t, repo.SetChunkCount(ctx, doc.ID, 7))

	got, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.SourceName, got.SourceName)
	assert.Equal(t, doc.ObjectKey, got.ObjectKey)
	assert.Equal(t, "application/pdf", got.ContentType)
	assert.Equal(t, 7, got.ChunkCount)
	assert.True(t, doc.CreatedAt.Equal(got.CreatedAt))
}

func TestDocumentRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(testutil.SetupPostgres(t, "../../migrations"))

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, uuid.NewString()), domain.ErrDocumentNotFound)
	assert.ErrorIs(t, repo.SetChunkCount(ctx, uuid.NewString(), 1), domain.ErrDocumentNotFound)
}

func TestDocumentRepository_ListWithCursor(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(testutil.SetupPostgres(t, "../../migrations"))

	base := time.Now().Add(-time.Hour)
	var ids []string
	for i := range 5 {
		ids = append(ids, createDocument(ctx, t, repo, "doc", base.Add(time.Duration(i)*time.Minute)).ID)
	}

	page, err := repo.ListWithCursor(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, ids[4], page.Items[0].ID)
	assert.Equal(t, ids[3], page.Items[1].ID)

	var seen []string
	cursorStr := page.NextCursor
	for cursorStr != "" {
		cursor, err := pagination.DecodeCursor(cursorStr)
		require.NoError(t, err)
		next, err := repo.ListWithCursor(ctx, cursor, 2)
		require.NoError(t, err)
		for _, d := range next.Items {
			seen = append(seen, d.ID)
		}
		cursorStr = next.NextCursor
	}
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, seen)
}

func TestDocumentRepository_DeleteCreatedBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(testutil.SetupPostgres(t, "../../migrations"))

	now := time.Now()
	old1 := createDocument(ctx, t, repo, "old1", now.Add(-72*time.Hour))
	old2 := createDocument(ctx, t, repo, "old2", now.Add(-48*time.Hour))
	fresh := createDocument(ctx, t, repo, "fresh", now)

	deleted, err := repo.DeleteCreatedBefore(ctx, now.Add(-24*time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, old1.ID, deleted[0].ID)

	deleted, err = repo.DeleteCreatedBefore(ctx, now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, old2.ID, deleted[0].ID)

	_, err = repo.GetByID(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestDocumentRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	pool := testutil.SetupPostgres(t, "../../migrations")
	docs := NewDocumentRepository(pool)
	chunks := NewChunkRepository(pool)
	summaries := NewSummaryRepository(pool)

	doc := createDocument(ctx, t, docs, "paper.txt", time.Now())
	require.NoError(t, chunks.Add(ctx, []domain.Chunk{testChunk(doc.ID, 0, "text", 1, 0)}))
	_, err := summaries.Create(ctx, testSummary(doc.ID, time.Now()))
	require.NoError(t, err)

	require.NoError(t, docs.Delete(ctx, doc.ID))

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM chunks WHERE doc_id = $1`, doc.ID).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM summaries WHERE doc_id = $1`, doc.ID).Scan(&n))
	assert.Zero(t, n)
}
