package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/pagination"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	return m.Called(ctx, d).Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) SetChunkCount(ctx context.Context, id string, n int) error {
	return m.Called(ctx, id, n).Error(0)
}

func (m *MockDocumentRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*DocumentPage, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DocumentPage), args.Error(1)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockDocumentRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Document, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

type MockSummaryRepository struct {
	mock.Mock
}

func (m *MockSummaryRepository) ListByDocument(ctx context.Context, docID string, cursor *pagination.Cursor, limit int) (*SummaryPage, error) {
	args := m.Called(ctx, docID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SummaryPage), args.Error(1)
}

type MockStorageClient struct {
	mock.Mock
}

func (m *MockStorageClient) PutObject(ctx context.Context, key, contentType string, body []byte) error {
	return m.Called(ctx, key, contentType, body).Error(0)
}

func (m *MockStorageClient) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockStorageClient) DeleteObject(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type MockDocumentIndexer struct {
	mock.Mock
}

func (m *MockDocumentIndexer) Index(ctx context.Context, docID, rawText, sourceName string) (int, error) {
	args := m.Called(ctx, docID, rawText, sourceName)
	return args.Int(0), args.Error(1)
}

type fixedUUID string

func (f fixedUUID) NewString() string { return string(f) }

const testDocID = "3f2b8c1e-0000-4000-8000-000000000001"

func newDocumentServiceFixture(withStorage bool) (*DocumentService, *MockDocumentRepository, *MockSummaryRepository, *MockStorageClient, *MockDocumentIndexer) {
	docs := new(MockDocumentRepository)
	summaries := new(MockSummaryRepository)
	storage := new(MockStorageClient)
	indexer := new(MockDocumentIndexer)
	var sc StorageClientInterface
	if withStorage {
		sc = storage
	}
	svc := NewDocumentServiceWithUUIDGen(docs, summaries, sc, indexer, fixedUUID(testDocID))
	return svc, docs, summaries, storage, indexer
}

func TestDocumentService_Ingest(t *testing.T) {
	svc, docs, _, storage, indexer := newDocumentServiceFixture(true)
	ctx := context.Background()
	data := []byte("First paragraph about solar power.\n\nSecond paragraph about storage.")

	storage.On("PutObject", mock.Anything, "documents/"+testDocID+"/report.txt", "text/plain", data).Return(nil)
	docs.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.ID == testDocID && d.ObjectKey == "documents/"+testDocID+"/report.txt" && d.SourceName == "report.txt"
	})).Return(nil)
	indexer.On("Index", mock.Anything, testDocID,
		"First paragraph about solar power.\nSecond paragraph about storage.", "report.txt").Return(1, nil)
	docs.On("SetChunkCount", mock.Anything, testDocID, 1).Return(nil)

	res, err := svc.Ingest(ctx, "uploads/report.txt", data)

	require.NoError(t, err)
	assert.Equal(t, testDocID, res.Document.ID)
	assert.Equal(t, 1, res.ChunkCount)
	assert.Equal(t, res.Document.RawText, res.Preview)
	docs.AssertExpectations(t)
	storage.AssertExpectations(t)
	indexer.AssertExpectations(t)
}

func TestDocumentService_Ingest_PreviewIsTruncated(t *testing.T) {
	svc, docs, _, _, indexer := newDocumentServiceFixture(false)
	long := strings.Repeat("abcdefghij", 40)

	docs.On("Create", mock.Anything, mock.Anything).Return(nil)
	indexer.On("Index", mock.Anything, testDocID, long, "long.txt").Return(1, nil)
	docs.On("SetChunkCount", mock.Anything, testDocID, 1).Return(nil)

	res, err := svc.Ingest(context.Background(), "long.txt", []byte(long))

	require.NoError(t, err)
	assert.Len(t, res.Preview, PreviewChars)
	assert.Empty(t, res.Document.ObjectKey)
}

func TestDocumentService_Ingest_Unsupported(t *testing.T) {
	svc, docs, _, _, _ := newDocumentServiceFixture(false)
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

	_, err := svc.Ingest(context.Background(), "x.png", png)

	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDocumentService_Ingest_IndexFailureRollsBack(t *testing.T) {
	svc, docs, _, storage, indexer := newDocumentServiceFixture(true)
	key := "documents/" + testDocID + "/a.txt"

	storage.On("PutObject", mock.Anything, key, "text/plain", mock.Anything).Return(nil)
	docs.On("Create", mock.Anything, mock.Anything).Return(nil)
	indexer.On("Index", mock.Anything, testDocID, mock.Anything, "a.txt").Return(0, errors.New("embedder down"))
	docs.On("Delete", mock.Anything, testDocID).Return(nil)
	storage.On("DeleteObject", mock.Anything, key).Return(nil)

	_, err := svc.Ingest(context.Background(), "a.txt", []byte("some text"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedder down")
	docs.AssertExpectations(t)
	storage.AssertExpectations(t)
}

func TestDocumentService_IngestText(t *testing.T) {
	svc, docs, _, _, indexer := newDocumentServiceFixture(false)

	docs.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.SourceName == "untitled.txt" && d.ContentType == "text/plain"
	})).Return(nil)
	indexer.On("Index", mock.Anything, testDocID, "Body text.", "untitled.txt").Return(1, nil)
	docs.On("SetChunkCount", mock.Anything, testDocID, 1).Return(nil)

	res, err := svc.IngestText(context.Background(), "", "  Body   text. ")
	require.NoError(t, err)
	assert.Equal(t, "Body text.", res.Preview)

	_, err = svc.IngestText(context.Background(), "x", "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
}

func TestDocumentService_DownloadURL(t *testing.T) {
	svc, docs, _, storage, _ := newDocumentServiceFixture(true)
	ctx := context.Background()

	docs.On("GetByID", mock.Anything, "with").Return(&domain.Document{ID: "with", ObjectKey: "documents/with/a.pdf"}, nil)
	docs.On("GetByID", mock.Anything, "without").Return(&domain.Document{ID: "without"}, nil)
	storage.On("GenerateDownloadURL", mock.Anything, "documents/with/a.pdf").Return("https://signed", nil)

	url, err := svc.DownloadURL(ctx, "with")
	require.NoError(t, err)
	assert.Equal(t, "https://signed", url)

	_, err = svc.DownloadURL(ctx, "without")
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrCodeNotFound, de.Code)
}

func TestDocumentService_DownloadURL_NoStorage(t *testing.T) {
	svc, _, _, _, _ := newDocumentServiceFixture(false)

	_, err := svc.DownloadURL(context.Background(), "any")
	assert.ErrorIs(t, err, domain.ErrStorageNotConfigured)
}

func TestDocumentService_ListSummaries(t *testing.T) {
	svc, docs, summaries, _, _ := newDocumentServiceFixture(false)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cursor := pagination.EncodeCursor("s1", ts)

	docs.On("GetByID", mock.Anything, testDocID).Return(&domain.Document{ID: testDocID}, nil)
	summaries.On("ListByDocument", mock.Anything, testDocID, mock.MatchedBy(func(c *pagination.Cursor) bool {
		return c != nil && c.LastID == "s1" && c.Timestamp.Equal(ts)
	}), 10).Return(&SummaryPage{Items: []*domain.SummaryRecord{{ID: "s0"}}}, nil)

	page, err := svc.ListSummaries(ctx, testDocID, cursor, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	_, err = svc.ListSummaries(ctx, testDocID, "%%%", 10)
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrCodeValidation, de.Code)
}

func TestDocumentService_List_ClampsLimit(t *testing.T) {
	svc, docs, _, _, _ := newDocumentServiceFixture(false)

	docs.On("ListWithCursor", mock.Anything, (*pagination.Cursor)(nil), pagination.DefaultLimit).
		Return(&DocumentPage{}, nil).Once()
	docs.On("ListWithCursor", mock.Anything, (*pagination.Cursor)(nil), pagination.MaxLimit).
		Return(&DocumentPage{}, nil).Once()

	_, err := svc.List(context.Background(), "", 0)
	require.NoError(t, err)
	_, err = svc.List(context.Background(), "", 5000)
	require.NoError(t, err)
	docs.AssertExpectations(t)
}

func TestDocumentService_ListSummaries_UnknownDocument(t *testing.T) {
	svc, docs, summaries, _, _ := newDocumentServiceFixture(false)

	docs.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrDocumentNotFound)

	_, err := svc.ListSummaries(context.Background(), "missing", "", 10)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	summaries.AssertNotCalled(t, "ListByDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentService_Delete(t *testing.T) {
	svc, docs, _, storage, _ := newDocumentServiceFixture(true)

	docs.On("GetByID", mock.Anything, testDocID).Return(&domain.Document{ID: testDocID, ObjectKey: "k"}, nil)
	docs.On("Delete", mock.Anything, testDocID).Return(nil)
	storage.On("DeleteObject", mock.Anything, "k").Return(errors.New("gone already"))

	assert.NoError(t, svc.Delete(context.Background(), testDocID))
	storage.AssertExpectations(t)
}

func TestDocumentService_PurgeCreatedBefore(t *testing.T) {
	svc, docs, _, storage, _ := newDocumentServiceFixture(true)
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	docs.On("DeleteCreatedBefore", mock.Anything, cutoff, 50).Return([]*domain.Document{
		{ID: "a", ObjectKey: "documents/a/x.pdf"},
		{ID: "b"},
	}, nil)
	storage.On("DeleteObject", mock.Anything, "documents/a/x.pdf").Return(nil)

	n, err := svc.PurgeCreatedBefore(context.Background(), cutoff, 50)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	storage.AssertNumberOfCalls(t, "DeleteObject", 1)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "documents/d1/a_b.pdf", objectKey("d1", "a/b.pdf"))
}
