package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/extract"
	"github.com/cloo-solutions/gistify/internal/logger"
	"github.com/cloo-solutions/gistify/internal/pagination"
	"github.com/cloo-solutions/gistify/internal/telemetry"
)

// PreviewChars is the length of the text sample returned after ingestion.
const PreviewChars = 250

type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	SetChunkCount(ctx context.Context, id string, n int) error
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*DocumentPage, error)
	Delete(ctx context.Context, id string) error
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Document, error)
}

type SummaryRepositoryInterface interface {
	ListByDocument(ctx context.Context, docID string, cursor *pagination.Cursor, limit int) (*SummaryPage, error)
}

type StorageClientInterface interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) error
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// DocumentIndexer chunks and embeds a document's text. Pipeline implements it.
type DocumentIndexer interface {
	Index(ctx context.Context, docID, rawText, sourceName string) (int, error)
}

type DocumentPage struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

type SummaryPage struct {
	Items      []*domain.SummaryRecord
	NextCursor string
	HasMore    bool
}

type IngestResult struct {
	Document   *domain.Document
	Preview    string
	ChunkCount int
}

// DocumentService owns the document lifecycle around the pipeline: extraction,
// original storage, indexing, listing and deletion.
type DocumentService struct {
	docs      DocumentRepositoryInterface
	summaries SummaryRepositoryInterface
	storage   StorageClientInterface
	indexer   DocumentIndexer
	uuidGen   UUIDGenerator
	now       func() time.Time
}

// NewDocumentService builds the service. storage may be nil, in which case
// originals are not kept and download URLs are unavailable.
func NewDocumentService(
	docs DocumentRepositoryInterface,
	summaries SummaryRepositoryInterface,
	storage StorageClientInterface,
	indexer DocumentIndexer,
) *DocumentService {
	return &DocumentService{
		docs:      docs,
		summaries: summaries,
		storage:   storage,
		indexer:   indexer,
		uuidGen:   &DefaultUUIDGenerator{},
		now:       time.Now,
	}
}

func NewDocumentServiceWithUUIDGen(
	docs DocumentRepositoryInterface,
	summaries SummaryRepositoryInterface,
	storage StorageClientInterface,
	indexer DocumentIndexer,
	uuidGen UUIDGenerator,
) *DocumentService {
	s := NewDocumentService(docs, summaries, storage, indexer)
	s.uuidGen = uuidGen
	return s
}

// Ingest extracts text from an uploaded file, keeps the original when storage is
// configured, and indexes the document.
func (s *DocumentService) Ingest(ctx context.Context, filename string, data []byte) (*IngestResult, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "filename is required")
	}
	extracted, err := extract.Extract(filename, data)
	if err != nil {
		return nil, err
	}

	doc := domain.NewDocument(s.uuidGen.NewString(), filepath.Base(filename), extracted.Text, extracted.ContentType, s.now().UTC())
	if s.storage != nil {
		key := objectKey(doc.ID, doc.SourceName)
		if err := s.storage.PutObject(ctx, key, extracted.ContentType, data); err != nil {
			return nil, fmt.Errorf("failed to store original: %w", err)
		}
		doc.ObjectKey = key
	}
	return s.create(ctx, doc)
}

// IngestText indexes text submitted directly, without an original file.
func (s *DocumentService) IngestText(ctx context.Context, sourceName, text string) (*IngestResult, error) {
	if strings.TrimSpace(sourceName) == "" {
		sourceName = "untitled.txt"
	}
	cleaned := extract.CleanText(text)
	if cleaned == "" {
		return nil, domain.ErrEmptyDocument
	}
	doc := domain.NewDocument(s.uuidGen.NewString(), sourceName, cleaned, extract.ContentTypeText, s.now().UTC())
	return s.create(ctx, doc)
}

func (s *DocumentService) create(ctx context.Context, doc *domain.Document) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Ingest", telemetry.SpanAttributes{
		DocID:     doc.ID,
		Operation: "ingest",
	})
	defer span.End()

	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		s.discardObject(ctx, doc)
		span.SetError(err)
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	n, err := s.indexer.Index(ctx, doc.ID, doc.RawText, doc.SourceName)
	if err != nil {
		if delErr := s.docs.Delete(ctx, doc.ID); delErr != nil {
			logger.FromContext(ctx).Warn("rollback of unindexed document failed", "doc_id", doc.ID, "error", delErr)
		}
		s.discardObject(ctx, doc)
		span.SetError(err)
		return nil, fmt.Errorf("failed to index document: %w", err)
	}
	if err := s.docs.SetChunkCount(ctx, doc.ID, n); err != nil {
		return nil, fmt.Errorf("failed to record chunk count: %w", err)
	}
	doc.ChunkCount = n

	logger.FromContext(ctx).Info("document ingested",
		"doc_id", doc.ID,
		"source", doc.SourceName,
		"content_type", doc.ContentType,
		"chunks", n,
	)
	return &IngestResult{Document: doc, Preview: doc.Preview(PreviewChars), ChunkCount: n}, nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	return s.docs.GetByID(ctx, id)
}

func (s *DocumentService) List(ctx context.Context, cursor string, limit int) (*DocumentPage, error) {
	c, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	return s.docs.ListWithCursor(ctx, c, pagination.ClampLimit(limit))
}

// DownloadURL returns a time-limited URL for the original upload.
func (s *DocumentService) DownloadURL(ctx context.Context, id string) (string, error) {
	if s.storage == nil {
		return "", domain.ErrStorageNotConfigured
	}
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if doc.ObjectKey == "" {
		return "", domain.NewDomainError(domain.ErrCodeNotFound, "document has no stored original")
	}
	url, err := s.storage.GenerateDownloadURL(ctx, doc.ObjectKey)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to sign download url", err)
	}
	return url, nil
}

func (s *DocumentService) ListSummaries(ctx context.Context, docID, cursor string, limit int) (*SummaryPage, error) {
	if _, err := s.docs.GetByID(ctx, docID); err != nil {
		return nil, err
	}
	c, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	return s.summaries.ListByDocument(ctx, docID, c, pagination.ClampLimit(limit))
}

// Delete removes a document with its chunks and summaries, then its stored original.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		return err
	}
	s.discardObject(ctx, doc)
	return nil
}

// PurgeCreatedBefore deletes up to batch documents older than cutoff and returns how many went.
func (s *DocumentService) PurgeCreatedBefore(ctx context.Context, cutoff time.Time, batch int) (int, error) {
	docs, err := s.docs.DeleteCreatedBefore(ctx, cutoff, batch)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired documents: %w", err)
	}
	for _, d := range docs {
		s.discardObject(ctx, d)
	}
	return len(docs), nil
}

func (s *DocumentService) discardObject(ctx context.Context, doc *domain.Document) {
	if s.storage == nil || doc.ObjectKey == "" {
		return
	}
	if err := s.storage.DeleteObject(ctx, doc.ObjectKey); err != nil {
		logger.FromContext(ctx).Warn("failed to delete stored original", "doc_id", doc.ID, "key", doc.ObjectKey, "error", err)
	}
}

func decodeCursor(cursor string) (*pagination.Cursor, error) {
	c, err := pagination.DecodeCursor(cursor)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
		}
		return nil, err
	}
	return c, nil
}

func objectKey(docID, filename string) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r < 0x20 {
			return '_'
		}
		return r
	}, filename)
	return fmt.Sprintf("documents/%s/%s", docID, name)
}
