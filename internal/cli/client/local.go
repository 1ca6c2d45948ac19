package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/extract"
	"github.com/cloo-solutions/gistify/internal/service"
	"github.com/cloo-solutions/gistify/internal/vectorstore"
)

// localBackend runs the pipeline in-process on a chromem store.
type localBackend struct {
	store    *vectorstore.Store
	pipeline *service.Pipeline
	uuidGen  service.UUIDGenerator
	now      func() time.Time
}

func newLocalBackend(store *vectorstore.Store, embedder service.Embedder, generator service.Generator, cfg service.PipelineConfig) *localBackend {
	return &localBackend{
		store:    store,
		pipeline: service.NewPipeline(embedder, store, generator, store, nil, cfg, nil),
		uuidGen:  &service.DefaultUUIDGenerator{},
		now:      time.Now,
	}
}

func (b *localBackend) Index(ctx context.Context, path string) (*IndexedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	extracted, err := extract.Extract(name, data)
	if err != nil {
		return nil, err
	}

	doc := domain.NewDocument(b.uuidGen.NewString(), name, extracted.Text, extracted.ContentType, b.now().UTC())
	n, err := b.pipeline.Index(ctx, doc.ID, doc.RawText, doc.SourceName)
	if err != nil {
		return nil, err
	}
	doc.ChunkCount = n
	if err := b.store.CreateDocument(ctx, doc); err != nil {
		_ = b.store.DeleteDocument(ctx, doc.ID)
		return nil, fmt.Errorf("save document: %w", err)
	}
	return &IndexedDocument{Document: doc, Preview: doc.Preview(service.PreviewChars)}, nil
}

func (b *localBackend) Summarize(ctx context.Context, docID string, summaryType domain.SummaryType) (*domain.SummaryRecord, error) {
	return b.pipeline.Summarize(ctx, docID, summaryType)
}

func (b *localBackend) Ask(ctx context.Context, docID, question string) (*domain.Answer, error) {
	return b.pipeline.Ask(ctx, docID, question)
}

func (b *localBackend) Documents(ctx context.Context) ([]*domain.Document, error) {
	return b.store.ListDocuments(ctx)
}

func (b *localBackend) Delete(ctx context.Context, docID string) error {
	if _, err := b.store.GetByID(ctx, docID); err != nil {
		return err
	}
	return b.store.DeleteDocument(ctx, docID)
}
