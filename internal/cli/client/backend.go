package client

import (
	"context"

	"github.com/cloo-solutions/gistify/internal/domain"
)

// Backend runs the CLI's operations either in-process or against a server.
type Backend interface {
	Index(ctx context.Context, path string) (*IndexedDocument, error)
	Summarize(ctx context.Context, docID string, summaryType domain.SummaryType) (*domain.SummaryRecord, error)
	Ask(ctx context.Context, docID, question string) (*domain.Answer, error)
	Documents(ctx context.Context) ([]*domain.Document, error)
	Delete(ctx context.Context, docID string) error
}

type IndexedDocument struct {
	Document *domain.Document
	Preview  string
}
