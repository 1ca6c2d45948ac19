package client

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/cloo-solutions/gistify/internal/api/handlers"
	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/pagination"
)

type remoteBackend struct {
	api *APIClient
}

func newRemoteBackend(api *APIClient) *remoteBackend {
	return &remoteBackend{api: api}
}

func documentPath(docID string, rest string) string {
	return "/documents/" + url.PathEscape(docID) + rest
}

func (b *remoteBackend) Index(ctx context.Context, path string) (*IndexedDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var resp handlers.IngestResponse
	if err := b.api.Upload(ctx, "/documents", filepath.Base(path), f, &resp); err != nil {
		return nil, err
	}
	return &IndexedDocument{Document: documentFromResponse(&resp.DocumentResponse), Preview: resp.Preview}, nil
}

func (b *remoteBackend) Summarize(ctx context.Context, docID string, summaryType domain.SummaryType) (*domain.SummaryRecord, error) {
	var resp handlers.SummaryResponse
	req := handlers.SummarizeRequest{SummaryType: string(summaryType)}
	if err := b.api.Post(ctx, documentPath(docID, "/summaries"), req, &resp); err != nil {
		return nil, err
	}
	created, _ := time.Parse(time.RFC3339, resp.CreatedAt)
	return &domain.SummaryRecord{
		ID:            resp.ID,
		DocID:         resp.DocID,
		SummaryType:   domain.SummaryType(resp.SummaryType),
		SummaryText:   resp.Summary,
		Advantages:    resp.Advantages,
		Disadvantages: resp.Disadvantages,
		SourceName:    resp.SourceName,
		CreatedAt:     created,
	}, nil
}

func (b *remoteBackend) Ask(ctx context.Context, docID, question string) (*domain.Answer, error) {
	var resp handlers.AnswerResponse
	if err := b.api.Post(ctx, documentPath(docID, "/ask"), handlers.AskRequest{Question: question}, &resp); err != nil {
		return nil, err
	}
	return &domain.Answer{
		DocID:    resp.DocID,
		Question: resp.Question,
		Text:     resp.Answer,
		Source:   resp.Source,
		Degraded: resp.Degraded,
	}, nil
}

// Documents follows cursors until the server reports no more pages.
func (b *remoteBackend) Documents(ctx context.Context) ([]*domain.Document, error) {
	var out []*domain.Document
	cursor := ""
	for {
		q := url.Values{"limit": {fmt.Sprint(pagination.MaxLimit)}}
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		var page handlers.DocumentListResponse
		if err := b.api.Get(ctx, "/documents?"+q.Encode(), &page); err != nil {
			return nil, err
		}
		for _, d := range page.Items {
			out = append(out, documentFromResponse(d))
		}
		if !page.HasMore || page.NextCursor == "" {
			return out, nil
		}
		cursor = page.NextCursor
	}
}

func (b *remoteBackend) Delete(ctx context.Context, docID string) error {
	return b.api.Delete(ctx, documentPath(docID, ""))
}

func documentFromResponse(d *handlers.DocumentResponse) *domain.Document {
	created, _ := time.Parse(time.RFC3339, d.CreatedAt)
	return &domain.Document{
		ID:          d.ID,
		SourceName:  d.SourceName,
		ContentType: d.ContentType,
		ChunkCount:  d.ChunkCount,
		CreatedAt:   created,
	}
}
