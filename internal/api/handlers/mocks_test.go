package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/service"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Ingest(ctx context.Context, filename string, data []byte) (*service.IngestResult, error) {
	args := m.Called(ctx, filename, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

func (m *MockDocumentService) IngestText(ctx context.Context, sourceName, text string) (*service.IngestResult, error) {
	args := m.Called(ctx, sourceName, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, cursor string, limit int) (*service.DocumentPage, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentPage), args.Error(1)
}

func (m *MockDocumentService) DownloadURL(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockDocumentService) ListSummaries(ctx context.Context, docID, cursor string, limit int) (*service.SummaryPage, error) {
	args := m.Called(ctx, docID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SummaryPage), args.Error(1)
}

type MockPipelineService struct {
	mock.Mock
}

func (m *MockPipelineService) Summarize(ctx context.Context, docID string, summaryType domain.SummaryType) (*domain.SummaryRecord, error) {
	args := m.Called(ctx, docID, summaryType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SummaryRecord), args.Error(1)
}

func (m *MockPipelineService) Ask(ctx context.Context, docID, question string) (*domain.Answer, error) {
	args := m.Called(ctx, docID, question)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Answer), args.Error(1)
}

func (m *MockPipelineService) Points(ctx context.Context, docID string, polarity domain.TaskType) ([]string, error) {
	args := m.Called(ctx, docID, polarity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// newTestRouter mounts the handlers on the same paths the server uses.
func newTestRouter(docs *MockDocumentService, pipeline *MockPipelineService) http.Handler {
	dh := NewDocumentHandler(docs)
	ph := NewPipelineHandler(pipeline, docs)

	r := chi.NewRouter()
	r.Route("/documents", func(r chi.Router) {
		r.Post("/", dh.Upload)
		r.Get("/", dh.List)
		r.Post("/text", dh.CreateText)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", dh.Get)
			r.Delete("/", dh.Delete)
			r.Get("/download-url", dh.DownloadURL)
			r.Post("/summaries", ph.Summarize)
			r.Get("/summaries", ph.ListSummaries)
			r.Post("/ask", ph.Ask)
			r.Get("/points", ph.Points)
		})
	})
	return r
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
