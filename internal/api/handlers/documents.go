package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/gistify/internal/api"
	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/service"
)

const uploadMemory = 8 << 20

type DocumentService interface {
	Ingest(ctx context.Context, filename string, data []byte) (*service.IngestResult, error)
	IngestText(ctx context.Context, sourceName, text string) (*service.IngestResult, error)
	Get(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, cursor string, limit int) (*service.DocumentPage, error)
	DownloadURL(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type CreateTextRequest struct {
	SourceName string `json:"source_name" validate:"max=255"`
	Text       string `json:"text" validate:"required"`
}

type DocumentResponse struct {
	ID          string `json:"id"`
	SourceName  string `json:"source_name"`
	ContentType string `json:"content_type"`
	ChunkCount  int    `json:"chunk_count"`
	HasOriginal bool   `json:"has_original"`
	CreatedAt   string `json:"created_at"`
}

type IngestResponse struct {
	DocumentResponse
	Preview string `json:"preview"`
}

type DocumentListResponse struct {
	Items      []*DocumentResponse `json:"items"`
	NextCursor string              `json:"next_cursor,omitempty"`
	HasMore    bool                `json:"has_more"`
}

type DownloadURLResponse struct {
	URL string `json:"url"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:          d.ID,
		SourceName:  d.SourceName,
		ContentType: d.ContentType,
		ChunkCount:  d.ChunkCount,
		HasOriginal: d.ObjectKey != "",
		CreatedAt:   d.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func ingestToResponse(res *service.IngestResult) *IngestResponse {
	out := &IngestResponse{DocumentResponse: *documentToResponse(res.Document), Preview: res.Preview}
	out.ChunkCount = res.ChunkCount
	return out
}

// Upload accepts a multipart form with the document under the "file" field.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.HandleError(w, r, err)
			return
		}
		api.Error(w, http.StatusBadRequest, "expected multipart form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	res, err := h.svc.Ingest(r.Context(), header.Filename, data)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusCreated, ingestToResponse(res))
}

func (h *DocumentHandler) CreateText(w http.ResponseWriter, r *http.Request) {
	var req CreateTextRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, r, err)
		return
	}

	res, err := h.svc.IngestText(r.Context(), req.SourceName, req.Text)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusCreated, ingestToResponse(res))
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor, limit, ok := pageParams(w, r)
	if !ok {
		return
	}

	page, err := h.svc.List(r.Context(), cursor, limit)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	resp := &DocumentListResponse{
		Items:      make([]*DocumentResponse, 0, len(page.Items)),
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}
	for _, d := range page.Items {
		resp.Items = append(resp.Items, documentToResponse(d))
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		api.HandleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.svc.DownloadURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, DownloadURLResponse{URL: url})
}

// pageParams reads cursor and limit query parameters, writing a 400 when limit is malformed.
func pageParams(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			api.Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return "", 0, false
		}
		limit = n
	}
	return q.Get("cursor"), limit, true
}
