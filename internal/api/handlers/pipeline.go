package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/gistify/internal/api"
	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/service"
)

type PipelineService interface {
	Summarize(ctx context.Context, docID string, summaryType domain.SummaryType) (*domain.SummaryRecord, error)
	Ask(ctx context.Context, docID, question string) (*domain.Answer, error)
	Points(ctx context.Context, docID string, polarity domain.TaskType) ([]string, error)
}

type SummaryHistory interface {
	ListSummaries(ctx context.Context, docID, cursor string, limit int) (*service.SummaryPage, error)
}

type PipelineHandler struct {
	pipeline PipelineService
	history  SummaryHistory
}

func NewPipelineHandler(pipeline PipelineService, history SummaryHistory) *PipelineHandler {
	return &PipelineHandler{pipeline: pipeline, history: history}
}

type SummarizeRequest struct {
	SummaryType string `json:"summary_type" validate:"omitempty,oneof=concise analytical comprehensive default"`
}

type AskRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

type pointsQuery struct {
	Polarity string `validate:"required,oneof=advantage disadvantage"`
}

type SummaryResponse struct {
	ID            string   `json:"id"`
	DocID         string   `json:"doc_id"`
	SummaryType   string   `json:"summary_type"`
	Summary       string   `json:"summary"`
	Advantages    []string `json:"advantages"`
	Disadvantages []string `json:"disadvantages"`
	SourceName    string   `json:"source_name"`
	CreatedAt     string   `json:"created_at"`
}

type SummaryListResponse struct {
	Items      []*SummaryResponse `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
	HasMore    bool               `json:"has_more"`
}

type AnswerResponse struct {
	DocID    string `json:"doc_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Source   string `json:"source"`
	Degraded bool   `json:"degraded"`
}

type PointsResponse struct {
	DocID    string   `json:"doc_id"`
	Polarity string   `json:"polarity"`
	Points   []string `json:"points"`
}

func summaryToResponse(s *domain.SummaryRecord) *SummaryResponse {
	return &SummaryResponse{
		ID:            s.ID,
		DocID:         s.DocID,
		SummaryType:   string(s.SummaryType),
		Summary:       s.SummaryText,
		Advantages:    s.Advantages,
		Disadvantages: s.Disadvantages,
		SourceName:    s.SourceName,
		CreatedAt:     s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Summarize accepts an optional JSON body selecting the summary type.
// An empty body, chunked or not, selects the default type.
func (h *PipelineHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if r.Body != nil && r.Body != http.NoBody {
		if err := api.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			api.HandleError(w, r, err)
			return
		}
	}

	summaryType, err := domain.ParseSummaryType(req.SummaryType)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	record, err := h.pipeline.Summarize(r.Context(), chi.URLParam(r, "id"), summaryType)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusCreated, summaryToResponse(record))
}

func (h *PipelineHandler) ListSummaries(w http.ResponseWriter, r *http.Request) {
	cursor, limit, ok := pageParams(w, r)
	if !ok {
		return
	}

	page, err := h.history.ListSummaries(r.Context(), chi.URLParam(r, "id"), cursor, limit)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	resp := &SummaryListResponse{
		Items:      make([]*SummaryResponse, 0, len(page.Items)),
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}
	for _, s := range page.Items {
		resp.Items = append(resp.Items, summaryToResponse(s))
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *PipelineHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, r, err)
		return
	}

	answer, err := h.pipeline.Ask(r.Context(), chi.URLParam(r, "id"), req.Question)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, AnswerResponse{
		DocID:    answer.DocID,
		Question: answer.Question,
		Answer:   answer.Text,
		Source:   answer.Source,
		Degraded: answer.Degraded,
	})
}

func (h *PipelineHandler) Points(w http.ResponseWriter, r *http.Request) {
	q := pointsQuery{Polarity: r.URL.Query().Get("polarity")}
	if err := api.Validate(q); err != nil {
		api.HandleError(w, r, err)
		return
	}

	docID := chi.URLParam(r, "id")
	points, err := h.pipeline.Points(r.Context(), docID, domain.TaskType(q.Polarity))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, PointsResponse{DocID: docID, Polarity: q.Polarity, Points: points})
}
