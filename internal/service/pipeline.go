package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/logger"
	"github.com/cloo-solutions/gistify/internal/metrics"
	"github.com/cloo-solutions/gistify/internal/telemetry"
)

const summaryRetrievalQuery = "main purpose, methods, key findings, results and conclusions of the document"

// DocumentReader loads documents for the pipeline.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// SummaryWriter persists summary records and returns the stored identifier.
type SummaryWriter interface {
	Create(ctx context.Context, s *domain.SummaryRecord) (string, error)
}

// PipelineConfig gathers the tunables of every pipeline stage.
type PipelineConfig struct {
	Chunk          ChunkConfig
	EmbedBatchSize int
	Retriever      RetrieverConfig
	Validator      ValidatorConfig
	Orchestrator   OrchestratorConfig
	Profiles       DecodingProfiles
	Disclaimer     string
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Chunk:          DefaultChunkConfig(),
		EmbedBatchSize: 64,
		Retriever:      DefaultRetrieverConfig(),
		Validator:      DefaultValidatorConfig(),
		Orchestrator:   DefaultOrchestratorConfig(),
		Profiles:       DefaultDecodingProfiles(),
	}
}

// Pipeline exposes indexing, summarization and question answering over single documents.
type Pipeline struct {
	docs         DocumentReader
	summaries    SummaryWriter
	indexer      *Indexer
	orchestrator *RetryOrchestrator
	refiner      *OutputRefiner
	uuidGen      UUIDGenerator
	now          func() time.Time
}

// NewPipeline wires every stage from explicit dependencies. summaries may be nil.
func NewPipeline(
	embedder Embedder,
	store VectorStore,
	generator Generator,
	docs DocumentReader,
	summaries SummaryWriter,
	cfg PipelineConfig,
	m *metrics.Metrics,
) *Pipeline {
	retriever := NewRetriever(embedder, store, cfg.Retriever, m)
	controller := NewGenerationController(generator, cfg.Profiles, m)
	orchestrator := NewRetryOrchestrator(
		retriever,
		NewPromptBuilder(),
		controller,
		NewRelevanceValidator(cfg.Validator),
		cfg.Orchestrator,
		m,
	)
	return &Pipeline{
		docs:         docs,
		summaries:    summaries,
		indexer:      NewIndexer(embedder, store, cfg.Chunk, cfg.EmbedBatchSize, m),
		orchestrator: orchestrator,
		refiner:      NewOutputRefiner(cfg.Disclaimer, m),
		uuidGen:      &DefaultUUIDGenerator{},
		now:          time.Now,
	}
}

// Index chunks and stores rawText under docID and returns the number of chunks.
func (p *Pipeline) Index(ctx context.Context, docID, rawText, sourceName string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "Pipeline.Index", telemetry.SpanAttributes{
		DocID:     docID,
		Operation: "index",
	})
	defer span.End()

	if strings.TrimSpace(docID) == "" {
		return 0, domain.NewDomainError(domain.ErrCodeValidation, "doc_id is required")
	}
	n, err := p.indexer.Index(ctx, &domain.Document{ID: docID, RawText: rawText, SourceName: sourceName})
	if err != nil {
		span.SetError(err)
		return 0, err
	}
	return n, nil
}

// Summarize produces a summary of at least the configured length plus exactly two
// advantages and two disadvantages, and persists the record when a writer is configured.
func (p *Pipeline) Summarize(ctx context.Context, docID string, summaryType domain.SummaryType) (*domain.SummaryRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "Pipeline.Summarize", telemetry.SpanAttributes{
		DocID:       docID,
		Task:        string(domain.TaskSummary),
		SummaryType: string(summaryType),
		Operation:   "summarize",
	})
	defer span.End()

	doc, err := p.loadDocument(ctx, docID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if summaryType == "" {
		summaryType = domain.SummaryDefault
	}
	topic := topicFor(doc)

	summary := p.orchestrator.Run(ctx, domain.Query{
		Text:        summaryRetrievalQuery,
		DocID:       docID,
		Task:        domain.TaskSummary,
		SummaryType: summaryType,
		Topic:       topic,
	})
	p.noteDegraded(ctx, summary, domain.TaskSummary)

	record := &domain.SummaryRecord{
		DocID:         docID,
		SummaryType:   summaryType,
		SummaryText:   summary.Text,
		Advantages:    p.points(ctx, docID, topic, domain.TaskAdvantage),
		Disadvantages: p.points(ctx, docID, topic, domain.TaskDisadvantage),
		SourceName:    doc.SourceName,
		CreatedAt:     p.now().UTC(),
	}

	if p.summaries != nil {
		id, err := p.summaries.Create(ctx, record)
		if err != nil {
			span.SetError(err)
			return nil, fmt.Errorf("save summary: %w", err)
		}
		record.ID = id
	} else {
		record.ID = p.uuidGen.NewString()
	}

	logger.FromContext(ctx).Info("summary generated",
		"doc_id", docID,
		"summary_type", summaryType,
		"words", wordCount(record.SummaryText),
		"attempts", summary.Invocations(),
		"accepted", summary.Accepted,
	)
	return record, nil
}

// Ask answers a question about one document. The answer always carries at least two
// sentences and ends with a source line when a citation is requested.
func (p *Pipeline) Ask(ctx context.Context, docID, question string) (*domain.Answer, error) {
	ctx, span := telemetry.StartSpan(ctx, "Pipeline.Ask", telemetry.SpanAttributes{
		DocID:     docID,
		Task:      string(domain.TaskQA),
		Operation: "ask",
	})
	defer span.End()

	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrEmptyQuestion
	}
	doc, err := p.loadDocument(ctx, docID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	res := p.orchestrator.Run(ctx, domain.Query{
		Text:  question,
		DocID: docID,
		Task:  domain.TaskQA,
		Topic: topicFor(doc),
	})
	p.noteDegraded(ctx, res, domain.TaskQA)

	return &domain.Answer{
		DocID:    docID,
		Question: question,
		Text:     p.refiner.RefineAnswer(res.Text, question, doc.SourceName),
		Source:   doc.SourceName,
		Degraded: !res.Accepted,
	}, nil
}

// Points extracts exactly two bullet points of the given polarity.
func (p *Pipeline) Points(ctx context.Context, docID string, polarity domain.TaskType) ([]string, error) {
	if !polarity.IsPoints() {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("invalid polarity %q", polarity))
	}
	doc, err := p.loadDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	return p.points(ctx, docID, topicFor(doc), polarity), nil
}

func (p *Pipeline) points(ctx context.Context, docID, topic string, polarity domain.TaskType) []string {
	q := domain.Query{
		Text:  string(polarity) + "s benefits limitations strengths weaknesses",
		DocID: docID,
		Task:  polarity,
		Topic: topic,
	}
	res := p.orchestrator.Run(ctx, q)
	return p.refiner.ParsePoints(ctx, res.Text, polarity, func(ctx context.Context) (string, error) {
		return p.orchestrator.Fallback(ctx, q)
	})
}

func (p *Pipeline) loadDocument(ctx context.Context, docID string) (*domain.Document, error) {
	if strings.TrimSpace(docID) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "doc_id is required")
	}
	doc, err := p.docs.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (p *Pipeline) noteDegraded(ctx context.Context, res *RunResult, task domain.TaskType) {
	if res.Accepted {
		return
	}
	telemetry.AddBreadcrumb(ctx, "pipeline", fmt.Sprintf("%s returned unvalidated text after %d attempts", task, res.Invocations()))
}

// topicFor describes a document for knowledge-fallback prompts.
func topicFor(doc *domain.Document) string {
	name := strings.TrimSuffix(doc.SourceName, filepath.Ext(doc.SourceName))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	if strings.TrimSpace(name) == "" {
		return "the document"
	}
	return fmt.Sprintf("the document titled %q", strings.TrimSpace(name))
}
