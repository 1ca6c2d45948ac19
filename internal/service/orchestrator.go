package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/logger"
	"github.com/cloo-solutions/gistify/internal/metrics"
)

const defaultFillerTemplate = "The material in {source} continues with further discussion of its subject, " +
	"the approach it takes, the evidence it presents and the conclusions it reaches for its readers."

// ContextRetriever is the retrieval dependency of the orchestrator.
type ContextRetriever interface {
	Retrieve(ctx context.Context, docID, query string) (domain.RetrievalResult, error)
}

// OrchestratorConfig bounds attempts and sets the summary length floor.
type OrchestratorConfig struct {
	MaxAttempts     int
	MinSummaryWords int
	// FillerTemplate pads short summaries; {source} is replaced by the topic.
	FillerTemplate string
}

func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxAttempts:     3,
		MinSummaryWords: 250,
		FillerTemplate:  defaultFillerTemplate,
	}
}

// RunResult is the outcome of one orchestrated generation.
type RunResult struct {
	Text     string
	Context  string
	Attempts []domain.GenerationAttempt
	Accepted bool
	Extended bool
	Filler   int
}

// Invocations counts generator calls made by the attempt loop.
func (r *RunResult) Invocations() int {
	return len(r.Attempts)
}

// RetryOrchestrator runs the bounded generate-validate loop with knowledge fallback.
// Exhaustion is not an error: the last generated text is returned unvalidated.
type RetryOrchestrator struct {
	retriever ContextRetriever
	prompts   *PromptBuilder
	generator *GenerationController
	validator *RelevanceValidator
	cfg       OrchestratorConfig
	metrics   *metrics.Metrics
}

func NewRetryOrchestrator(
	retriever ContextRetriever,
	prompts *PromptBuilder,
	generator *GenerationController,
	validator *RelevanceValidator,
	cfg OrchestratorConfig,
	m *metrics.Metrics,
) *RetryOrchestrator {
	def := DefaultOrchestratorConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.MinSummaryWords <= 0 {
		cfg.MinSummaryWords = def.MinSummaryWords
	}
	if strings.TrimSpace(cfg.FillerTemplate) == "" {
		cfg.FillerTemplate = def.FillerTemplate
	}
	return &RetryOrchestrator{
		retriever: retriever,
		prompts:   prompts,
		generator: generator,
		validator: validator,
		cfg:       cfg,
		metrics:   m,
	}
}

// Run retrieves context once, then generates until a gate accepts or attempts run out.
// A failed context call or an empty context falls through to a fallback call in the
// same iteration; every call counts against MaxAttempts.
func (o *RetryOrchestrator) Run(ctx context.Context, q domain.Query) *RunResult {
	log := logger.FromContext(ctx).With("doc_id", q.DocID, "task", q.Task)

	retrieved, err := o.retriever.Retrieve(ctx, q.DocID, q.Text)
	if err != nil {
		log.Warn("retrieval failed, using knowledge fallback", "error", err)
		retrieved = domain.RetrievalResult{}
	}
	res := &RunResult{Context: retrieved.Context()}
	params := o.generator.Params(q)

	var last string
	produced := false
	for len(res.Attempts) < o.cfg.MaxAttempts {
		text, ok := "", false
		if res.Context != "" {
			text, ok = o.attempt(ctx, res, q, domain.ModeContext, params)
		}
		if !ok && len(res.Attempts) < o.cfg.MaxAttempts {
			text, ok = o.attempt(ctx, res, q, domain.ModeFallback, params)
		}
		if !ok {
			continue
		}
		last, produced = text, true

		verdict := o.gate(q, text)
		if verdict.Accepted {
			res.Attempts[len(res.Attempts)-1].Accepted = true
			res.Accepted = true
			break
		}
		o.metrics.GateRejected(gateName(q))
		log.Debug("generation rejected", "attempt", len(res.Attempts), "reason", verdict.Reason)
	}

	res.Text = last
	if !res.Accepted {
		o.metrics.Exhausted(string(q.Task))
		log.Warn("attempts exhausted, returning unvalidated text", "attempts", len(res.Attempts), "produced", produced)
	}

	if q.Task == domain.TaskSummary {
		o.ensureSummaryLength(ctx, q, res)
	}
	return res
}

// Fallback performs one knowledge-fallback call outside the attempt budget.
func (o *RetryOrchestrator) Fallback(ctx context.Context, q domain.Query) (string, error) {
	q.KnowledgeFallback = true
	prompt := o.prompts.Build(q, "")
	return o.generator.Generate(ctx, q.Mode(), prompt, o.generator.Params(q))
}

func (o *RetryOrchestrator) attempt(ctx context.Context, res *RunResult, q domain.Query, mode domain.GenerationMode, params domain.DecodingParams) (string, bool) {
	q.KnowledgeFallback = mode == domain.ModeFallback
	prompt := o.prompts.Build(q, res.Context)
	text, err := o.generator.Generate(ctx, mode, prompt, params)
	res.Attempts = append(res.Attempts, domain.GenerationAttempt{
		Index:  len(res.Attempts),
		Mode:   mode,
		Prompt: prompt,
		Params: params,
		Result: text,
		Err:    err,
	})
	return text, err == nil
}

func (o *RetryOrchestrator) gate(q domain.Query, text string) Verdict {
	switch q.Task {
	case domain.TaskSummary:
		return o.validator.ValidateSummary(text)
	case domain.TaskQA:
		return o.validator.ValidateAnswer(q.Text, text)
	default:
		// bullet tasks are repaired by the refiner instead of gated
		return accept()
	}
}

func gateName(q domain.Query) string {
	if q.Task == domain.TaskSummary {
		return "summary"
	}
	return "answer"
}

// ensureSummaryLength extends a short summary once, then pads it with filler to exactly the floor.
func (o *RetryOrchestrator) ensureSummaryLength(ctx context.Context, q domain.Query, res *RunResult) {
	floor := o.cfg.MinSummaryWords
	missing := floor - wordCount(res.Text)
	if missing <= 0 {
		return
	}

	prompt := o.prompts.Extend(q, res.Context, res.Text, missing)
	ext, err := o.generator.Generate(ctx, domain.ModeContext, prompt, o.generator.ExtendParams())
	if err == nil && strings.TrimSpace(ext) != "" {
		res.Text = joinParagraphs(res.Text, strings.TrimSpace(ext))
		res.Extended = true
	}

	missing = floor - wordCount(res.Text)
	if missing <= 0 {
		return
	}
	res.Text = joinParagraphs(res.Text, o.filler(q.Topic, missing))
	res.Filler = missing
	o.metrics.FillerAppended(missing)
	logger.FromContext(ctx).Warn("summary padded with filler", "doc_id", q.DocID, "words", missing)
}

// filler returns exactly n words cycled from the configured template.
func (o *RetryOrchestrator) filler(topic string, n int) string {
	if strings.TrimSpace(topic) == "" {
		topic = "the document"
	}
	words := strings.Fields(strings.ReplaceAll(o.cfg.FillerTemplate, "{source}", topic))
	out := make([]string, n)
	for i := range out {
		out[i] = words[i%len(words)]
	}
	return strings.Join(out, " ")
}

func joinParagraphs(a, b string) string {
	if strings.TrimSpace(a) == "" {
		return b
	}
	return a + "\n\n" + b
}
