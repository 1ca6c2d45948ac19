package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/logger"
	"github.com/cloo-solutions/gistify/internal/metrics"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {}, "for": {}, "with": {}, "by": {},
	"in": {}, "on": {}, "at": {}, "from": {}, "as": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"been": {}, "it": {}, "this": {}, "that": {}, "these": {}, "those": {}, "we": {}, "our": {}, "you": {},
	"your": {}, "i": {}, "me": {}, "my": {}, "us": {}, "them": {}, "they": {}, "their": {}, "do": {},
	"does": {}, "did": {}, "what": {}, "how": {}, "why": {}, "when": {}, "where": {}, "which": {}, "can": {},
	"could": {}, "should": {}, "would": {}, "may": {}, "might": {}, "will": {}, "shall": {},
}

// RetrieverConfig holds the retrieval thresholds.
type RetrieverConfig struct {
	TopK int
	// Cutoff is an uncalibrated similarity floor; chunks must score strictly above it.
	Cutoff            float64
	MinRelevantChunks int
	KeywordChunkLimit int
}

func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		TopK:              15,
		Cutoff:            0.05,
		MinRelevantChunks: 3,
		KeywordChunkLimit: 5,
	}
}

// Retriever finds the chunks of one document most relevant to a query.
type Retriever struct {
	embedder Embedder
	store    VectorStore
	cfg      RetrieverConfig
	metrics  *metrics.Metrics
}

func NewRetriever(embedder Embedder, store VectorStore, cfg RetrieverConfig, m *metrics.Metrics) *Retriever {
	def := DefaultRetrieverConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.MinRelevantChunks <= 0 {
		cfg.MinRelevantChunks = def.MinRelevantChunks
	}
	if cfg.KeywordChunkLimit < 0 {
		cfg.KeywordChunkLimit = def.KeywordChunkLimit
	}
	return &Retriever{embedder: embedder, store: store, cfg: cfg, metrics: m}
}

// Retrieve returns chunks scored above the cutoff, topped up by a keyword lookup
// when too few survive. An empty result is not an error.
func (r *Retriever) Retrieve(ctx context.Context, docID, query string) (domain.RetrievalResult, error) {
	log := logger.FromContext(ctx).With("doc_id", docID)

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return domain.RetrievalResult{}, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}
	qvec := vectors[0]

	candidates, err := r.store.Query(ctx, VectorQuery{DocID: docID, Embedding: qvec, TopK: r.cfg.TopK})
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("vector query: %w", err)
	}

	seen := make(map[string]struct{}, len(candidates))
	var result domain.RetrievalResult
	for _, c := range candidates {
		score := cosineSimilarity(qvec, c.Embedding)
		if score <= r.cfg.Cutoff {
			continue
		}
		seen[c.ID] = struct{}{}
		result.Chunks = append(result.Chunks, domain.RetrievedChunk{Text: c.Text, Score: score})
	}

	if len(result.Chunks) >= r.cfg.MinRelevantChunks {
		r.metrics.Retrieval("vector")
		return result, nil
	}

	keywords := keywordTerms(query)
	if len(keywords) == 0 || r.cfg.KeywordChunkLimit == 0 {
		r.recordPath(result)
		return result, nil
	}

	matches, err := r.store.Query(ctx, VectorQuery{DocID: docID, Keywords: keywords, TopK: r.cfg.TopK})
	if err != nil {
		log.Warn("keyword lookup failed", "error", err)
		r.recordPath(result)
		return result, nil
	}
	added := 0
	for _, c := range matches {
		if added >= r.cfg.KeywordChunkLimit {
			break
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		result.Chunks = append(result.Chunks, domain.RetrievedChunk{Text: c.Text})
		added++
	}
	log.Debug("keyword escalation", "keywords", len(keywords), "added", added)
	if added > 0 {
		r.metrics.Retrieval("keyword")
		return result, nil
	}
	r.recordPath(result)
	return result, nil
}

func (r *Retriever) recordPath(result domain.RetrievalResult) {
	if result.Empty() {
		r.metrics.Retrieval("empty")
		return
	}
	r.metrics.Retrieval("vector")
}

// keywordTerms lowercases the query, strips punctuation and drops stopwords and duplicates.
func keywordTerms(query string) []string {
	var terms []string
	seen := make(map[string]struct{})
	for _, token := range strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	}) {
		clean := strings.Trim(strings.ToLower(token), "-")
		if clean == "" {
			continue
		}
		if _, ok := stopwords[clean]; ok {
			continue
		}
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		terms = append(terms, clean)
	}
	return terms
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
