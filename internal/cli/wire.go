package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/cloo-solutions/gistify/internal/config"
	"github.com/cloo-solutions/gistify/internal/logger"
	"github.com/cloo-solutions/gistify/internal/ollama"
	"github.com/cloo-solutions/gistify/internal/openai"
	"github.com/cloo-solutions/gistify/internal/service"
)

const (
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
)

type modelBackend interface {
	service.Embedder
	service.Generator
}

// NewLogger builds the process logger and installs it as the default.
func NewLogger(cfg *config.Config) logger.Logger {
	level := logger.LogLevel(strings.ToLower(cfg.LogLevel))
	if cfg.Debug {
		level = logger.DebugLevel
	}
	l := logger.New(&logger.Config{
		Level:      level,
		Output:     os.Stderr,
		JSON:       cfg.LogJSON,
		TimeFormat: "15:04:05",
	})
	logger.SetDefault(l)
	return l
}

// NewModels builds the configured embedder and generator. A backend named by
// both GENERATOR and EMBEDDER is constructed once. The embedder is wrapped in
// an LRU cache.
func NewModels(cfg *config.Config) (service.Embedder, service.Generator, error) {
	built := map[string]modelBackend{}
	backend := func(name string) (modelBackend, error) {
		name = strings.ToLower(strings.TrimSpace(name))
		if b, ok := built[name]; ok {
			return b, nil
		}
		var b modelBackend
		switch name {
		case BackendOpenAI:
			if !cfg.HasOpenAI() {
				return nil, fmt.Errorf("openai backend requires GISTIFY_OPENAI_API_KEY")
			}
			b = openai.NewClientWithConfig(openai.Config{
				APIKey:    cfg.OpenAIAPIKey,
				ChatModel: cfg.OpenAIChatModel,
			})
		case BackendOllama:
			if !cfg.HasOllama() {
				return nil, fmt.Errorf("ollama backend requires GISTIFY_OLLAMA_URL")
			}
			c, err := ollama.NewClient(ollama.Config{
				ServerURL:  cfg.OllamaURL,
				Model:      cfg.OllamaModel,
				EmbedModel: cfg.OllamaEmbedModel,
			})
			if err != nil {
				return nil, err
			}
			b = c
		default:
			return nil, fmt.Errorf("unknown model backend %q (want %s or %s)", name, BackendOpenAI, BackendOllama)
		}
		built[name] = b
		return b, nil
	}

	generator, err := backend(cfg.Generator)
	if err != nil {
		return nil, nil, fmt.Errorf("generator: %w", err)
	}
	embedder, err := backend(cfg.Embedder)
	if err != nil {
		return nil, nil, fmt.Errorf("embedder: %w", err)
	}
	cached, err := service.NewCachedEmbedder(embedder, cfg.EmbeddingCacheSize)
	if err != nil {
		return nil, nil, err
	}
	return cached, generator, nil
}

// NewPipelineConfig maps environment thresholds and the optional decoding
// profile file onto the pipeline defaults.
func NewPipelineConfig(cfg *config.Config) (service.PipelineConfig, error) {
	pc := service.DefaultPipelineConfig()
	p := cfg.Pipeline

	pc.Chunk.MaxChars = p.ChunkSize
	pc.EmbedBatchSize = p.EmbedBatchSize

	pc.Retriever.TopK = p.TopK
	pc.Retriever.Cutoff = p.SimilarityCutoff
	pc.Retriever.MinRelevantChunks = p.MinRelevantChunks
	pc.Retriever.KeywordChunkLimit = p.KeywordChunkLimit

	pc.Validator.SummaryMinWords = p.SummaryGateWords
	pc.Validator.MaxRepetition = p.MaxRepetition
	pc.Validator.MaxInstructionHits = p.MaxInstructionHits

	pc.Orchestrator.MaxAttempts = p.MaxAttempts
	pc.Orchestrator.MinSummaryWords = p.MinSummaryWords
	if p.FillerTemplate != "" {
		pc.Orchestrator.FillerTemplate = p.FillerTemplate
	}

	profiles, err := service.LoadDecodingProfiles(cfg.DecodingProfiles)
	if err != nil {
		return pc, err
	}
	pc.Profiles = profiles
	return pc, nil
}
