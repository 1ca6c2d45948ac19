// Package ollama adapts a local Ollama server, through langchaingo, to the
// pipeline's Generator and Embedder ports.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	lcollama "github.com/tmc/langchaingo/llms/ollama"

	"github.com/cloo-solutions/gistify/internal/domain"
)

const (
	DefaultModel      = "llama3.2"
	DefaultEmbedModel = "nomic-embed-text"

	tokensPerWord     = 1.4
	repetitionPenalty = 1.3
)

var (
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
	ErrNoServerURL = errors.New("ollama server url is required")
)

type Config struct {
	ServerURL  string
	Model      string
	EmbedModel string
}

// Client generates with one Ollama model and embeds with another.
type Client struct {
	llm      llms.Model
	embedder embeddings.Embedder
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.ServerURL == "" {
		return nil, ErrNoServerURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}

	llm, err := lcollama.New(lcollama.WithServerURL(cfg.ServerURL), lcollama.WithModel(cfg.Model))
	if err != nil {
		return nil, fmt.Errorf("create ollama llm: %w", err)
	}
	embedLLM, err := lcollama.New(lcollama.WithServerURL(cfg.ServerURL), lcollama.WithModel(cfg.EmbedModel))
	if err != nil {
		return nil, fmt.Errorf("create ollama embedder: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(embedLLM, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create ollama embedder: %w", err)
	}
	return &Client{llm: llm, embedder: embedder}, nil
}

// Generate runs a single-prompt completion bounded by params.
func (c *Client) Generate(ctx context.Context, prompt string, params domain.DecodingParams) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, callOptions(params)...)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Embed returns one vector per text, in order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}

func callOptions(params domain.DecodingParams) []llms.CallOption {
	opts := []llms.CallOption{}
	if params.MaxWords > 0 {
		opts = append(opts, llms.WithMaxTokens(int(float64(params.MaxWords)*tokensPerWord)))
	}
	if params.MinWords > 0 {
		opts = append(opts, llms.WithMinLength(int(float64(params.MinWords)*tokensPerWord)))
	}
	if params.DoSample {
		opts = append(opts, llms.WithTemperature(params.Temperature))
	} else {
		opts = append(opts, llms.WithTemperature(0))
	}
	if params.NoRepeatNgramSize > 0 {
		opts = append(opts, llms.WithRepetitionPenalty(repetitionPenalty))
	}
	return opts
}
