package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/gistify/internal/domain"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from text-embedding-3-small
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel is used when no chat model is configured
	DefaultChatModel = openai.GPT4oMini

	// tokensPerWord converts word budgets into completion token limits.
	tokensPerWord = 1.4
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrEmptyCompletion is returned when the model produced no choices
	ErrEmptyCompletion = errors.New("no completion returned")
)

// API is the subset of the OpenAI API used by Client.
type API interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (string, error)
}

// Client embeds texts and generates completions through the OpenAI API.
type Client struct {
	api        API
	chatModel  string
	dimensions int
}

type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// CreateEmbeddings calls the OpenAI API to embed a batch of texts
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// CreateChatCompletion returns the content of the first choice
func (a *OpenAIAdapter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

type Config struct {
	APIKey              string
	ChatModel           string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	return newClient(NewOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel), cfg)
}

func newClient(api API, cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	return &Client{
		api:        api,
		chatModel:  chatModel,
		dimensions: dimensions,
	}
}

// Embed generates one embedding per text, in order
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, ErrEmptyText
		}
	}

	embeddings, err := c.api.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	for _, e := range embeddings {
		if len(e) != c.dimensions {
			return nil, fmt.Errorf("%w: got %d, expected %d", ErrWrongDimensions, len(e), c.dimensions)
		}
	}
	return embeddings, nil
}

// Generate runs a single chat completion with limits derived from params
func (c *Client) Generate(ctx context.Context, prompt string, params domain.DecodingParams) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyText
	}
	text, err := c.api.CreateChatCompletion(ctx, c.chatRequest(prompt, params))
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) chatRequest(prompt string, params domain.DecodingParams) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: lengthInstruction(params)},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if params.MaxWords > 0 {
		req.MaxTokens = int(float64(params.MaxWords) * tokensPerWord)
	}
	if params.DoSample {
		req.Temperature = float32(params.Temperature)
	}
	if params.NoRepeatNgramSize > 0 {
		req.FrequencyPenalty = 0.5
	}
	return req
}

func lengthInstruction(params domain.DecodingParams) string {
	switch {
	case params.MinWords > 0 && params.MaxWords > 0:
		return fmt.Sprintf("You write grounded, factual text. Respond with %d to %d words.", params.MinWords, params.MaxWords)
	case params.MaxWords > 0:
		return fmt.Sprintf("You write grounded, factual text. Respond with at most %d words.", params.MaxWords)
	default:
		return "You write grounded, factual text."
	}
}
