package ollama

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/cloo-solutions/gistify/internal/domain"
)

type fakeLLM struct {
	reply   string
	err     error
	prompts []string
	opts    llms.CallOptions
}

func (f *fakeLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, o := range options {
		o(&f.opts)
	}
	for _, m := range messages {
		for _, p := range m.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				f.prompts = append(f.prompts, tc.Text)
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

type fakeEmbedder struct {
	vectors [][]float32
	err     error
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, _ []string) ([][]float32, error) {
	return f.vectors, f.err
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if len(f.vectors) == 0 {
		return nil, f.err
	}
	return f.vectors[0], f.err
}

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrNoServerURL)
}

func TestGenerate(t *testing.T) {
	llm := &fakeLLM{reply: "  an answer \n"}
	c := &Client{llm: llm}

	out, err := c.Generate(context.Background(), "the prompt", domain.DecodingParams{
		MinWords: 50, MaxWords: 100, Temperature: 0.8, DoSample: true, NoRepeatNgramSize: 3,
	})

	require.NoError(t, err)
	assert.Equal(t, "an answer", out)
	assert.Equal(t, []string{"the prompt"}, llm.prompts)
	assert.Equal(t, 140, llm.opts.MaxTokens)
	assert.Equal(t, 70, llm.opts.MinLength)
	assert.InDelta(t, 0.8, llm.opts.Temperature, 1e-9)
	assert.InDelta(t, repetitionPenalty, llm.opts.RepetitionPenalty, 1e-9)
}

func TestGenerate_GreedyWithoutSampling(t *testing.T) {
	llm := &fakeLLM{reply: "x"}
	c := &Client{llm: llm}

	_, err := c.Generate(context.Background(), "p", domain.DecodingParams{Temperature: 0.9})

	require.NoError(t, err)
	assert.Zero(t, llm.opts.Temperature)
	assert.Zero(t, llm.opts.MaxTokens)
}

func TestGenerate_Errors(t *testing.T) {
	c := &Client{llm: &fakeLLM{err: errors.New("connection refused")}}

	_, err := c.Generate(context.Background(), " ", domain.DecodingParams{})
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	_, err = c.Generate(context.Background(), "p", domain.DecodingParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestEmbed(t *testing.T) {
	c := &Client{embedder: &fakeEmbedder{vectors: [][]float32{{1, 0}, {0, 1}}}}

	out, err := c.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	out, err = c.Embed(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestEmbed_CountMismatch(t *testing.T) {
	c := &Client{embedder: &fakeEmbedder{vectors: [][]float32{{1, 0}}}}

	_, err := c.Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 1 vectors for 2 texts")
}
