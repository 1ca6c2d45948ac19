package openai

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/gistify/internal/domain"
)

// MockOpenAIAPI is a mock for the OpenAI API
type MockOpenAIAPI struct {
	mock.Mock
}

func (m *MockOpenAIAPI) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockOpenAIAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func vec(n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = float32(i) * 0.001
	}
	return v
}

func TestClient_Embed_Success(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newClient(mockAPI, Config{EmbeddingDimensions: 8})

	ctx := context.Background()
	texts := []string{"first chunk", "second chunk"}
	mockAPI.On("CreateEmbeddings", ctx, texts).Return([][]float32{vec(8), vec(8)}, nil)

	embeddings, err := client.Embed(ctx, texts)

	require.NoError(t, err)
	assert.Len(t, embeddings, 2)
	mockAPI.AssertExpectations(t)
}

func TestClient_Embed_EmptyText(t *testing.T) {
	client := NewClient("")

	embeddings, err := client.Embed(context.Background(), []string{"ok", " "})

	assert.Nil(t, embeddings)
	assert.Equal(t, ErrEmptyText, err)
}

func TestClient_Embed_NoTexts(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newClient(mockAPI, Config{})

	embeddings, err := client.Embed(context.Background(), nil)

	assert.NoError(t, err)
	assert.Nil(t, embeddings)
	mockAPI.AssertNotCalled(t, "CreateEmbeddings", mock.Anything, mock.Anything)
}

func TestClient_Embed_APIError(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newClient(mockAPI, Config{})

	mockAPI.On("CreateEmbeddings", mock.Anything, mock.Anything).Return(nil, errors.New("API rate limit exceeded"))

	_, err := client.Embed(context.Background(), []string{"text"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create embedding")
}

func TestClient_Embed_WrongDimensions(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newClient(mockAPI, Config{})

	mockAPI.On("CreateEmbeddings", mock.Anything, mock.Anything).Return([][]float32{vec(512)}, nil)

	_, err := client.Embed(context.Background(), []string{"text"})

	assert.ErrorIs(t, err, ErrWrongDimensions)
}

func TestClient_Generate(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newClient(mockAPI, Config{ChatModel: "test-model"})
	params := domain.DecodingParams{MinWords: 50, MaxWords: 100, Temperature: 0.9, DoSample: true, NoRepeatNgramSize: 3}

	mockAPI.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == "test-model" &&
			req.MaxTokens == 140 &&
			req.Temperature == float32(0.9) &&
			req.FrequencyPenalty == 0.5 &&
			len(req.Messages) == 2 &&
			req.Messages[1].Content == "prompt" &&
			req.Messages[0].Content == "You write grounded, factual text. Respond with 50 to 100 words."
	})).Return("  the answer \n", nil)

	text, err := client.Generate(context.Background(), "prompt", params)

	require.NoError(t, err)
	assert.Equal(t, "the answer", text)
	mockAPI.AssertExpectations(t)
}

func TestClient_Generate_GreedyWhenNotSampling(t *testing.T) {
	client := newClient(new(MockOpenAIAPI), Config{})

	req := client.chatRequest("p", domain.DecodingParams{Temperature: 0.7, MaxWords: 10})
	assert.Zero(t, req.Temperature)
	assert.Zero(t, req.FrequencyPenalty)
	assert.Equal(t, DefaultChatModel, req.Model)
	assert.Equal(t, "You write grounded, factual text. Respond with at most 10 words.", req.Messages[0].Content)
}

func TestClient_Generate_Errors(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := newClient(mockAPI, Config{})

	_, err := client.Generate(context.Background(), "", domain.DecodingParams{})
	assert.Equal(t, ErrEmptyText, err)

	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).Return("", ErrEmptyCompletion)
	_, err = client.Generate(context.Background(), "prompt", domain.DecodingParams{})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key")

	assert.NotNil(t, client)
	assert.NotNil(t, client.api)
	assert.Equal(t, DefaultEmbeddingDimensions, client.dimensions)
}
