package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// DatabaseURL is only required by the server; the local CLI runs on DataDir.
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DataDir          string `envconfig:"DATA_DIR" default:".gistify"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"gistify-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	OpenAIChatModel string `envconfig:"OPENAI_CHAT_MODEL" default:"gpt-4o-mini"`

	OllamaURL        string `envconfig:"OLLAMA_URL"`
	OllamaModel      string `envconfig:"OLLAMA_MODEL" default:"llama3.2"`
	OllamaEmbedModel string `envconfig:"OLLAMA_EMBED_MODEL" default:"nomic-embed-text"`

	// Generator and Embedder select the model backend: openai or ollama.
	Generator string `envconfig:"GENERATOR" default:"openai"`
	Embedder  string `envconfig:"EMBEDDER" default:"openai"`

	EmbeddingCacheSize int `envconfig:"EMBEDDING_CACHE_SIZE" default:"512"`

	APIKey string `envconfig:"API_KEY"`
	// APIURL points the gistify CLI at a running server instead of the local store.
	APIURL string `envconfig:"API_URL"`

	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"20971520"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogJSON  bool   `envconfig:"LOG_JSON" default:"false"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// DecodingProfiles points at an optional YAML file overriding generation bands.
	DecodingProfiles string `envconfig:"DECODING_PROFILES"`

	Retention     time.Duration `envconfig:"RETENTION" default:"0"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"1h"`

	Pipeline Pipeline `envconfig:"PIPELINE"`
}

// Pipeline holds the retrieval, validation and retry thresholds.
type Pipeline struct {
	ChunkSize          int     `envconfig:"CHUNK_SIZE" default:"500"`
	EmbedBatchSize     int     `envconfig:"EMBED_BATCH_SIZE" default:"64"`
	TopK               int     `envconfig:"TOP_K" default:"15"`
	SimilarityCutoff   float64 `envconfig:"SIMILARITY_CUTOFF" default:"0.05"`
	MinRelevantChunks  int     `envconfig:"MIN_RELEVANT_CHUNKS" default:"3"`
	KeywordChunkLimit  int     `envconfig:"KEYWORD_CHUNK_LIMIT" default:"5"`
	MaxAttempts        int     `envconfig:"MAX_ATTEMPTS" default:"3"`
	MinSummaryWords    int     `envconfig:"MIN_SUMMARY_WORDS" default:"250"`
	SummaryGateWords   int     `envconfig:"SUMMARY_GATE_WORDS" default:"200"`
	MaxRepetition      int     `envconfig:"MAX_REPETITION" default:"2"`
	MaxInstructionHits int     `envconfig:"MAX_INSTRUCTION_HITS" default:"2"`
	FillerTemplate     string  `envconfig:"FILLER_TEMPLATE"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("GISTIFY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasOllama() bool {
	return c.OllamaURL != ""
}

func (c *Config) HasRetention() bool {
	return c.Retention > 0
}
