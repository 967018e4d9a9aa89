package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendQdrant   = "qdrant"
	BackendPgvector = "pgvector"
	BackendMemory   = "memory"

	EmbeddingHashing = "hashing"
	EmbeddingOpenAI  = "openai"

	LLMOpenAI    = "openai"
	LLMAnthropic = "anthropic"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"5555"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`

	APIToken     string   `envconfig:"API_TOKEN"`
	CORSOrigins  []string `envconfig:"CORS_ORIGINS" default:"*"`
	MaxBodyBytes int64    `envconfig:"MAX_BODY_BYTES" default:"20971520"`

	VectorBackend    string `envconfig:"VECTOR_BACKEND" default:"qdrant"`
	QdrantHost       string `envconfig:"QDRANT_HOST" default:"localhost"`
	QdrantPort       int    `envconfig:"QDRANT_PORT" default:"6334"`
	QdrantAPIKey     string `envconfig:"QDRANT_API_KEY"`
	QdrantTLS        bool   `envconfig:"QDRANT_TLS" default:"false"`
	QdrantCollection string `envconfig:"QDRANT_COLLECTION" default:"book_knowledge"`

	DatabaseURL            string        `envconfig:"DATABASE_URL"`
	DatabaseConnectTimeout time.Duration `envconfig:"DATABASE_CONNECT_TIMEOUT" default:"30s"`
	MigrationsDir          string        `envconfig:"MIGRATIONS_DIR" default:"migrations"`
	AutoMigrate            bool          `envconfig:"AUTO_MIGRATE" default:"true"`

	EmbeddingProvider   string `envconfig:"EMBEDDING_PROVIDER" default:"hashing"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"384"`
	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string `envconfig:"OPENAI_BASE_URL"`

	// LLM defaults target a local Ollama server through its OpenAI-compatible API
	LLMProvider     string  `envconfig:"LLM_PROVIDER" default:"openai"`
	LLMBaseURL      string  `envconfig:"LLM_BASE_URL" default:"http://localhost:11434/v1"`
	LLMModel        string  `envconfig:"LLM_MODEL" default:"llama3.1:8b"`
	LLMAPIKey       string  `envconfig:"LLM_API_KEY"`
	AnthropicAPIKey string  `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel  string  `envconfig:"ANTHROPIC_MODEL" default:"claude-sonnet-4-5"`
	LLMMaxTokens    int     `envconfig:"LLM_MAX_TOKENS" default:"1024"`
	LLMTemperature  float32 `envconfig:"LLM_TEMPERATURE" default:"0.2"`

	ChunkMaxChars    int    `envconfig:"CHUNK_MAX_CHARS" default:"1000"`
	MinCaptureChars  int    `envconfig:"MIN_CAPTURE_CHARS" default:"10"`
	TopK             int    `envconfig:"TOP_K" default:"3"`
	MaxTopK          int    `envconfig:"MAX_TOP_K" default:"10"`
	HistoryWindow    int    `envconfig:"HISTORY_WINDOW" default:"6"`
	MaxContextTokens int    `envconfig:"MAX_CONTEXT_TOKENS" default:"3000"`
	PromptsFile      string `envconfig:"PROMPTS_FILE"`

	QueryTimeout      time.Duration `envconfig:"QUERY_TIMEOUT" default:"120s"`
	CaptureTimeout    time.Duration `envconfig:"CAPTURE_TIMEOUT" default:"60s"`
	InitRetryInterval time.Duration `envconfig:"INIT_RETRY_INTERVAL" default:"5s"`

	OCRCommand  string `envconfig:"OCR_COMMAND" default:"tesseract"`
	OCRLanguage string `envconfig:"OCR_LANGUAGE" default:"eng"`

	// Empty keeps the conversation log in memory only
	HistoryPath string `envconfig:"HISTORY_PATH"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"secondbrain-captures"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	WatchDir  string `envconfig:"WATCH_DIR"`
	SentryDSN string `envconfig:"SENTRY_DSN"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("BRAIN", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate rejects combinations that cannot start.
func (c *Config) Validate() error {
	switch c.VectorBackend {
	case BackendQdrant, BackendMemory:
	case BackendPgvector:
		if c.DatabaseURL == "" {
			return fmt.Errorf("BRAIN_DATABASE_URL is required when BRAIN_VECTOR_BACKEND=%s", BackendPgvector)
		}
	default:
		return fmt.Errorf("unknown vector backend %q (want %s)", c.VectorBackend,
			strings.Join([]string{BackendQdrant, BackendPgvector, BackendMemory}, ", "))
	}

	switch c.EmbeddingProvider {
	case EmbeddingHashing:
	case EmbeddingOpenAI:
		if !c.HasOpenAI() && c.OpenAIBaseURL == "" {
			return fmt.Errorf("BRAIN_OPENAI_API_KEY or BRAIN_OPENAI_BASE_URL is required for openai embeddings")
		}
	default:
		return fmt.Errorf("unknown embedding provider %q", c.EmbeddingProvider)
	}

	switch c.LLMProvider {
	case LLMOpenAI:
	case LLMAnthropic:
		if !c.HasAnthropic() {
			return fmt.Errorf("BRAIN_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLMProvider)
	}

	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("BRAIN_EMBEDDING_DIMENSIONS must be positive")
	}
	if c.ChunkMaxChars <= 0 {
		return fmt.Errorf("BRAIN_CHUNK_MAX_CHARS must be positive")
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasAnthropic() bool {
	return c.AnthropicAPIKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}
