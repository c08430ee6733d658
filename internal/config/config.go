package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App         AppConfig
	Ai          AIConfig
	Retry       RetryConfig
	Rag         RagConfig
	VectorStore VectorStoreConfig
	History     HistoryConfig
	Extract     ExtractConfig
	Tracing     TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	EventLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string // empty disables event export
	RedisURL           string // empty disables the hub relay and the redis history backend
	BodyLimitMB        int
}

type AIConfig struct {
	OllamaBaseURL      string
	EmbeddingModel     string
	EmbeddingDimension int
	EmbeddingTimeout   time.Duration
	LLMProvider        string // "ollama"
	LLMModel           string // e.g. "llama3", "qwen2.5"
	LLMTimeout         time.Duration
	Temperature        float64
	TopP               float64
	TopK               int
	NumPredict         int
	RepeatPenalty      float64
}

type RetryConfig struct {
	EmbeddingMaxAttempts  int
	EmbeddingBackoffBase  time.Duration
	EmbeddingBackoffMax   time.Duration
	Jitter                float64
	GenerationMaxAttempts int
	GenerationRetryDelay  time.Duration
}

type RagConfig struct {
	ChunkSize            int
	ChunkOverlap         int
	RetrievalTopK        int
	ContextCharBudget    int
	PromptHistoryTurns   int
	ChatHistoryTurns     int
	ClassifyWindowChars  int
	CompletePromptBudget int
	RouterMode           string // "documents" | "multi_intent"
}

type VectorStoreConfig struct {
	Backend          string // "sqlite" | "postgres" | "memory"
	Path             string
	Connection       string
	DeleteRetryDelay time.Duration
}

type HistoryConfig struct {
	Backend string // "memory" | "redis"
}

type ExtractConfig struct {
	PdfToTextBin string
	Timeout      time.Duration
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			EventLogFilePath:   getEnv("EVENT_LOG_FILE_PATH", "logs/events.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			BodyLimitMB:        getEnvAsInt("BODY_LIMIT_MB", 50),
		},
		Ai: AIConfig{
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			EmbeddingModel:     getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingDimension: getEnvAsInt("EMBEDDING_DEFAULT_DIMENSION", 768),
			EmbeddingTimeout:   getEnvAsDuration("EMBEDDING_TIMEOUT", 30*time.Second),
			LLMProvider:        getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:           getEnv("LLM_MODEL", "llama3"),
			LLMTimeout:         getEnvAsDuration("LLM_TIMEOUT", 120*time.Second),
			Temperature:        getEnvAsFloat("LLM_TEMPERATURE", 0.1),
			TopP:               getEnvAsFloat("LLM_TOP_P", 0.3),
			TopK:               getEnvAsInt("LLM_TOP_K", 10),
			NumPredict:         getEnvAsInt("LLM_NUM_PREDICT", 1024),
			RepeatPenalty:      getEnvAsFloat("LLM_REPEAT_PENALTY", 1.1),
		},
		Retry: RetryConfig{
			EmbeddingMaxAttempts:  getEnvAsInt("EMBEDDING_MAX_ATTEMPTS", 3),
			EmbeddingBackoffBase:  getEnvAsDuration("EMBEDDING_BACKOFF_BASE", time.Second),
			EmbeddingBackoffMax:   getEnvAsDuration("EMBEDDING_BACKOFF_MAX", 8*time.Second),
			Jitter:                getEnvAsFloat("RETRY_JITTER", 0),
			GenerationMaxAttempts: getEnvAsInt("GENERATION_MAX_ATTEMPTS", 3),
			GenerationRetryDelay:  getEnvAsDuration("GENERATION_RETRY_DELAY", 2*time.Second),
		},
		Rag: RagConfig{
			ChunkSize:            getEnvAsInt("CHUNK_SIZE", 500),
			ChunkOverlap:         getEnvAsInt("CHUNK_OVERLAP", 50),
			RetrievalTopK:        getEnvAsInt("RETRIEVAL_TOP_K", 4),
			ContextCharBudget:    getEnvAsInt("CONTEXT_CHAR_BUDGET", 1500),
			PromptHistoryTurns:   getEnvAsInt("PROMPT_HISTORY_TURNS", 3),
			ChatHistoryTurns:     getEnvAsInt("CHAT_HISTORY_TURNS", 10),
			ClassifyWindowChars:  getEnvAsInt("CLASSIFY_WINDOW_CHARS", 1000),
			CompletePromptBudget: getEnvAsInt("COMPLETE_PROMPT_BUDGET", 4000),
			RouterMode:           getEnv("ROUTER_MODE", "documents"),
		},
		VectorStore: VectorStoreConfig{
			Backend:          getEnv("VECTOR_STORE_BACKEND", "sqlite"),
			Path:             getEnv("VECTOR_STORE_PATH", "./vector_db"),
			Connection:       getEnv("DB_CONNECTION_STRING", ""),
			DeleteRetryDelay: getEnvAsDuration("DELETE_RETRY_DELAY", 500*time.Millisecond),
		},
		History: HistoryConfig{
			Backend: getEnv("HISTORY_BACKEND", "memory"),
		},
		Extract: ExtractConfig{
			PdfToTextBin: getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Timeout:      getEnvAsDuration("EXTRACT_TIMEOUT", 2*time.Minute),
		},
		Tracing: TracingConfig{
			Enabled:  getEnvAsBool("OTEL_ENABLED", false),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("1500ms") and bare seconds ("30").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if seconds, err := strconv.ParseFloat(strValue, 64); err == nil {
		return time.Duration(seconds * float64(time.Second))
	}
	return fallback
}
