// Package config collects every recognized environment option into one
// struct and validates it before the server opens any network connection.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrConfiguration marks missing or malformed deployment configuration.
var ErrConfiguration = errors.New("configuration error")

// maxBatchSize matches the embeddings API input cap; larger batches fail
// on every request.
const maxBatchSize = 100

type Config struct {
	ServerAddr string
	Env        string

	OpenAIAPIKey   string `validate:"required"`
	VectorDBURL    string `validate:"required"`
	LLMModel       string
	EmbeddingModel string

	Temperature     float64
	MaxOutputTokens int

	// PromptTokenBudget bounds the assembled prompt, not the completion.
	PromptTokenBudget int

	DocsDir      string
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	TopK         int

	RequestBudget time.Duration
	WatchDocs     bool
}

func Load() (*Config, error) {
	cfg := &Config{
		ServerAddr:        getEnv("SERVER_ADDR", ":8080"),
		Env:               getEnv("APP_ENV", "development"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		VectorDBURL:       os.Getenv("VECTOR_DB_URL"),
		LLMModel:          getEnv("LLM_MODEL", "gpt-4o-mini"),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		Temperature:       getEnvFloat("LLM_TEMPERATURE", 0.3),
		MaxOutputTokens:   getEnvInt("LLM_MAX_TOKENS", 1024),
		PromptTokenBudget: getEnvInt("PROMPT_TOKEN_BUDGET", 6000),
		DocsDir:           getEnv("DOCS_DIR", "documents"),
		ChunkSize:         getEnvInt("CHUNK_SIZE", 800),
		ChunkOverlap:      getEnvInt("CHUNK_OVERLAP", 100),
		BatchSize:         getEnvInt("INGEST_BATCH_SIZE", 32),
		TopK:              getEnvInt("TOP_K", 3),
		RequestBudget:     time.Duration(getEnvInt("REQUEST_BUDGET_SEC", 30)) * time.Second,
		WatchDocs:         getEnv("WATCH_DOCS", "") == "true",
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			return nil, fmt.Errorf("%w: %s is required", ErrConfiguration, envName(errs[0].Field()))
		}
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("%w: CHUNK_OVERLAP must be smaller than CHUNK_SIZE", ErrConfiguration)
	}
	if cfg.BatchSize < 1 || cfg.BatchSize > maxBatchSize {
		return nil, fmt.Errorf("%w: INGEST_BATCH_SIZE must be between 1 and %d", ErrConfiguration, maxBatchSize)
	}

	return cfg, nil
}

func (c *Config) Production() bool {
	return c.Env == "production"
}

func envName(field string) string {
	switch field {
	case "OpenAIAPIKey":
		return "OPENAI_API_KEY"
	case "VectorDBURL":
		return "VECTOR_DB_URL"
	}
	return field
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
