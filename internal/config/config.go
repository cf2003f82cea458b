// Package config loads environment-sourced service configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every knob the service reads from the environment. All values
// have defaults; required API credentials are validated by the component
// constructors at startup, not here.
type Config struct {
	Port       string
	QdrantHost string
	QdrantPort int

	NotionAPIKey     string
	NotionDatabaseID string

	EmbeddingModel string
	ChatModel      string
	Temperature    float64
	LLMTimeout     time.Duration

	ChunkSize    int
	ChunkOverlap int
	MaxChunks    int

	// SimilarityThreshold and MinSimilarity are deliberately separate knobs;
	// do not collapse them. MinSimilarity gates the orchestrator's cache
	// path: a cached page is only reused when its best chunk similarity
	// exceeds this floor. SimilarityThreshold is the stricter acceptance
	// threshold; env-only for now, nothing consumes it.
	SimilarityThreshold float64
	MinSimilarity       float64

	SearchCandidates int
	SearchMinScore   float64
	MaxContentLength int

	LogLevel string
}

// Load reads the configuration from the environment, applying defaults.
func Load() *Config {
	return &Config{
		Port:       getEnv("PORT", "8080"),
		QdrantHost: getEnv("QDRANT_HOST", "localhost"),
		QdrantPort: getEnvInt("QDRANT_PORT", 6334),

		NotionAPIKey:     os.Getenv("NOTION_API_KEY"),
		NotionDatabaseID: os.Getenv("NOTION_DATABASE_ID"),

		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		ChatModel:      getEnv("CHAT_MODEL", "gpt-3.5-turbo-16k"),
		Temperature:    getEnvFloat("LLM_TEMPERATURE", 0.7),
		LLMTimeout:     getEnvDuration("LLM_TIMEOUT", 30*time.Second),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 300),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 50),
		MaxChunks:    getEnvInt("MAX_CHUNKS", 20),

		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.85),
		MinSimilarity:       getEnvFloat("MIN_SIMILARITY_THRESHOLD", 0.2),

		SearchCandidates: getEnvInt("SEARCH_CANDIDATES", 3),
		SearchMinScore:   getEnvFloat("SEARCH_MIN_SCORE", 0.3),
		MaxContentLength: getEnvInt("MAX_CONTENT_LENGTH", 14000),

		LogLevel: getEnv("LOG_LEVEL", "INFO"),
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
