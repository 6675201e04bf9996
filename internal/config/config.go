package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config is the engine's environment-derived configuration.
type Config struct {
	Environment string
	LogLevel    slog.Level

	// Oracle settings
	OracleProvider   string // "anthropic", "ollama", or "mock"
	AnthropicAPIKey  string
	OllamaBaseURL    string
	ModelName        string // narrative generation model
	BackendModelName string // classification/repair model, lower temperature

	// Storage
	RedisURL string
	DataDir  string

	// Pipeline tuning
	MaxGenerationAttempts int
	MaxNarratorAttempts   int
	NarratorPass          bool
	Anticipation          bool
	ContentRating         string
}

// Load reads configuration from the environment with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:           getEnv("ENVIRONMENT", "development"),
		LogLevel:              parseLogLevel(getEnv("LOG_LEVEL", "info")),
		OracleProvider:        strings.ToLower(getEnv("ORACLE_PROVIDER", "ollama")),
		AnthropicAPIKey:       getEnv("ANTHROPIC_API_KEY", ""),
		OllamaBaseURL:         getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		ModelName:             getEnv("MODEL_NAME", "llama3"),
		BackendModelName:      getEnv("BACKEND_MODEL_NAME", ""),
		RedisURL:              getEnv("REDIS_URL", "localhost:6379"),
		DataDir:               getEnv("DATA_DIR", "./data"),
		MaxGenerationAttempts: getEnvInt("MAX_GENERATION_ATTEMPTS", 3),
		MaxNarratorAttempts:   getEnvInt("MAX_NARRATOR_ATTEMPTS", 3),
		NarratorPass:          getEnvBool("NARRATOR_PASS", false),
		Anticipation:          getEnvBool("ENGINE_ANTICIPATION", false),
		ContentRating:         getEnv("CONTENT_RATING", "standard"),
	}

	switch cfg.OracleProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required when ORACLE_PROVIDER=anthropic")
		}
	case "ollama", "mock":
	default:
		return nil, fmt.Errorf("invalid ORACLE_PROVIDER %q (supported: anthropic, ollama, mock)", cfg.OracleProvider)
	}

	if cfg.MaxGenerationAttempts < 1 {
		return nil, fmt.Errorf("MAX_GENERATION_ATTEMPTS must be at least 1")
	}
	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
