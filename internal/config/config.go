package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	AllowedOrigin string

	// Overall budget for a single advisory request
	RequestTimeout time.Duration

	// Ollama generation endpoint
	OllamaURL   string
	OllamaModel string
	LLMTimeout  time.Duration

	// RAG bridge subprocess
	RAGPython  string
	RAGScript  string
	RAGTimeout time.Duration

	// Circuit breakers (shared settings for both dependencies)
	BreakerFailureThreshold int
	BreakerResetTimeout     time.Duration

	// Prompt/topic spec file
	PromptsFile string

	// Answer cache
	CacheSize int
	CacheTTL  time.Duration

	// Dependency monitor cron spec
	MonitorSpec string

	// Session transcript store
	SessionMaxMessages int
	SessionTTL         time.Duration
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:                    getEnvDefault("PORT", "3001"),
		AllowedOrigin:           getEnvDefault("ALLOWED_ORIGIN", "*"),
		RequestTimeout:          getEnvDurationDefault("REQUEST_TIMEOUT", 90*time.Second),
		OllamaURL:               getEnvDefault("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:             getEnvDefault("OLLAMA_MODEL", "llama3.1:8b"),
		LLMTimeout:              getEnvDurationDefault("LLM_TIMEOUT", 45*time.Second),
		RAGPython:               getEnvDefault("RAG_PYTHON", "python3"),
		RAGScript:               getEnvDefault("RAG_SCRIPT", "rag_bridge.py"),
		RAGTimeout:              getEnvDurationDefault("RAG_TIMEOUT", 30*time.Second),
		BreakerFailureThreshold: getEnvIntDefault("BREAKER_FAILURE_THRESHOLD", 3),
		BreakerResetTimeout:     getEnvDurationDefault("BREAKER_RESET_TIMEOUT", 60*time.Second),
		PromptsFile:             getEnvDefault("PROMPTS_FILE", "prompts/advisor.yaml"),
		CacheSize:               getEnvIntDefault("ANSWER_CACHE_SIZE", 256),
		CacheTTL:                getEnvDurationDefault("ANSWER_CACHE_TTL", 10*time.Minute),
		MonitorSpec:             getEnvDefault("MONITOR_CRON_SPEC", "@every 5m"),
		SessionMaxMessages:      getEnvIntDefault("SESSION_MAX_MESSAGES", 40),
		SessionTTL:              getEnvDurationDefault("SESSION_TTL", 30*time.Minute),
	}
	if _, err := os.Stat(cfg.RAGScript); err != nil {
		log.Printf("warning: RAG script %q not found; retrieval will run in fallback mode", cfg.RAGScript)
	}
	return cfg
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
		log.Printf("warning: invalid value for %s: %q, using default %d", key, v, def)
	}
	return def
}

// getEnvDurationDefault accepts Go duration strings ("45s", "2m") and, for
// compatibility with the old Node config, bare numbers interpreted as seconds.
func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	log.Printf("warning: invalid value for %s: %q, using default %s", key, v, def)
	return def
}
