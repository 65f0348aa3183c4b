package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvDurationDefault(t *testing.T) {
	t.Setenv("TEST_DUR_GO", "45s")
	assert.Equal(t, 45*time.Second, getEnvDurationDefault("TEST_DUR_GO", time.Minute))

	// Bare numbers are seconds, for compatibility with the old config.
	t.Setenv("TEST_DUR_SECS", "30")
	assert.Equal(t, 30*time.Second, getEnvDurationDefault("TEST_DUR_SECS", time.Minute))

	t.Setenv("TEST_DUR_BAD", "soon")
	assert.Equal(t, time.Minute, getEnvDurationDefault("TEST_DUR_BAD", time.Minute))

	assert.Equal(t, time.Minute, getEnvDurationDefault("TEST_DUR_UNSET", time.Minute))
}

func TestGetEnvIntDefault(t *testing.T) {
	t.Setenv("TEST_INT", "7")
	assert.Equal(t, 7, getEnvIntDefault("TEST_INT", 3))

	t.Setenv("TEST_INT_BAD", "-2")
	assert.Equal(t, 3, getEnvIntDefault("TEST_INT_BAD", 3))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("OLLAMA_URL", "")
	t.Setenv("BREAKER_FAILURE_THRESHOLD", "")
	t.Setenv("REQUEST_TIMEOUT", "")
	cfg := Load()
	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, 3, cfg.BreakerFailureThreshold)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaURL)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
}

func TestLoadRequestTimeoutOverride(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "2m")
	cfg := Load()
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout)
}
