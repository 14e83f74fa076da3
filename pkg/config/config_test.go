package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresWebhookURL(t *testing.T) {
	t.Setenv("WEBHOOK_URL", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WEBHOOK_URL")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WEBHOOK_URL", "https://example.test/webhook")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.Monitor.PollInterval)
	assert.Equal(t, 50, cfg.Monitor.BatchSize)
	assert.Equal(t, 60*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 10, cfg.Worker.BatchSize)
	assert.Equal(t, 5, cfg.Worker.MaxRetries)
	assert.Equal(t, 600*time.Second, cfg.Worker.LeaseSeconds)
	assert.Equal(t, 60, cfg.Engine.QualityMin)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.False(t, cfg.Engine.LLMAvailable())
	assert.False(t, cfg.Engine.TranslationEnabled())
}

func TestLoadOverridesAndAvailability(t *testing.T) {
	t.Setenv("WEBHOOK_URL", "https://example.test/webhook")
	t.Setenv("MONITOR_BATCH_SIZE", "25")
	t.Setenv("WORKER_MAX_RETRIES", "3")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("TRANSLATION_TARGET_LANGUAGE", "es")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Monitor.BatchSize)
	assert.Equal(t, 3, cfg.Worker.MaxRetries)
	assert.True(t, cfg.Engine.LLMAvailable())
	assert.True(t, cfg.Engine.TranslationEnabled())
}

func TestLoadInvalidInt(t *testing.T) {
	t.Setenv("WEBHOOK_URL", "https://example.test/webhook")
	t.Setenv("MONITOR_BATCH_SIZE", "not-a-number")
	_, err := Load()
	require.Error(t, err)
}
