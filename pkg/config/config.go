// Package config loads process configuration from the environment.
//
// All three entry points (cmd/monitor, cmd/worker, cmd/server) call Load()
// once at startup and thread the resulting *Config through their
// constructors explicitly — no package-level singletons beyond the logger.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the umbrella configuration object read from the environment
// surface described in spec.md §6.3.
type Config struct {
	OperationalDSN string

	AnalyticalURL string
	AnalyticalKey string

	WebhookURL     string
	WebhookTimeout time.Duration

	Monitor MonitorConfig
	Worker  WorkerConfig
	Engine  EngineConfig

	HTTPPort string
}

// MonitorConfig controls the Class Monitor poll loop.
type MonitorConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// WorkerConfig controls the Transcript Worker poll loop and claim/lease protocol.
type WorkerConfig struct {
	PollInterval       time.Duration
	BatchSize          int
	MaxRetries         int
	LeaseSeconds       time.Duration
	MinTranscriptChars int
}

// EngineConfig controls the Exercise Engine's optional LLM and translation paths.
type EngineConfig struct {
	LLMAPIKey             string
	LLMModel              string
	TranslationTargetLang string
	QualityMin            int
}

// Load reads configuration from the environment, applying the defaults from
// spec.md §6.3. WEBHOOK_URL is the only required value; its absence is a
// startup failure (exit code 1 per spec.md §6.2).
func Load() (*Config, error) {
	webhookURL := os.Getenv("WEBHOOK_URL")
	if webhookURL == "" {
		return nil, fmt.Errorf("WEBHOOK_URL is required")
	}

	monitorPoll, err := parseDurationSeconds("MONITOR_POLL_INTERVAL_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	monitorBatch, err := parseIntDefault("MONITOR_BATCH_SIZE", 50)
	if err != nil {
		return nil, err
	}

	workerPoll, err := parseDurationSeconds("WORKER_POLL_INTERVAL_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	workerBatch, err := parseIntDefault("WORKER_BATCH_SIZE", 10)
	if err != nil {
		return nil, err
	}
	maxRetries, err := parseIntDefault("WORKER_MAX_RETRIES", 5)
	if err != nil {
		return nil, err
	}
	leaseSeconds, err := parseDurationSeconds("WORKER_LEASE_SECONDS", 600)
	if err != nil {
		return nil, err
	}
	minTranscriptChars, err := parseIntDefault("WORKER_MIN_TRANSCRIPT_CHARS", 100)
	if err != nil {
		return nil, err
	}

	qualityMin, err := parseIntDefault("QUALITY_MIN", 60)
	if err != nil {
		return nil, err
	}

	return &Config{
		OperationalDSN: os.Getenv("STORE_OPERATIONAL_DSN"),
		AnalyticalURL:  os.Getenv("STORE_ANALYTICAL_URL"),
		AnalyticalKey:  os.Getenv("STORE_ANALYTICAL_KEY"),
		WebhookURL:     webhookURL,
		WebhookTimeout: 30 * time.Second,
		Monitor: MonitorConfig{
			PollInterval: monitorPoll,
			BatchSize:    monitorBatch,
		},
		Worker: WorkerConfig{
			PollInterval:       workerPoll,
			BatchSize:          workerBatch,
			MaxRetries:         maxRetries,
			LeaseSeconds:       leaseSeconds,
			MinTranscriptChars: minTranscriptChars,
		},
		Engine: EngineConfig{
			LLMAPIKey:             os.Getenv("LLM_API_KEY"),
			LLMModel:              getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
			TranslationTargetLang: os.Getenv("TRANSLATION_TARGET_LANGUAGE"),
			QualityMin:            qualityMin,
		},
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),
	}, nil
}

// LLMAvailable reports whether the engine should attempt the LLM path.
func (c EngineConfig) LLMAvailable() bool {
	return c.LLMAPIKey != ""
}

// TranslationEnabled reports whether flashcard translation should be attempted.
func (c EngineConfig) TranslationEnabled() bool {
	return c.TranslationTargetLang != ""
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseIntDefault(key string, defaultVal int) (int, error) {
	raw := getEnvOrDefault(key, strconv.Itoa(defaultVal))
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseDurationSeconds(key string, defaultSeconds int) (time.Duration, error) {
	seconds, err := parseIntDefault(key, defaultSeconds)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}
