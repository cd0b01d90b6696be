// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime configuration for the ingest service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	// Gmail OAuth app credentials. The user's token blob itself lives in the
	// settings store under the gmail_tokens key.
	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailLabel        string // mailbox label to ingest, e.g. "Job Alerts"

	// Gemini extraction. Empty API key switches the classifier to the
	// heuristic fallback path.
	GeminiAPIKey string
	GeminiModel  string

	IngestIntervalMinutes int    // how often the ingestion cron fires
	IngestLimit           int    // default per-run message cap
	DigestCronSpec        string // daily digest schedule

	LogLevel  string
	LogFormat string
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	interval := 30
	if s := os.Getenv("INGEST_INTERVAL_MINUTES"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("INGEST_INTERVAL_MINUTES must be a positive integer, got %q", s)
		}
		interval = v
	}

	limit := 50
	if s := os.Getenv("INGEST_LIMIT"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("INGEST_LIMIT must be a positive integer, got %q", s)
		}
		limit = v
	}

	label := os.Getenv("GMAIL_LABEL")
	if label == "" {
		label = "Job Alerts"
	}

	geminiModel := os.Getenv("GEMINI_MODEL")
	if geminiModel == "" {
		geminiModel = "gemini-2.5-flash"
	}

	digestSpec := os.Getenv("DIGEST_CRON_SPEC")
	if digestSpec == "" {
		digestSpec = "30 7 * * *"
	}

	port := os.Getenv("INGEST_PORT")
	if port == "" {
		port = "8083"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		Port:                  port,
		DatabaseURL:           dbURL,
		RedisURL:              redisURL,
		GmailClientID:         os.Getenv("GMAIL_CLIENT_ID"),
		GmailClientSecret:     os.Getenv("GMAIL_CLIENT_SECRET"),
		GmailRedirectURI:      os.Getenv("GMAIL_REDIRECT_URI"),
		GmailLabel:            label,
		GeminiAPIKey:          os.Getenv("GEMINI_API_KEY"),
		GeminiModel:           geminiModel,
		IngestIntervalMinutes: interval,
		IngestLimit:           limit,
		DigestCronSpec:        digestSpec,
		LogLevel:              logLevel,
		LogFormat:             os.Getenv("LOG_FORMAT"),
	}, nil
}
