package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Audio
	SampleRate int
	Headless   bool          // render without a sound device
	Humanize   time.Duration // half-width of the timing jitter window

	// Server
	Port int

	// Generation
	GeminiAPIKey string
	Model        string
	Temperature  float64

	// Export
	ExportMode   string // realtime or offline
	ExportDir    string
	ExportRetain int // in-memory exports kept by the server

	// Error reporting
	SentryDSN   string
	Environment string
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		SampleRate: envInt("LOOPGEN_SAMPLE_RATE", 48000),
		Headless:   envBool("LOOPGEN_HEADLESS", false),
		Humanize:   time.Duration(envFloat("LOOPGEN_HUMANIZE_MS", 7.5) * float64(time.Millisecond)),

		Port: envInt("PORT", 8080),

		GeminiAPIKey: envStr("GEMINI_API_KEY", ""),
		Model:        envStr("LOOPGEN_MODEL", "gemini-2.5-flash"),
		Temperature:  envFloat("LOOPGEN_TEMPERATURE", 0.65),

		ExportMode:   strings.ToLower(envStr("LOOPGEN_EXPORT_MODE", "realtime")),
		ExportDir:    envStr("LOOPGEN_EXPORT_DIR", "exports"),
		ExportRetain: envInt("LOOPGEN_EXPORT_RETAIN", 8),

		SentryDSN:   envStr("SENTRY_DSN", ""),
		Environment: envStr("ENVIRONMENT", "development"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
