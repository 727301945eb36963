package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the Reef orchestrator.
type Config struct {
	Port      int
	Version   string
	Cache     CacheConfig
	Telemetry TelemetryConfig
}

// CacheConfig tunes the predictive response cache.
type CacheConfig struct {
	SimilarityThreshold float64
	ConfidenceThreshold float64
	ResponseTTL         time.Duration
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("REEF_PORT", 8080),
		Version: envStr("REEF_VERSION", "0.4.0"),
		Cache: CacheConfig{
			SimilarityThreshold: envFloat("REEF_CACHE_SIMILARITY_THRESHOLD", 0.75),
			ConfidenceThreshold: envFloat("REEF_CACHE_CONFIDENCE_THRESHOLD", 0.6),
			ResponseTTL:         envDuration("REEF_CACHE_RESPONSE_TTL", 24*time.Hour),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", true),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "reef-orchestrator"),
		},
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
		if i, err := strconv.Atoi(v); err == nil {
			return i
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

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
