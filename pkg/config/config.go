// Package config loads process configuration from environment variables.
package config

import (
	"os"
	"strconv"
)

// Config holds the process configuration.
type Config struct {
	Port      string
	LogLevel  string
	OutputDir string

	// FHEEnabled controls whether a CKKS backend is constructed at
	// startup. When false every run uses the plaintext fallback.
	FHEEnabled bool

	// PolicyProfilePath optionally points at a YAML file of extra
	// decision scenarios. Empty means built-ins only.
	PolicyProfilePath string

	// DatabasePath is the sqlite file for session metadata. Empty means
	// in-memory, nothing survives the process.
	DatabasePath string

	// OTLPEndpoint enables OpenTelemetry export when non-empty.
	OTLPEndpoint string

	// RateLimitPerMinute caps API requests per client IP.
	RateLimitPerMinute int
}

// Load loads configuration from environment variables.
func Load() *Config {
	port := os.Getenv("QPOPS_PORT")
	if port == "" {
		port = "8080"
	}

	logLevel := os.Getenv("QPOPS_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	outputDir := os.Getenv("QPOPS_OUTPUT_DIR")
	if outputDir == "" {
		outputDir = "exports"
	}

	fheEnabled := true
	if v := os.Getenv("QPOPS_FHE_ENABLED"); v != "" {
		fheEnabled = v == "true" || v == "1"
	}

	rateLimit := 60
	if v := os.Getenv("QPOPS_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rateLimit = n
		}
	}

	return &Config{
		Port:               port,
		LogLevel:           logLevel,
		OutputDir:          outputDir,
		FHEEnabled:         fheEnabled,
		PolicyProfilePath:  os.Getenv("QPOPS_POLICY_PROFILES"),
		DatabasePath:       os.Getenv("QPOPS_DB_PATH"),
		OTLPEndpoint:       os.Getenv("QPOPS_OTLP_ENDPOINT"),
		RateLimitPerMinute: rateLimit,
	}
}
