package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration

	// GeoMet upstream configuration.
	GeoMetBaseURL  string
	GeoMetEncoding string // "wcs" or "wms"
	FetchTimeout   time.Duration

	// Upstream availability probe.
	ProbeEnabled  bool
	ProbeInterval time.Duration

	// Kafka assessment audit trail.
	KafkaBrokers []string
	AuditTopic   string
	AuditEnabled bool
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file is honored when present for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	requestTimeout, err := parseDuration("REQUEST_TIMEOUT", "45s")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	probeInterval, err := parseDuration("PROBE_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	auditEnabled := len(brokers) > 0
	if v := os.Getenv("AUDIT_ENABLED"); v != "" {
		auditEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		RequestTimeout:  requestTimeout,

		GeoMetBaseURL:  envOrDefault("GEOMET_BASE_URL", "https://geo.weather.gc.ca/geomet"),
		GeoMetEncoding: envOrDefault("GEOMET_ENCODING", "wcs"),
		FetchTimeout:   fetchTimeout,

		ProbeEnabled:  envOrDefault("PROBE_ENABLED", "true") == "true",
		ProbeInterval: probeInterval,

		KafkaBrokers: brokers,
		AuditTopic:   envOrDefault("AUDIT_TOPIC", "bvlos-assessments"),
		AuditEnabled: auditEnabled,
	}

	if cfg.GeoMetBaseURL == "" {
		return nil, errors.New("GEOMET_BASE_URL is required")
	}
	if cfg.GeoMetEncoding != "wcs" && cfg.GeoMetEncoding != "wms" {
		return nil, errors.New("GEOMET_ENCODING must be \"wcs\" or \"wms\"")
	}
	if cfg.AuditEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("AUDIT_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.AuditEnabled && cfg.AuditTopic == "" {
		return nil, errors.New("AUDIT_TOPIC is required when the audit trail is enabled")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(envVar, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(envVar, fallback))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + envVar)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
