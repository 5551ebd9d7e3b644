package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/wildlife-incident-analyzer/internal/analysis"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	DBPath string

	// Analysis holds the clustering and scoring knobs.
	Analysis       analysis.Config
	DigestSchedule string
	CORSOrigins    []string

	// Mapbox reverse geocoding for zone place names.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s"))
	if err != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	analysisCfg, err := loadAnalysis()
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "wildlife-incidents"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "wildlife-risk-reports"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "incident-analyzer"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		DBPath:         sharedcfg.EnvOrDefault("DB_PATH", "./data/incidents.db"),
		Analysis:       analysisCfg,
		DigestSchedule: envOrDefaultAllowEmpty("DIGEST_SCHEDULE", "@hourly"),
		CORSOrigins:    splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if cfg.DigestSchedule != "" {
		if _, err := cron.ParseStandard(cfg.DigestSchedule); err != nil {
			return nil, fmt.Errorf("invalid DIGEST_SCHEDULE: %w", err)
		}
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// loadAnalysis starts from the default analysis settings, overlays the YAML
// policy file named by ANALYSIS_POLICY_FILE, then applies ANALYSIS_POLICY.
func loadAnalysis() (analysis.Config, error) {
	cfg := analysis.DefaultConfig()

	if path := os.Getenv("ANALYSIS_POLICY_FILE"); path != "" {
		var err error
		cfg, err = LoadAnalysisPolicy(path, cfg)
		if err != nil {
			return analysis.Config{}, fmt.Errorf("invalid ANALYSIS_POLICY_FILE: %w", err)
		}
	}

	if v := os.Getenv("ANALYSIS_POLICY"); v != "" {
		p, err := analysis.ParsePolicy(v)
		if err != nil {
			return analysis.Config{}, fmt.Errorf("invalid ANALYSIS_POLICY: %w", err)
		}
		cfg.Policy = p
	}

	if err := cfg.Validate(); err != nil {
		return analysis.Config{}, fmt.Errorf("invalid analysis settings: %w", err)
	}
	return cfg, nil
}

// LoadAnalysisPolicy overlays the YAML document at path onto base. Keys absent
// from the file keep their base values.
func LoadAnalysisPolicy(path string, base analysis.Config) (analysis.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return analysis.Config{}, err
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return analysis.Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func envOrDefaultAllowEmpty(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
