package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "catalogforge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "CATALOGFORGE_PORT")
	setString(&cfg.Server.CORSOrigin, "CATALOGFORGE_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "CATALOGFORGE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "CATALOGFORGE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "CATALOGFORGE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "CATALOGFORGE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "CATALOGFORGE_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "CATALOGFORGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "CATALOGFORGE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "CATALOGFORGE_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "CATALOGFORGE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "CATALOGFORGE_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "CATALOGFORGE_RATE_RPS")
	setInt(&cfg.Rate.Burst, "CATALOGFORGE_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "CATALOGFORGE_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "CATALOGFORGE_RATE_MAX_IDLE_TIME")

	// SKU generation
	setInt(&cfg.SKU.MaxAttempts, "CATALOGFORGE_SKU_MAX_ATTEMPTS")

	// Validation
	setFloat64(&cfg.Validation.Weights.BackgroundWhite, "CATALOGFORGE_WEIGHT_BACKGROUND")
	setFloat64(&cfg.Validation.Weights.Sharpness, "CATALOGFORGE_WEIGHT_SHARPNESS")
	setFloat64(&cfg.Validation.Weights.ObjectCoverage, "CATALOGFORGE_WEIGHT_COVERAGE")
	setFloat64(&cfg.Validation.Weights.ObjectPresence, "CATALOGFORGE_WEIGHT_PRESENCE")
	setFloat64(&cfg.Validation.Weights.PerceptualSimilarity, "CATALOGFORGE_WEIGHT_SIMILARITY")
	setFloat64(&cfg.Validation.AcceptThreshold, "CATALOGFORGE_ACCEPT_THRESHOLD")
	setFloat64(&cfg.Validation.ReviewThreshold, "CATALOGFORGE_REVIEW_THRESHOLD")
	setInt(&cfg.Validation.BorderPx, "CATALOGFORGE_BORDER_PX")
	setFloat64(&cfg.Validation.BlurThreshold, "CATALOGFORGE_BLUR_THRESHOLD")
	setFloat64(&cfg.Validation.CoverageMin, "CATALOGFORGE_COVERAGE_MIN")
	setFloat64(&cfg.Validation.CoverageMax, "CATALOGFORGE_COVERAGE_MAX")

	// Review queue
	setInt(&cfg.Review.SLAHours, "CATALOGFORGE_REVIEW_SLA_HOURS")
	setDuration(&cfg.Review.ScanInterval, "CATALOGFORGE_REVIEW_SCAN_INTERVAL")
	setInt(&cfg.Training.MinConfidence, "CATALOGFORGE_TRAINING_MIN_CONFIDENCE")
	setInt(&cfg.Training.MinSamples, "CATALOGFORGE_TRAINING_MIN_SAMPLES")

	// Imaging
	setInt(&cfg.Imaging.MaxConcurrent, "CATALOGFORGE_IMAGING_MAX_CONCURRENT")
	setInt64(&cfg.Cache.MaxSizeMB, "CATALOGFORGE_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "CATALOGFORGE_CACHE_TTL")

	// Observability
	setString(&cfg.Observability.OTLPEndpoint, "CATALOGFORGE_OTLP_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.SKU.MaxAttempts < 1 {
		return errors.New("sku.max_attempts must be >= 1")
	}
	if cfg.Validation.AcceptThreshold < 0 || cfg.Validation.AcceptThreshold > 1 {
		return errors.New("validation.accept_threshold must be within [0,1]")
	}
	if cfg.Validation.ReviewThreshold < 0 || cfg.Validation.ReviewThreshold > 1 {
		return errors.New("validation.review_threshold must be within [0,1]")
	}
	if cfg.Validation.ReviewThreshold > cfg.Validation.AcceptThreshold {
		return errors.New("validation.review_threshold must not exceed accept_threshold")
	}
	if cfg.Validation.BorderPx < 1 {
		return errors.New("validation.border_px must be >= 1")
	}
	if cfg.Validation.CoverageMin < 0 || cfg.Validation.CoverageMax > 1 ||
		cfg.Validation.CoverageMin >= cfg.Validation.CoverageMax {
		return errors.New("validation coverage band must satisfy 0 <= min < max <= 1")
	}
	if cfg.Review.SLAHours < 1 {
		return errors.New("review.sla_hours must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
