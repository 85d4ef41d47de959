package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/courtedge/courtedge/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// ProviderConfig is the shared shape for the three source feeds.
type ProviderConfig struct {
	BaseURL               string
	APIKey                string
	Timeout               time.Duration
	MaxRetries            int
	CircuitEnabled        bool
	CircuitFailureCount   int
	CircuitOpenTimeout    time.Duration
	CircuitHalfOpenMaxReq int
}

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv             string
	ServiceName        string
	ServiceVersion     string
	HTTPAddr           string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	CORSAllowedOrigins []string
	LogLevel           logging.Level
	InternalJobToken   string

	CollectorMaxWorkers int

	Stats    ProviderConfig
	Schedule ProviderConfig
	Odds     ProviderConfig

	ReasoningBaseURL         string
	ReasoningAPIKey          string
	ReasoningModel           string
	ReasoningTimeout         time.Duration
	ReasoningMaxRetries      int
	ReasoningTemperature     float64
	ReasoningMaxOutputTokens int
	ReasoningWindow          time.Duration
	ReasoningWindowLimit     int
	ReasoningCooldownMargin  time.Duration
	ReasoningCacheTTL        time.Duration
	ReasoningCacheMaxEntries int
}

func Load() (Config, error) {
	var cfg Config

	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}
	cfg.AppEnv = appEnv
	cfg.ServiceName = getEnv("SERVICE_NAME", "courtedge")
	cfg.ServiceVersion = getEnv("SERVICE_VERSION", "dev")
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.CORSAllowedOrigins = splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*"))
	cfg.LogLevel = parseLogLevel(getEnv("LOG_LEVEL", "info"))
	cfg.InternalJobToken = strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", ""))

	cfg.ReadTimeout, err = getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.WriteTimeout, err = getEnvAsDuration("HTTP_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse HTTP_WRITE_TIMEOUT: %w", err)
	}

	cfg.CollectorMaxWorkers, err = getEnvAsInt("COLLECTOR_MAX_WORKERS", 8)
	if err != nil {
		return Config{}, fmt.Errorf("parse COLLECTOR_MAX_WORKERS: %w", err)
	}
	if cfg.CollectorMaxWorkers < 1 {
		return Config{}, fmt.Errorf("COLLECTOR_MAX_WORKERS must be >= 1")
	}

	cfg.Stats, err = loadProvider("STATS")
	if err != nil {
		return Config{}, err
	}
	cfg.Schedule, err = loadProvider("SCHEDULE")
	if err != nil {
		return Config{}, err
	}
	cfg.Odds, err = loadProvider("ODDS")
	if err != nil {
		return Config{}, err
	}

	cfg.ReasoningBaseURL = strings.TrimSpace(getEnv("REASONING_BASE_URL", ""))
	cfg.ReasoningAPIKey = strings.TrimSpace(getEnv("REASONING_API_KEY", ""))
	cfg.ReasoningModel = strings.TrimSpace(getEnv("REASONING_MODEL", ""))

	cfg.ReasoningTimeout, err = getEnvAsDuration("REASONING_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse REASONING_TIMEOUT: %w", err)
	}
	cfg.ReasoningMaxRetries, err = getEnvAsInt("REASONING_MAX_RETRIES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse REASONING_MAX_RETRIES: %w", err)
	}
	cfg.ReasoningTemperature, err = getEnvAsFloat("REASONING_TEMPERATURE", 0.3)
	if err != nil {
		return Config{}, fmt.Errorf("parse REASONING_TEMPERATURE: %w", err)
	}
	cfg.ReasoningMaxOutputTokens, err = getEnvAsInt("REASONING_MAX_OUTPUT_TOKENS", 1024)
	if err != nil {
		return Config{}, fmt.Errorf("parse REASONING_MAX_OUTPUT_TOKENS: %w", err)
	}
	cfg.ReasoningWindow, err = getEnvAsDuration("REASONING_WINDOW", time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("parse REASONING_WINDOW: %w", err)
	}
	cfg.ReasoningWindowLimit, err = getEnvAsInt("REASONING_WINDOW_LIMIT", 10)
	if err != nil {
		return Config{}, fmt.Errorf("parse REASONING_WINDOW_LIMIT: %w", err)
	}
	if cfg.ReasoningWindowLimit < 1 {
		return Config{}, fmt.Errorf("REASONING_WINDOW_LIMIT must be >= 1")
	}
	cfg.ReasoningCooldownMargin, err = getEnvAsDuration("REASONING_COOLDOWN_MARGIN", 2*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse REASONING_COOLDOWN_MARGIN: %w", err)
	}
	cfg.ReasoningCacheTTL, err = getEnvAsDuration("REASONING_CACHE_TTL", 6*time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("parse REASONING_CACHE_TTL: %w", err)
	}
	cfg.ReasoningCacheMaxEntries, err = getEnvAsInt("REASONING_CACHE_MAX_ENTRIES", 256)
	if err != nil {
		return Config{}, fmt.Errorf("parse REASONING_CACHE_MAX_ENTRIES: %w", err)
	}

	return cfg, nil
}

func loadProvider(prefix string) (ProviderConfig, error) {
	var out ProviderConfig
	var err error

	out.BaseURL = strings.TrimSpace(getEnv(prefix+"_BASE_URL", ""))
	out.APIKey = strings.TrimSpace(getEnv(prefix+"_API_KEY", ""))

	out.Timeout, err = getEnvAsDuration(prefix+"_TIMEOUT", 10*time.Second)
	if err != nil {
		return ProviderConfig{}, fmt.Errorf("parse %s_TIMEOUT: %w", prefix, err)
	}
	out.MaxRetries, err = getEnvAsInt(prefix+"_MAX_RETRIES", 2)
	if err != nil {
		return ProviderConfig{}, fmt.Errorf("parse %s_MAX_RETRIES: %w", prefix, err)
	}

	out.CircuitEnabled, err = strconv.ParseBool(getEnv(prefix+"_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return ProviderConfig{}, fmt.Errorf("parse %s_CIRCUIT_ENABLED: %w", prefix, err)
	}
	out.CircuitFailureCount, err = getEnvAsInt(prefix+"_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return ProviderConfig{}, fmt.Errorf("parse %s_CIRCUIT_FAILURE_COUNT: %w", prefix, err)
	}
	out.CircuitOpenTimeout, err = getEnvAsDuration(prefix+"_CIRCUIT_OPEN_TIMEOUT", 30*time.Second)
	if err != nil {
		return ProviderConfig{}, fmt.Errorf("parse %s_CIRCUIT_OPEN_TIMEOUT: %w", prefix, err)
	}
	out.CircuitHalfOpenMaxReq, err = getEnvAsInt(prefix+"_CIRCUIT_HALF_OPEN_MAX_REQ", 1)
	if err != nil {
		return ProviderConfig{}, fmt.Errorf("parse %s_CIRCUIT_HALF_OPEN_MAX_REQ: %w", prefix, err)
	}

	return out, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}
