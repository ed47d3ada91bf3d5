package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const (
	defaultAppEnv           = "development"
	defaultDBPath           = "./dev.db"
	defaultPort             = "8080"
	defaultLogFormat        = "json"
	defaultLogLevel         = "info"
	defaultMetricsNamespace = "woodshop"
	defaultMaxMargin        = 99.9
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DBPath             string
	LogFormat          string
	LogLevel           string
	MetricsNamespace   string
	MetricsEnabled     bool
	CORSAllowedOrigins []string
	SeedOnStart        bool
	MaxMarginPercent   float64
}

// Load reads environment variables, after a best-effort .env, and returns a
// populated Config.
func Load() (Config, error) {
	return load(".env")
}

func load(dotenvPath string) (Config, error) {
	// Production should use real env injection; the file only fills gaps.
	if err := loadDotEnv(dotenvPath); err != nil {
		return Config{}, err
	}

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	cfg := Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), defaultAppEnv),
		Port:               valueOrDefault(k.String("PORT"), defaultPort),
		DBPath:             valueOrDefault(k.String("DB_PATH"), defaultDBPath),
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), defaultLogFormat),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), defaultLogLevel),
		MetricsNamespace:   valueOrDefault(k.String("METRICS_NAMESPACE"), defaultMetricsNamespace),
		MetricsEnabled:     parseBool(k.String("METRICS_ENABLED"), true),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		SeedOnStart:        parseBool(k.String("SEED_ON_START"), true),
	}

	maxMargin, err := parseMargin(k.String("MAX_MARGIN_PERCENT"))
	if err != nil {
		return Config{}, err
	}
	cfg.MaxMarginPercent = maxMargin

	return cfg, nil
}

// IsDev reports whether the app runs in a development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(strings.TrimSpace(c.AppEnv)) {
	case "", "dev", "development", "local":
		return true
	}
	return false
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = defaultPort
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func parseMargin(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultMaxMargin, nil
	}
	m, err := strconv.ParseFloat(value, 64)
	if err != nil || m <= 0 || m >= 100 {
		return 0, fmt.Errorf("MAX_MARGIN_PERCENT must be a number in (0, 100), got %q", value)
	}
	return m, nil
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}
