package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv                string `validate:"required"`
	DBPath                string `validate:"required"`
	DBDriver              string `validate:"required"`
	DBReadOnly            bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int `validate:"min=0,max=15"`
	RedisKeyPrefix        string
	CacheTTL              time.Duration `validate:"gt=0"`
	GRPCPort              int           `validate:"min=1,max=65535"`
	GRPCReflectionEnabled bool
	GRPCLoggingEnabled    bool
	MetricsPort           int           `validate:"min=0,max=65535"`
	OracleTimeout         time.Duration `validate:"gt=0"`
	GeminiAPIKey          string
	GeminiModel           string
	GeminiEndpoint        string `validate:"omitempty,url"`
	LocalTimezone         string `validate:"required"`
}

// LoadFromEnv loads configuration from environment variables. Unparseable values
// fall back to their defaults.
func LoadFromEnv() *Config {
	return &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		DBPath:                getEnv("DB_PATH", "./data/database.db"),
		DBDriver:              getEnv("DB_DRIVER", "sqlite3"),
		DBReadOnly:            getBool("DB_READ_ONLY", false),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		RedisDB:               getInt("REDIS_DB", 0),
		RedisKeyPrefix:        getEnv("REDIS_KEY_PREFIX", "inspection-analytics"),
		CacheTTL:              getDuration("CACHE_TTL", 2*time.Minute),
		GRPCPort:              getInt("GRPC_PORT", 50051),
		GRPCReflectionEnabled: getBool("GRPC_REFLECTION_ENABLED", false),
		GRPCLoggingEnabled:    getBool("GRPC_LOGGING_ENABLED", true),
		MetricsPort:           getInt("METRICS_PORT", 9090),
		OracleTimeout:         getDuration("ORACLE_TIMEOUT", 8*time.Second),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", ""),
		GeminiEndpoint:        getEnv("GEMINI_ENDPOINT", ""),
		LocalTimezone:         getEnv("LOCAL_TIMEZONE", "UTC"),
	}
}

// Validate checks ranges and that the local timezone is known.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.LocalTimezone); err != nil {
		return fmt.Errorf("invalid config: LOCAL_TIMEZONE %q: %w", c.LocalTimezone, err)
	}
	return nil
}

// Location returns the timezone used to bucket evaluation timestamps into days.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.LocalTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RedisEnabled reports whether a cache address is configured. REDIS_ADDR=off disables caching.
func (c *Config) RedisEnabled() bool {
	addr := strings.TrimSpace(c.RedisAddr)
	return addr != "" && !strings.EqualFold(addr, "off")
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}
