package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// Auth configuration
	JWTSecret     string
	AdminPassword string

	// Recipe extraction (OpenAI-compatible chat completions endpoint)
	AIAPIKey      string
	AIAPIURL      string
	AIModel       string
	ImportTimeout time.Duration

	// Usage quota and cost accounting
	DailyImportLimit   int
	InputNanosPerUnit  int64
	OutputNanosPerUnit int64

	// Object storage for recipe photo uploads
	S3Bucket  string
	AWSRegion string
}

// LoadConfig creates a new Config instance from environment variables.
// Secrets may alternatively be supplied via <NAME>_FILE paths, which is
// how Docker secrets arrive in production.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerPort: getenv("SERVER_PORT", "8080"),
		ServerHost: getenv("SERVER_HOST", "0.0.0.0"),

		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBUser:     getenv("DB_USER", "appetora"),
		DBPassword: getSecret("DB_PASSWORD"),
		DBName:     getenv("DB_NAME", "appetora"),
		DBSSLMode:  getenv("DB_SSL_MODE", "disable"),

		RedisHost:     getenv("REDIS_HOST", "localhost"),
		RedisPort:     getenv("REDIS_PORT", "6379"),
		RedisPassword: getSecret("REDIS_PASSWORD"),
		RedisURL:      os.Getenv("REDIS_URL"),

		JWTSecret:     getSecret("JWT_SECRET"),
		AdminPassword: getSecret("ADMIN_PASSWORD"),

		AIAPIKey:      getSecret("OPENAI_API_KEY"),
		AIAPIURL:      getenv("OPENAI_API_URL", "https://api.openai.com/v1/chat/completions"),
		AIModel:       getenv("OPENAI_MODEL", "gpt-4o-mini"),
		ImportTimeout: getenvDuration("IMPORT_TIMEOUT", 60*time.Second),

		DailyImportLimit:   getenvInt("DAILY_IMPORT_LIMIT", 5),
		InputNanosPerUnit:  getenvInt64("COST_INPUT_NANOS_PER_UNIT", 150),
		OutputNanosPerUnit: getenvInt64("COST_OUTPUT_NANOS_PER_UNIT", 600),

		S3Bucket:  getenv("S3_BUCKET_NAME", "appetora-uploads"),
		AWSRegion: os.Getenv("AWS_REGION"),
	}

	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		db, err := strconv.Atoi(dbStr)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = db
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ValidateConfig rejects configurations the server cannot safely run with.
func ValidateConfig(cfg *Config) error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.DailyImportLimit <= 0 {
		return fmt.Errorf("DAILY_IMPORT_LIMIT must be positive, got %d", cfg.DailyImportLimit)
	}
	if cfg.InputNanosPerUnit < 0 || cfg.OutputNanosPerUnit < 0 {
		return fmt.Errorf("cost rates must be non-negative")
	}
	if cfg.ImportTimeout <= 0 {
		return fmt.Errorf("IMPORT_TIMEOUT must be positive")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getSecret reads NAME from the environment, falling back to the file
// named by NAME_FILE.
func getSecret(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if path := os.Getenv(key + "_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return ""
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
