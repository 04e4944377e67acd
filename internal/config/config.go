/**
 * @description
 * Configuration loader for the Farm2Consumer backend.
 * Responsible for reading environment variables, setting defaults, and performing strict validation.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files
 * - standard "os": For reading env vars
 *
 * @notes
 * - Fails fast if the database URL is missing.
 * - Pricing constants are not configurable; they live in internal/pricing.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Backend    BackendConfig
	Retirement RetirementConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
	Env  string // "development", "staging", "production" or "test"
}

// DBConfig holds PostgreSQL settings
type DBConfig struct {
	URL string
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL string
}

// AuthConfig holds JWT validation settings. JWKSURL wins over Secret when both are set.
type AuthConfig struct {
	Secret  string
	JWKSURL string
}

// BackendConfig points at the external marketplace REST API used by cmd/sweep
type BackendConfig struct {
	URL          string
	ServiceToken string
	Timeout      time.Duration
}

// RetirementConfig tunes the background retirement workers
type RetirementConfig struct {
	Workers     int
	QueueSize   int
	CallTimeout time.Duration
	// SweepSchedule is a cron spec with a seconds field.
	SweepSchedule string
}

// Load reads .env file and populates the Config struct
func Load() (*Config, error) {
	cfg := fromEnv()

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadRemote is Load for processes that only talk to the marketplace REST API
// and never open the database.
func LoadRemote() (*Config, error) {
	cfg := fromEnv()

	if cfg.Backend.URL == "" {
		return nil, fmt.Errorf("BACKEND_API_URL is required")
	}
	if err := validateRetirement(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func fromEnv() *Config {
	// Missing .env is fine, the platform may inject env vars directly
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
		},
		DB: DBConfig{
			URL: normalizeDatabaseURL(getEnv("DATABASE_URL", "")),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Auth: AuthConfig{
			Secret:  sanitizeCredential(getEnv("JWT_SECRET", "")),
			JWKSURL: getEnv("JWKS_URL", ""),
		},
		Backend: BackendConfig{
			URL:          strings.TrimRight(getEnv("BACKEND_API_URL", "http://localhost:5000/api"), "/"),
			ServiceToken: sanitizeCredential(getEnv("BACKEND_SERVICE_TOKEN", "")),
			Timeout:      getEnvAsDuration("BACKEND_TIMEOUT", 10*time.Second),
		},
		Retirement: RetirementConfig{
			Workers:       getEnvAsInt("RETIREMENT_WORKERS", 4),
			QueueSize:     getEnvAsInt("RETIREMENT_QUEUE_SIZE", 256),
			CallTimeout:   getEnvAsDuration("RETIREMENT_CALL_TIMEOUT", 10*time.Second),
			SweepSchedule: getEnv("SWEEP_SCHEDULE", "0 0 * * * *"),
		},
	}
}

// validate checks for required variables
func validate(cfg *Config) error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if err := validateRetirement(cfg); err != nil {
		return err
	}
	if cfg.Auth.Secret == "" && cfg.Auth.JWKSURL == "" && cfg.Server.Env != "test" {
		// Protected routes answer 500 until one of them is configured
		fmt.Println("Warning: neither JWT_SECRET nor JWKS_URL is set. Auth middleware will fail.")
	}
	return nil
}

func validateRetirement(cfg *Config) error {
	if cfg.Retirement.Workers <= 0 {
		return fmt.Errorf("RETIREMENT_WORKERS must be positive, got %d", cfg.Retirement.Workers)
	}
	if cfg.Retirement.QueueSize <= 0 {
		return fmt.Errorf("RETIREMENT_QUEUE_SIZE must be positive, got %d", cfg.Retirement.QueueSize)
	}
	return nil
}

// Helper to get env var with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func sanitizeCredential(value string) string {
	trimmed := strings.TrimSpace(value)
	return strings.Trim(trimmed, "\"")
}

// Some hosts hand out postgres:// URLs; both schemes are accepted by pgx but we keep one spelling.
func normalizeDatabaseURL(raw string) string {
	if strings.HasPrefix(raw, "postgres://") {
		return "postgresql://" + strings.TrimPrefix(raw, "postgres://")
	}
	return raw
}

// Helper to get env var as int
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	return fallback
}
