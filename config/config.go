package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	defaultReconcileConcurrency = 8
	defaultRPCTimeout           = 10 * time.Second
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port string

	// Database configuration
	DatabaseURL string

	// Remote ABI source. When empty, the built-in contract interfaces are used.
	ABIBaseURL string

	// Maximum number of records resolved concurrently within one reconciliation batch.
	ReconcileConcurrency int

	// Timeout applied to each individual RPC endpoint attempt.
	RPCTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	concurrency, err := getEnvInt("RECONCILE_CONCURRENCY", defaultReconcileConcurrency)
	if err != nil {
		return nil, err
	}

	if concurrency < 1 {
		return nil, errors.New("RECONCILE_CONCURRENCY must be at least 1")
	}

	rpcTimeout, err := getEnvDuration("RPC_TIMEOUT", defaultRPCTimeout)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		DatabaseURL:          getEnvOrDefault("DATABASE_URL", "postgresql://localhost:5432/offerbook?sslmode=disable"),
		ABIBaseURL:           os.Getenv("ABI_BASE_URL"),
		ReconcileConcurrency: concurrency,
		RPCTimeout:           rpcTimeout,
	}

	return config, nil
}

// getEnvOrDefault returns the value of an environment variable or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}

	return value, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}

	return value, nil
}
