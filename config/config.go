package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"raffler/database"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated)

	// Raffle configuration
	EntranceFee        int64         // Fixed fee required to enter a round
	DrawInterval       time.Duration // Minimum time between settlements
	PoolAccount        string        // Treasury account holding the pool
	KeeperPollInterval time.Duration // How often the keeper checks draw readiness

	// Oracle configuration
	OracleSubscriptionID string // Subscription identity presented to the randomness oracle
	OracleConsumer       string // Consumer name scoping the fulfillment subject

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp", or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			// In test environment, use a default test config instead of panicking
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// NATS
		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),

		// Raffle settings with defaults
		EntranceFee:        100,
		DrawInterval:       10 * time.Minute,
		PoolAccount:        getEnvWithDefault("POOL_ACCOUNT", "raffle:pool"),
		KeeperPollInterval: 15 * time.Second,

		// Oracle
		OracleSubscriptionID: os.Getenv("ORACLE_SUBSCRIPTION_ID"),
		OracleConsumer:       getEnvWithDefault("ORACLE_CONSUMER", "raffler"),

		// OpenTelemetry
		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "raffler"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "none"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_OTLP_ENDPOINT", "localhost:4317"),
		OTelExportIntervalMillis: 60000,

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if fee := os.Getenv("ENTRANCE_FEE"); fee != "" {
		parsedFee, err := strconv.ParseInt(fee, 10, 64)
		if err != nil || parsedFee <= 0 {
			return nil, fmt.Errorf("ENTRANCE_FEE must be a positive integer, got %q", fee)
		}
		config.EntranceFee = parsedFee
	}
	if interval := os.Getenv("DRAW_INTERVAL"); interval != "" {
		parsedInterval, err := time.ParseDuration(interval)
		if err != nil || parsedInterval <= 0 {
			return nil, fmt.Errorf("DRAW_INTERVAL must be a positive duration, got %q", interval)
		}
		config.DrawInterval = parsedInterval
	}
	if poll := os.Getenv("KEEPER_POLL_INTERVAL"); poll != "" {
		parsedPoll, err := time.ParseDuration(poll)
		if err != nil || parsedPoll <= 0 {
			return nil, fmt.Errorf("KEEPER_POLL_INTERVAL must be a positive duration, got %q", poll)
		}
		config.KeeperPollInterval = parsedPoll
	}
	if exportInterval := os.Getenv("OTEL_EXPORT_INTERVAL_MILLIS"); exportInterval != "" {
		if parsed, err := strconv.Atoi(exportInterval); err == nil && parsed > 0 {
			config.OTelExportIntervalMillis = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		// If DatabaseName is provided, ensure it's not empty
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
		if config.OracleSubscriptionID == "" {
			return nil, fmt.Errorf("ORACLE_SUBSCRIPTION_ID is required")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:          "test",
		EntranceFee:          1,
		DrawInterval:         time.Minute,
		PoolAccount:          "raffle:pool",
		KeeperPollInterval:   time.Second,
		OracleSubscriptionID: "test-subscription",
		OracleConsumer:       "raffler-test",
		OTelExporterType:     "none",
	}
}
