// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultDestinationTable is the table the summary replaces on every run
const DefaultDestinationTable = "sales_stack_summary"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Config represents the application configuration
type Config struct {
	// Store connection
	Store *StoreConfig

	// Pipeline settings
	DestinationTable string
	BatchSize        int
	QueryTimeout     time.Duration
	Preflight        bool
	Verify           bool

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string

	// Metrics
	MetricsPushgatewayURL string
	MetricsJob            string
}

// LoadConfig loads configuration from environment variables, reading an
// optional .env file first. Variables already set in the environment win
// over the file.
func LoadConfig() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	cfg := &Config{
		DestinationTable:      getEnv("DESTINATION_TABLE", DefaultDestinationTable),
		BatchSize:             getEnvAsInt("BATCH_SIZE", 500),
		QueryTimeout:          time.Duration(getEnvAsInt("QUERY_TIMEOUT_SECONDS", 300)) * time.Second,
		Preflight:             getEnvAsBool("PREFLIGHT", true),
		Verify:                getEnvAsBool("VERIFY", true),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogFile:               getEnv("LOG_FILE", "logs/get_sales_stack_summary.log"),
		MetricsPushgatewayURL: getEnv("METRICS_PUSHGATEWAY_URL", ""),
		MetricsJob:            getEnv("METRICS_JOB", "salesstack"),
	}

	storeConfig, err := LoadStoreConfig()
	if err != nil {
		return nil, errors.New("failed to load store configuration: " + err.Error())
	}
	cfg.Store = storeConfig

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.Store == nil {
		return errors.New("store configuration is required")
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}

	if err := ValidateTableName(c.DestinationTable); err != nil {
		return err
	}

	if c.BatchSize <= 0 {
		return errors.New("batch size must be positive")
	}

	if c.QueryTimeout <= 0 {
		return errors.New("query timeout must be positive")
	}

	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log format %q (want json or console)", c.LogFormat)
	}

	return nil
}

// ValidateTableName rejects names that cannot be used unquoted in DDL
func ValidateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("invalid destination table name %q", name)
	}
	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
