package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/budgetai/insights/internal/money"
	"github.com/budgetai/insights/internal/oracle"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendBigQuery = "bigquery"
)

// Oracle providers.
const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
	ProviderNone   = "none"
)

type Config struct {
	// HTTP server
	Port      string
	JWTSecret string

	// Logging
	LogLevel  string
	LogFormat string

	// Transaction store
	StoreBackend    string
	SQLiteDBPath    string
	DatabaseURL     string
	BigQueryProject string
	BigQueryDataset string

	// Oracle
	OracleProvider string
	GeminiAPIKey   string
	GeminiModel    string
	GroqAPIKey     string
	GroqModel      string
	GroqBaseURL    string
	OracleTimeout  time.Duration
	OracleCacheTTL time.Duration

	// Import jobs. An empty AMQPURL keeps jobs in-process.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	ImportBucket string
	JobWorkers   int

	// Verification codes
	VerificationTTL   time.Duration
	VerificationSweep time.Duration

	// Display currency
	DisplayRate     float64
	DisplayCurrency string
}

// Load reads the configuration from the environment, after loading an
// optional .env file from the working directory.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", "8080"),
		JWTSecret: getEnv("JWT_SECRET", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		StoreBackend:    getEnv("STORE_BACKEND", BackendMemory),
		SQLiteDBPath:    getEnv("SQLITE_DB_PATH", "./data/budgetai.db"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		BigQueryProject: getEnv("BIGQUERY_PROJECT", ""),
		BigQueryDataset: getEnv("BIGQUERY_DATASET", "budgetai"),

		OracleProvider: getEnv("ORACLE_PROVIDER", ProviderGemini),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", oracle.DefaultGeminiModel),
		GroqAPIKey:     getEnv("GROQ_API_KEY", ""),
		GroqModel:      getEnv("GROQ_MODEL", oracle.DefaultGroqModel),
		GroqBaseURL:    getEnv("GROQ_BASE_URL", oracle.DefaultGroqBaseURL),
		OracleTimeout:  getEnvDuration("ORACLE_TIMEOUT", 20*time.Second),
		OracleCacheTTL: getEnvDuration("ORACLE_CACHE_TTL", 10*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgetai"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "budgetai.imports"),
		ImportBucket: getEnv("IMPORT_BUCKET", ""),
		JobWorkers:   getEnvInt("JOB_WORKERS", 5),

		VerificationTTL:   getEnvDuration("VERIFICATION_TTL", 5*time.Minute),
		VerificationSweep: getEnvDuration("VERIFICATION_SWEEP", 5*time.Minute),

		DisplayRate:     getEnvFloat("DISPLAY_RATE", money.DefaultRate),
		DisplayCurrency: getEnv("DISPLAY_CURRENCY", money.DefaultCurrency),
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET is required")
	}

	if !oneOf(c.LogFormat, "console", "json") {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be console or json", c.LogFormat))
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLITE_DB_PATH cannot be empty when using sqlite backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when using postgres backend")
		}
	case BackendBigQuery:
		if c.BigQueryProject == "" || c.BigQueryDataset == "" {
			errs = append(errs, "BIGQUERY_PROJECT and BIGQUERY_DATASET are required when using bigquery backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid store backend '%s': must be one of memory, sqlite, postgres, bigquery", c.StoreBackend))
	}

	switch c.OracleProvider {
	case ProviderNone:
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, "GEMINI_API_KEY is required when ORACLE_PROVIDER=gemini")
		}
	case ProviderGroq:
		if c.GroqAPIKey == "" {
			errs = append(errs, "GROQ_API_KEY is required when ORACLE_PROVIDER=groq")
		}
		if _, err := url.ParseRequestURI(c.GroqBaseURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid GROQ_BASE_URL '%s': %v", c.GroqBaseURL, err))
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid oracle provider '%s': must be one of gemini, groq, none", c.OracleProvider))
	}

	if c.OracleTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("invalid oracle timeout %v: must be positive", c.OracleTimeout))
	}
	if c.OracleCacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("invalid oracle cache ttl %v: must not be negative", c.OracleCacheTTL))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" || c.AMQPQueue == "" {
			errs = append(errs, "AMQP exchange and queue names cannot be empty when AMQP URL is provided")
		}
	}
	if c.JobWorkers < 1 {
		errs = append(errs, fmt.Sprintf("invalid job workers %d: must be at least 1", c.JobWorkers))
	}

	if c.VerificationTTL <= 0 {
		errs = append(errs, fmt.Sprintf("invalid verification ttl %v: must be positive", c.VerificationTTL))
	}
	if c.VerificationSweep < time.Second {
		errs = append(errs, fmt.Sprintf("invalid verification sweep %v: must be at least 1 second", c.VerificationSweep))
	}

	if c.DisplayRate <= 0 {
		errs = append(errs, fmt.Sprintf("invalid display rate %v: must be positive", c.DisplayRate))
	}
	if c.DisplayCurrency == "" {
		errs = append(errs, "DISPLAY_CURRENCY cannot be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
