package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// JWT
	JWTSecret string

	// Storage
	StoragePath string

	// Background Workers
	WorkerCount           int
	ProvisionInterval     time.Duration
	RetainedSweepInterval time.Duration

	// CORS
	AllowedOrigins []string

	// Sentry
	SentryDSN string

	// Logging
	LogFile  string
	LogDebug bool

	// Redis backs the catalog cache and the ingestion lock. Empty falls back to in-memory.
	RedisURL        string
	CatalogCacheTTL time.Duration

	// Ingestion
	ImportTimeout           time.Duration
	MaxUploadSizeMB         int
	ReconciliationTolerance decimal.Decimal
	PdfToTextPath           string
	OCRCommand              string

	// Agent code validation
	AssaCodePrefix    string
	AssaExcludedCodes []string

	// Bank file
	BankOriginAccount   string
	BankFileDescription string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		Environment:             getEnv("ENVIRONMENT", "development"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		StoragePath:             getEnv("STORAGE_PATH", "./storage"),
		WorkerCount:             getEnvAsInt("WORKER_COUNT", 3),
		ProvisionInterval:       getEnvAsDuration("FORTNIGHT_PROVISION_INTERVAL", 12*time.Hour),
		RetainedSweepInterval:   getEnvAsDuration("RETAINED_SWEEP_INTERVAL", 6*time.Hour),
		AllowedOrigins:          getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
		SentryDSN:               getEnv("SENTRY_DSN", ""),
		LogFile:                 getEnv("LOG_FILE", ""),
		LogDebug:                getEnv("LOG_LEVEL", "info") == "debug",
		RedisURL:                getEnv("REDIS_URL", ""),
		CatalogCacheTTL:         getEnvAsDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		ImportTimeout:           getEnvAsDuration("IMPORT_TIMEOUT", 3*time.Minute),
		MaxUploadSizeMB:         getEnvAsInt("MAX_UPLOAD_SIZE_MB", 25),
		ReconciliationTolerance: getEnvAsDecimal("RECONCILIATION_TOLERANCE", decimal.NewFromFloat(0.05)),
		PdfToTextPath:           getEnv("PDFTOTEXT_PATH", "pdftotext"),
		OCRCommand:              getEnv("OCR_COMMAND", ""),
		AssaCodePrefix:          getEnv("ASSA_CODE_PREFIX", "PJ750"),
		AssaExcludedCodes:       getEnvAsSlice("ASSA_EXCLUDED_CODES", []string{}),
		BankOriginAccount:       getEnv("BANK_ORIGIN_ACCOUNT", ""),
		BankFileDescription:     getEnv("BANK_FILE_DESCRIPTION", "PAGO COMISIONES"),
	}

	// Validate required configuration
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" && cfg.Environment == "production" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}

	// Set default JWT secret for development
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-in-production"
	}

	if cfg.ReconciliationTolerance.IsNegative() {
		return nil, fmt.Errorf("RECONCILIATION_TOLERANCE must not be negative")
	}

	return cfg, nil
}

// MaxUploadBytes returns the upload limit for statements in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadSizeMB) * 1024 * 1024
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer
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

// getEnvAsDuration accepts Go duration strings ("90s", "5m")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice reads an environment variable as comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
