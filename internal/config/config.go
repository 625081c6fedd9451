package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port         int
	DevMode      bool
	LogLevel     string
	DatabasePath string
	DataDir      string // raw snapshots and SQL dumps live here

	// Source ingester
	SourceAPIURL string

	// Pipeline scheduling ("" disables the cron job)
	PipelineSchedule string

	// External enrichment toggles
	EnableHolidays   bool
	HolidayCountry   string
	EnableFX         bool
	FXTargetCurrency string

	// Anomaly detection
	LargeAmountThreshold float64
	OutlierZThreshold    float64
	RareCategoryRule     bool
	RareCategoryMaxCount int

	// Recurrence analysis
	RecurringMinCount      int
	DuplicateWindowDays    int
	DuplicateAmountEpsilon float64

	// Data quality
	MinDescriptionLength int

	// Optional S3 upload of the SQL dump
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnvAsInt("PORT", 8080),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DatabasePath: getEnv("DATABASE_PATH", "./data/ledgerlens.db"),
		DataDir:      getEnv("DATA_DIR", "./data"),

		SourceAPIURL: getEnv("SOURCE_API_URL", "https://api.sampleapis.com/fakebank/accounts"),

		PipelineSchedule: getEnv("PIPELINE_SCHEDULE", ""),

		EnableHolidays:   getEnvAsBool("ENABLE_HOLIDAYS", true),
		HolidayCountry:   strings.ToUpper(getEnv("HOLIDAY_COUNTRY", "US")),
		EnableFX:         getEnvAsBool("ENABLE_FX", false),
		FXTargetCurrency: strings.ToUpper(getEnv("FX_TARGET_CURRENCY", "USD")),

		LargeAmountThreshold: getEnvAsFloat("LARGE_AMOUNT_THRESHOLD", 500),
		OutlierZThreshold:    getEnvAsFloat("OUTLIER_Z_THRESHOLD", 3),
		RareCategoryRule:     getEnvAsBool("RARE_CATEGORY_RULE", false),
		RareCategoryMaxCount: getEnvAsInt("RARE_CATEGORY_MAX_COUNT", 1),

		RecurringMinCount:      getEnvAsInt("RECURRING_MIN_COUNT", 3),
		DuplicateWindowDays:    getEnvAsInt("DUPLICATE_WINDOW_DAYS", 1),
		DuplicateAmountEpsilon: getEnvAsFloat("DUPLICATE_AMOUNT_EPSILON", 0.01),

		MinDescriptionLength: getEnvAsInt("MIN_DESCRIPTION_LENGTH", 3),

		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3Prefix:    getEnv("S3_PREFIX", "dumps"),
		S3Region:    getEnv("S3_REGION", "eu-central-1"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if c.EnableHolidays && len(c.HolidayCountry) != 2 {
		return fmt.Errorf("HOLIDAY_COUNTRY must be a two-letter country code, got %q", c.HolidayCountry)
	}
	if c.EnableFX && len(c.FXTargetCurrency) != 3 {
		return fmt.Errorf("FX_TARGET_CURRENCY must be a three-letter currency code, got %q", c.FXTargetCurrency)
	}
	if c.OutlierZThreshold <= 0 {
		return fmt.Errorf("OUTLIER_Z_THRESHOLD must be positive")
	}
	if c.DuplicateWindowDays < 0 {
		return fmt.Errorf("DUPLICATE_WINDOW_DAYS must not be negative")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
