package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/aristath/stockhunter/internal/domain"
)

// Config holds application configuration, loaded from the environment per
// spec.md §6.5.
type Config struct {
	// Server
	Port    int
	DevMode bool

	// Broker
	BrokerAppKey    string
	BrokerAppSecret string
	Environment     domain.Environment
	ProdBaseURL     string
	PaperBaseURL    string

	// Persisted state (spec.md §6.4)
	DataDir      string
	DatabasePath string
	CacheDir     string

	// Rate limits (spec.md §4.C)
	BackfillRatePerSecond   float64
	InteractiveRatePerSecond float64

	// Retention and refresh (spec.md §4.F, §4.E)
	RetentionDays      int
	MasterCacheTTLDays int

	LogLevel string
}

const (
	defaultProdBaseURL  = "https://openapi.koreainvestment.com:9443"
	defaultPaperBaseURL = "https://openapivts.koreainvestment.com:29443"
)

// Load reads configuration from the environment, loading a .env file
// first if one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("STOCKHUNTER_DATA_DIR", defaultDataDir())

	cfg := &Config{
		Port:                     getEnvAsInt("STOCKHUNTER_PORT", 3000),
		DevMode:                  getEnvAsBool("DEV_MODE", false),
		BrokerAppKey:             getEnv("BROKER_APP_KEY", ""),
		BrokerAppSecret:          getEnv("BROKER_APP_SECRET", ""),
		Environment:              domain.Environment(getEnv("BROKER_ENVIRONMENT", string(domain.EnvPaper))),
		ProdBaseURL:              getEnv("BROKER_PROD_BASE_URL", defaultProdBaseURL),
		PaperBaseURL:             getEnv("BROKER_PAPER_BASE_URL", defaultPaperBaseURL),
		DataDir:                  dataDir,
		DatabasePath:             getEnv("STOCKHUNTER_DB_PATH", filepath.Join(dataDir, "price_data.db")),
		CacheDir:                 getEnv("STOCKHUNTER_CACHE_DIR", dataDir),
		BackfillRatePerSecond:    getEnvAsFloat("BACKFILL_RATE_PER_SECOND", 15),
		InteractiveRatePerSecond: getEnvAsFloat("INTERACTIVE_RATE_PER_SECOND", 20),
		RetentionDays:            getEnvAsInt("RETENTION_DAYS", 400),
		MasterCacheTTLDays:       getEnvAsInt("MASTER_CACHE_TTL_DAYS", 7),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("STOCKHUNTER_DB_PATH is required")
	}
	if c.Environment != domain.EnvProduction && c.Environment != domain.EnvPaper {
		return fmt.Errorf("BROKER_ENVIRONMENT must be %q or %q, got %q", domain.EnvProduction, domain.EnvPaper, c.Environment)
	}
	return nil
}

// BaseURL returns the broker base URL for the configured environment.
func (c *Config) BaseURL() string {
	if c.Environment == domain.EnvProduction {
		return c.ProdBaseURL
	}
	return c.PaperBaseURL
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".stockhunter")
	}
	return ".stockhunter"
}

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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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
