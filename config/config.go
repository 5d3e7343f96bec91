package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// LLM provider configuration
	LLM LLMConfig

	// Market data configuration
	MarketData MarketDataConfig

	// Analysis orchestration configuration
	Analysis AnalysisConfig

	// HTTP configuration (metrics/health endpoints)
	HTTP HTTPConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// LLMConfig holds LLM provider configuration
type LLMConfig struct {
	Provider        string // anthropic, openai, gemini, or bedrock
	Model           string // empty = provider default
	MaxTokens       int
	Temperature     float64
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GeminiAPIKey    string
	BedrockRegion   string
}

// MarketDataConfig holds market data provider configuration
type MarketDataConfig struct {
	PrimaryProvider string // yahoo, alpha_vantage, or alpaca
	BackupProvider  string // empty disables fallback
	HistoryDays     int

	AlphaVantageAPIKey string
	AlpacaAPIKey       string
	AlpacaAPISecret    string
	AlpacaBaseURL      string
}

// AnalysisConfig holds batch orchestration configuration
type AnalysisConfig struct {
	Parallelism     int
	ContinueOnError bool

	// Retry policy for LLM calls
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	MetricsAddr string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		LLM: LLMConfig{
			Provider:        getEnvString("LLM_PROVIDER", "anthropic"),
			Model:           os.Getenv("LLM_MODEL"),
			MaxTokens:       getEnvInt("LLM_MAX_TOKENS", 2048),
			Temperature:     getEnvFloat("LLM_TEMPERATURE", 0.7),
			AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
			OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
			GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
			BedrockRegion:   getEnvString("BEDROCK_REGION", "us-east-1"),
		},
		MarketData: MarketDataConfig{
			PrimaryProvider:    getEnvString("DATA_PRIMARY_PROVIDER", "yahoo"),
			BackupProvider:     getEnvString("DATA_BACKUP_PROVIDER", "alpha_vantage"),
			HistoryDays:        getEnvInt("DATA_HISTORY_DAYS", 30),
			AlphaVantageAPIKey: os.Getenv("ALPHA_VANTAGE_API_KEY"),
			AlpacaAPIKey:       os.Getenv("ALPACA_API_KEY"),
			AlpacaAPISecret:    os.Getenv("ALPACA_API_SECRET"),
			AlpacaBaseURL:      getEnvString("ALPACA_BASE_URL", "https://paper-api.alpaca.markets"),
		},
		Analysis: AnalysisConfig{
			Parallelism:      getEnvInt("ANALYSIS_PARALLELISM", 1),
			ContinueOnError:  getEnvBool("ANALYSIS_CONTINUE_ON_ERROR", false),
			RetryMaxAttempts: getEnvInt("LLM_RETRY_MAX_ATTEMPTS", 3),
			RetryBaseDelay:   getEnvDuration("LLM_RETRY_BASE_DELAY", 2*time.Second),
			RetryMaxDelay:    getEnvDuration("LLM_RETRY_MAX_DELAY", 30*time.Second),
		},
		HTTP: HTTPConfig{
			MetricsAddr: getEnvString("METRICS_ADDR", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Analysis.Parallelism <= 0 {
		return fmt.Errorf("ANALYSIS_PARALLELISM must be positive, got %d", c.Analysis.Parallelism)
	}
	if c.Analysis.RetryMaxAttempts <= 0 {
		return fmt.Errorf("LLM_RETRY_MAX_ATTEMPTS must be positive, got %d", c.Analysis.RetryMaxAttempts)
	}
	if c.MarketData.HistoryDays <= 0 {
		return fmt.Errorf("DATA_HISTORY_DAYS must be positive, got %d", c.MarketData.HistoryDays)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2, got %.2f", c.LLM.Temperature)
	}
	return nil
}

// HasDatabase returns true if database configuration is available
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasBackupProvider returns true if a fallback data provider is configured
func (c *Config) HasBackupProvider() bool {
	return c.MarketData.BackupProvider != ""
}

// getEnvString returns the env value or a default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the env value as int or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvFloat returns the env value as float64 or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvBool returns the env value as bool or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns the env value as duration or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
