package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Cache
	CacheBackend string
	RedisURL     string
	CacheTTL     time.Duration

	// AMQP, empty URL disables ledger events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror, empty spreadsheet ID keeps the mirror in memory
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Worker
	MirrorBatchSize int
	MirrorInterval  time.Duration

	// Rate limiting
	RateLimitPerSecond float64
	RateLimitBurst     int

	// Logging
	LogLevel  string
	LogFormat string
}

// Defaults is the configuration used for every key the environment leaves unset.
func Defaults() Config {
	return Config{
		Port:               "8081",
		SQLiteDBPath:       "./data/organify.db",
		TokenTTL:           24 * time.Hour,
		CacheBackend:       "memory",
		RedisURL:           "localhost:6379",
		CacheTTL:           5 * time.Minute,
		AMQPExchange:       "organify",
		AMQPQueue:          "ledger_mirror",
		GoogleSheetName:    "Transactions",
		MirrorBatchSize:    50,
		MirrorInterval:     30 * time.Second,
		RateLimitPerSecond: 10,
		RateLimitBurst:     20,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// Load reads the environment and fills the gaps from Defaults.
func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH"),

		JWTSecret: getEnv("JWT_SECRET"),
		TokenTTL:  getEnvDuration("TOKEN_TTL"),

		CacheBackend: getEnv("CACHE_BACKEND"),
		RedisURL:     getEnv("REDIS_URL"),
		CacheTTL:     getEnvDuration("CACHE_TTL"),

		AMQPURL:      getEnv("AMQP_URL"),
		AMQPExchange: getEnv("AMQP_EXCHANGE"),
		AMQPQueue:    getEnv("AMQP_QUEUE"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID"),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE"),

		MirrorBatchSize: getEnvInt("MIRROR_BATCH_SIZE"),
		MirrorInterval:  getEnvDuration("MIRROR_INTERVAL"),

		RateLimitPerSecond: getEnvFloat("RATE_LIMIT_PER_SECOND"),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST"),

		LogLevel:  getEnv("LOG_LEVEL"),
		LogFormat: getEnv("LOG_FORMAT"),
	}

	if err := mergo.Merge(cfg, Defaults()); err != nil {
		// Both sides are the same struct type; Merge cannot fail here.
		panic(fmt.Sprintf("merge config defaults: %v", err))
	}
	return cfg
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if c.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is required")
	} else if len(c.JWTSecret) < 16 {
		errors = append(errors, "JWT_SECRET must be at least 16 characters")
	}
	if c.TokenTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid token TTL %v: must be at least 1 minute", c.TokenTTL))
	}

	validBackends := []string{"memory", "redis"}
	if !slices.Contains(validBackends, c.CacheBackend) {
		errors = append(errors, fmt.Sprintf("invalid cache backend '%s': must be one of %v", c.CacheBackend, validBackends))
	}
	if c.CacheBackend == "redis" && c.RedisURL == "" {
		errors = append(errors, "REDIS_URL is required when using redis cache backend")
	}
	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet is configured")
		}
		hasJSON := c.GoogleServiceAccountJSON != ""
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasJSON && !hasFile {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for the sheets mirror")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.MirrorBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid mirror batch size %d: must be at least 1", c.MirrorBatchSize))
	} else if c.MirrorBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid mirror batch size %d: must be at most 1000", c.MirrorBatchSize))
	}
	if c.MirrorInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid mirror interval %v: must be at least 1 second", c.MirrorInterval))
	} else if c.MirrorInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid mirror interval %v: must be at most 24 hours", c.MirrorInterval))
	}

	if c.RateLimitPerSecond <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimitPerSecond))
	}
	if c.RateLimitBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	validFormats := []string{"text", "json"}
	if !slices.Contains(validFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func getEnvInt(key string) int {
	if value := getEnv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return 0
}

func getEnvFloat(key string) float64 {
	if value := getEnv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return 0
}

func getEnvDuration(key string) time.Duration {
	if value := getEnv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return 0
}
