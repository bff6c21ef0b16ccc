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

	"wealthtrack/internal/log"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Persistence
	DataBackend  string
	SQLiteDBPath string
	SeedDemoData bool

	// AI advice
	GeminiAPIKey   string
	GeminiModel    string
	AdviceLanguage string
	AdviceTimeout  time.Duration
	AdviceCacheTTL time.Duration

	// AMQP change events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Backup worker
	BackupDir      string
	BackupDebounce time.Duration

	// Google Sheets trend mirror
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string
	GoogleOAuthClientJSON string
	GoogleOAuthTokenJSON  string

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/wealthtrack.db"),
		SeedDemoData: getEnvBool("SEED_DEMO_DATA", true),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", getEnv("API_KEY", "")),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AdviceLanguage: getEnv("ADVICE_LANGUAGE", "Chinese"),
		AdviceTimeout:  getEnvDuration("ADVICE_TIMEOUT", 30*time.Second),
		AdviceCacheTTL: getEnvDuration("ADVICE_CACHE_TTL", time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "wealthtrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "record_changes"),

		BackupDir:      getEnv("BACKUP_DIR", "./data/backups"),
		BackupDebounce: getEnvDuration("BACKUP_DEBOUNCE", 5*time.Second),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Trend"),
		GoogleOAuthClientFile: getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:  getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		GoogleOAuthClientJSON: getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenJSON:  getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// SheetsEnabled reports whether the trend mirror is configured.
func (c *Config) SheetsEnabled() bool { return c.GoogleSpreadsheetID != "" }

// AMQPEnabled reports whether change events should be published.
func (c *Config) AMQPEnabled() bool { return c.AMQPURL != "" }

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 || c.RateLimitPerMinute > 10000 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be between 1 and 10000 requests per minute", c.RateLimitPerMinute))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if msg := ensureDir(filepath.Dir(c.SQLiteDBPath)); msg != "" {
			errors = append(errors, "cannot create SQLite database directory "+msg)
		}
	}

	// Advice
	if c.AdviceTimeout < time.Second || c.AdviceTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid advice timeout %v: must be between 1 second and 5 minutes", c.AdviceTimeout))
	}
	if c.AdviceCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid advice cache TTL %v: must not be negative", c.AdviceCacheTTL))
	}

	// Validate AMQP URL if provided
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

	// Backups
	if c.BackupDebounce < 0 || c.BackupDebounce > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid backup debounce %v: must be between 0 and 1 hour", c.BackupDebounce))
	}

	// Google Sheets mirror is optional; once a spreadsheet is named it must be reachable
	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when GOOGLE_SPREADSHEET_ID is set")
		}

		hasClientFile := c.GoogleOAuthClientFile != ""
		hasClientJSON := c.GoogleOAuthClientJSON != ""
		if !hasClientFile && !hasClientJSON {
			errors = append(errors, "either GOOGLE_OAUTH_CLIENT_FILE or GOOGLE_OAUTH_CLIENT_JSON must be provided for the sheets mirror")
		}

		hasTokenFile := c.GoogleOAuthTokenFile != ""
		hasTokenJSON := c.GoogleOAuthTokenJSON != ""
		if !hasTokenFile && !hasTokenJSON {
			errors = append(errors, "either GOOGLE_OAUTH_TOKEN_FILE or GOOGLE_OAUTH_TOKEN_JSON must be provided for the sheets mirror")
		}

		if hasClientFile {
			if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
			}
		}
		if hasTokenFile {
			if _, err := os.Stat(c.GoogleOAuthTokenFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google OAuth token file does not exist: %s", c.GoogleOAuthTokenFile))
			}
		}
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if _, err := log.ParseFormat(c.LogFormat); err != nil {
		errors = append(errors, err.Error())
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateWorker checks only what the backup worker needs.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the worker")
	}
	if c.BackupDir == "" {
		errors = append(errors, "BACKUP_DIR cannot be empty")
	} else if msg := ensureDir(c.BackupDir); msg != "" {
		errors = append(errors, "cannot create backup directory "+msg)
	}
	if err := c.Validate(); err != nil {
		errors = append(errors, strings.TrimPrefix(err.Error(), "configuration validation failed:\n- "))
	}
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ensureDir creates dir if missing and returns a message on failure.
func ensureDir(dir string) string {
	if dir == "." || dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Sprintf("'%s': %v", dir, err)
		}
	}
	return ""
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
