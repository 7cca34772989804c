package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Identity; empty runs the service anonymously with remote sync off
	UserID string

	// Remote mirror backend: "sheets" or "memory"
	RemoteBackend string

	// Remote mirror (Google Sheets)
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// AMQP change feed; empty falls back to polling
	AMQPURL      string
	AMQPExchange string

	// Sync tuning
	SyncDebounce time.Duration
	PollInterval time.Duration

	// Month view cache
	ViewCacheSize int
	ViewCacheTTL  time.Duration

	// Recurring worker
	APIBaseURL        string
	RecurringInterval time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/budget.db"),

		UserID: getEnv("BUDGET_USER_ID", ""),

		RemoteBackend: getEnv("REMOTE_BACKEND", "sheets"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Budgets"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budget.state"),

		SyncDebounce: getEnvDuration("SYNC_DEBOUNCE", 300*time.Millisecond),
		PollInterval: getEnvDuration("SYNC_POLL_INTERVAL", 30*time.Second),

		ViewCacheSize: getEnvInt("VIEW_CACHE_SIZE", 64),
		ViewCacheTTL:  getEnvDuration("VIEW_CACHE_TTL", 5*time.Minute),

		APIBaseURL:        getEnv("BUDGETD_API_URL", "http://localhost:8081"),
		RecurringInterval: getEnvDuration("RECURRING_INTERVAL", 6*time.Hour),
	}

	return cfg
}

// RemoteSyncEnabled reports whether the remote mirror should be wired up.
// The memory backend only needs an identity; sheets also needs a spreadsheet.
func (c *Config) RemoteSyncEnabled() bool {
	if c.UserID == "" {
		return false
	}
	if c.RemoteBackend == "memory" {
		return true
	}
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate SQLite path
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
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
	}

	if c.RemoteBackend != "sheets" && c.RemoteBackend != "memory" {
		errors = append(errors, fmt.Sprintf("invalid remote backend '%s': must be 'sheets' or 'memory'", c.RemoteBackend))
	}

	// A spreadsheet without an identity (or the reverse) is a misconfiguration
	if c.GoogleSpreadsheetID != "" && c.UserID == "" {
		errors = append(errors, "BUDGET_USER_ID is required when GOOGLE_SPREADSHEET_ID is set")
	}
	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name cannot be empty when a spreadsheet is configured")
	}

	// Validate sync tuning
	if c.SyncDebounce < 10*time.Millisecond || c.SyncDebounce > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid sync debounce %v: must be between 10ms and 1m", c.SyncDebounce))
	}
	if c.PollInterval < time.Second || c.PollInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid poll interval %v: must be between 1 second and 24 hours", c.PollInterval))
	}

	// Validate view cache
	if c.ViewCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid view cache size %d: must be at least 1", c.ViewCacheSize))
	}
	if c.ViewCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid view cache TTL %v: must be at least 1 second", c.ViewCacheTTL))
	}

	// Validate recurring worker settings
	if parsedURL, err := url.Parse(c.APIBaseURL); err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s': must be an http or https URL", c.APIBaseURL))
	}
	if c.RecurringInterval < time.Minute || c.RecurringInterval > 7*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be between 1 minute and 7 days", c.RecurringInterval))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
