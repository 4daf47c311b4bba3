// Package config loads and validates environment-driven configuration shared
// by the dashboard server and the mirror worker.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	// HTTP server
	Port string

	// Database
	SQLiteDBPath string

	// Workbook uploads
	MaxUploadBytes int64

	// AMQP (optional; empty URL disables event publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror (required only by the mirror worker)
	MirrorSpreadsheetID string
	MirrorSheetName     string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8084"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/dashboard.db"),

		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "dashboard"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "batch_events"),

		MirrorSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		MirrorSheetName:     getEnv("MIRROR_SHEET_NAME", "FactCapital"),
	}
}

// EventsEnabled reports whether batch events should be published.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// Validate checks the configuration and returns an error naming every
// problem found.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.MaxUploadBytes < 1<<10 {
		errs = append(errs, fmt.Sprintf("invalid max upload size %d: must be at least 1KB", c.MaxUploadBytes))
	} else if c.MaxUploadBytes > 1<<30 {
		errs = append(errs, fmt.Sprintf("invalid max upload size %d: must be at most 1GB", c.MaxUploadBytes))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// ValidateMirror additionally checks settings the mirror worker needs.
func (c *Config) ValidateMirror() error {
	if err := c.Validate(); err != nil {
		return err
	}
	var errs []string
	if c.AMQPURL == "" {
		errs = append(errs, "AMQP_URL is required for the mirror worker")
	}
	if c.MirrorSpreadsheetID == "" {
		errs = append(errs, "GOOGLE_SPREADSHEET_ID is required for the mirror worker")
	}
	if c.MirrorSheetName == "" {
		errs = append(errs, "mirror sheet name cannot be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}
