package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	// NUMBERING_TIMEZONE must resolve in minimal containers.
	_ "time/tzdata"
)

type Config struct {
	// HTTP Server
	Port       string
	AppEnv     string
	CORSOrigin string

	// Logging
	LogLevel  string
	LogFormat string

	// Database
	SQLiteDBPath string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Quotes
	NumberingTimezone   string
	NumberRetryAttempts int
	DefaultLaborRate    float64
	DefaultPaintingRate float64

	// AMQP (empty URL disables publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Export
	ExportBackend            string
	ExportResyncInterval     time.Duration
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

func Load() *Config {
	return &Config{
		Port:       getEnv("PORT", "8081"),
		AppEnv:     strings.ToLower(getEnv("APP_ENV", "production")),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:5173"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/cotizador.db"),

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute),

		NumberingTimezone:   getEnv("NUMBERING_TIMEZONE", "Local"),
		NumberRetryAttempts: getEnvInt("NUMBER_RETRY_ATTEMPTS", 3),
		DefaultLaborRate:    getEnvFloat("DEFAULT_LABOR_RATE", 25),
		DefaultPaintingRate: getEnvFloat("DEFAULT_PAINTING_RATE", 15),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cotizador"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "quote_events"),

		ExportBackend:            getEnv("EXPORT_BACKEND", "memory"),
		ExportResyncInterval:     getEnvDuration("EXPORT_RESYNC_INTERVAL", time.Hour),
		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Cotizaciones"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
	}
}

// IsDevelopment reports whether error responses may carry stack traces.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Location resolves NUMBERING_TIMEZONE, the zone that decides a quote's month.
func (c *Config) Location() (*time.Location, error) {
	if c.NumberingTimezone == "" || c.NumberingTimezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.NumberingTimezone)
}

// Validate validates the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !oneOf(c.AppEnv, "development", "production", "test") {
		errors = append(errors, fmt.Sprintf("invalid APP_ENV '%s': must be one of development, production, test", c.AppEnv))
	}
	if !oneOf(strings.ToLower(c.LogLevel), "debug", "info", "warn", "warning", "error") {
		errors = append(errors, fmt.Sprintf("invalid LOG_LEVEL '%s'", c.LogLevel))
	}
	if !oneOf(strings.ToLower(c.LogFormat), "text", "json") {
		errors = append(errors, fmt.Sprintf("invalid LOG_FORMAT '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if strings.TrimSpace(c.SQLiteDBPath) == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}

	if c.RateLimitRequests < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitRequests))
	}
	if c.RateLimitWindow < time.Second {
		errors = append(errors, fmt.Sprintf("invalid rate limit window %v: must be at least 1 second", c.RateLimitWindow))
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid NUMBERING_TIMEZONE '%s': %v", c.NumberingTimezone, err))
	}
	if c.NumberRetryAttempts < 1 || c.NumberRetryAttempts > 10 {
		errors = append(errors, fmt.Sprintf("invalid number retry attempts %d: must be between 1 and 10", c.NumberRetryAttempts))
	}
	if c.DefaultLaborRate < 0 {
		errors = append(errors, fmt.Sprintf("invalid default labor rate %v: must not be negative", c.DefaultLaborRate))
	}
	if c.DefaultPaintingRate < 0 {
		errors = append(errors, fmt.Sprintf("invalid default painting rate %v: must not be negative", c.DefaultPaintingRate))
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

	switch c.ExportBackend {
	case "memory":
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "GOOGLE_SPREADSHEET_ID is required when using sheets export")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "service account credentials are required when using sheets export")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid export backend '%s': must be 'memory' or 'sheets'", c.ExportBackend))
	}
	if c.ExportResyncInterval != 0 && c.ExportResyncInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid export resync interval %v: must be 0 or at least 1 minute", c.ExportResyncInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
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
