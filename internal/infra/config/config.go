package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL        string // "memory", postgres://... or sqlite://<path>
	HTTPAddr           string
	TelegramToken      string // Empty disables the bot
	AdminTelegramID    int64
	LogLevel           string
	Environment        string
	CronSpecReport     string
	ReportDir          string
	ImportFile         string // Roster loaded at startup, optional
	SeedSampleData     bool
	ReportNotesPreview int
	Organization       string
}

// BotEnabled reports whether the Telegram front end should be started.
func (c *AppConfig) BotEnabled() bool {
	return c.TelegramToken != ""
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = envOr("DATABASE_URL", "memory")
	if cfg.DatabaseURL != "memory" &&
		!strings.HasPrefix(cfg.DatabaseURL, "postgres://") &&
		!strings.HasPrefix(cfg.DatabaseURL, "postgresql://") &&
		!strings.HasPrefix(cfg.DatabaseURL, "sqlite:") {
		return nil, fmt.Errorf("invalid DATABASE_URL %q: expected memory, postgres:// or sqlite://", cfg.DatabaseURL)
	}

	cfg.HTTPAddr = envOr("HTTP_ADDR", ":8080")

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID"); adminIDStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}
	if cfg.TelegramToken != "" && cfg.AdminTelegramID == 0 {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}

	cfg.LogLevel = strings.ToLower(envOr("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(envOr("ENVIRONMENT", "development"))

	cfg.CronSpecReport = envOr("CRON_SPEC_REPORT", "0 20 * * *") // Default: 8 PM daily
	cfg.ReportDir = envOr("REPORT_DIR", "reports")
	cfg.ImportFile = os.Getenv("IMPORT_FILE")
	cfg.Organization = envOr("ORGANIZATION", "COOPERENKA")

	if v := os.Getenv("SEED_SAMPLE_DATA"); v != "" {
		cfg.SeedSampleData, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SEED_SAMPLE_DATA: %w", err)
		}
	}

	cfg.ReportNotesPreview = 30
	if v := os.Getenv("REPORT_NOTES_PREVIEW"); v != "" {
		cfg.ReportNotesPreview, err = strconv.Atoi(v)
		if err != nil || cfg.ReportNotesPreview <= 0 {
			return nil, fmt.Errorf("invalid REPORT_NOTES_PREVIEW %q: must be a positive integer", v)
		}
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
