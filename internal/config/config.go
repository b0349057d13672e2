package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName string
	AppEnv  string
	Port    string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Language model (any OpenAI-compatible endpoint)
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMTimeout     time.Duration
	LLMTemperature float64
	LLMMaxRetries  int

	// Check-ins
	CheckInInterval       time.Duration
	SessionIdleTimeout    time.Duration
	DeadlineWarningWindow time.Duration

	// Notifications (optional; without an API key notifications are only logged)
	NotifyEmailTo string
	EmailFrom     string
	ResendAPIKey  string

	// Observability (optional)
	SentryDSN string

	// Transcript archive (optional, S3-compatible)
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string

	// One-time import of the legacy flat JSON store
	LegacyImportPath string
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName: envString("APP_NAME", "Gatekeeper"),
		AppEnv:  envString("APP_ENV", "development"),
		Port:    envString("PORT", "8090"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/gatekeeper.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),

		// Language model
		LLMBaseURL:     envString("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:      envString("LLM_API_KEY", ""),
		LLMModel:       envString("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:     envDuration("LLM_TIMEOUT", 45*time.Second),
		LLMTemperature: envFloat("LLM_TEMPERATURE", 0.7),
		LLMMaxRetries:  envInt("LLM_MAX_RETRIES", 1), // a single transparent retry

		// Check-ins
		CheckInInterval:       envDuration("CHECKIN_INTERVAL", time.Minute),
		SessionIdleTimeout:    envDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		DeadlineWarningWindow: envDuration("DEADLINE_WARNING_WINDOW", 48*time.Hour),

		// Notifications
		NotifyEmailTo: envString("NOTIFY_EMAIL_TO", ""),
		EmailFrom:     envString("EMAIL_FROM", "gatekeeper@example.com"),
		ResendAPIKey:  envString("RESEND_API_KEY", ""),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Transcript archive
		S3Region:    envString("S3_REGION", ""),
		S3Bucket:    envString("S3_BUCKET", ""),
		S3AccessKey: envString("S3_ACCESS_KEY", ""),
		S3SecretKey: envString("S3_SECRET_KEY", ""),
		S3Endpoint:  envString("S3_ENDPOINT", ""),

		LegacyImportPath: envString("LEGACY_IMPORT_PATH", ""),
	}

	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction refuses to start a production deployment that would
// silently fall back to templated check-ins for every goal.
func validateProduction(cfg *Config) {
	if cfg.LLMAPIKey == "" && cfg.LLMBaseURL == "https://api.openai.com/v1" {
		slog.Error("production deployment requires LLM_API_KEY",
			"hint", "set APP_ENV=development to run with templated check-ins")
		os.Exit(1)
	}
	if cfg.NotifyEmailTo != "" && cfg.ResendAPIKey == "" {
		slog.Error("NOTIFY_EMAIL_TO is set but RESEND_API_KEY is missing")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("config invalid float, using default", "key", key, "value", v, "default", def)
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// ArchiveEnabled reports whether transcripts should be uploaded on close.
func (c *Config) ArchiveEnabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// NotificationsByEmail reports whether due/deadline notices go out by email.
func (c *Config) NotificationsByEmail() bool {
	return c.NotifyEmailTo != "" && envBool("NOTIFY_EMAIL", true)
}
