// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Defaults for optional settings.
const (
	DefaultHTTPAddr         = ":8080"
	DefaultReminderSchedule = "0 9 * * *"
	DefaultReminderTimezone = "UTC"
	DefaultAMQPExchange     = "subday.events"
	DefaultGeminiModel      = "gemini-2.5-flash"

	// MinLogHashSaltLength is the shortest LOG_HASH_SALT accepted.
	MinLogHashSaltLength = 32
)

// Telemetry exporters.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Config holds all configuration for the application.
type Config struct {
	DatabaseURL string
	HTTPAddr    string

	GeminiAPIKey string
	GeminiModel  string

	AuthJWKSURL        string
	AuthHS256Secret    string
	AuthIssuer         string
	AuthAudience       string
	CORSAllowedOrigins []string

	LogLevel    string
	LogFormat   string
	LogHashSalt string

	ReminderEnabled  bool
	ReminderSchedule string
	ReminderTimezone string

	TelegramBotToken string
	AMQPURL          string
	AMQPExchange     string

	OTelExporter     string
	OTelOTLPProtocol string

	// reminderEnabledRaw keeps an unparseable REMINDER_ENABLED for validate.
	reminderEnabledRaw string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		HTTPAddr:         envOr("HTTP_ADDR", DefaultHTTPAddr),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      envOr("GEMINI_MODEL", DefaultGeminiModel),
		AuthJWKSURL:      os.Getenv("AUTH_JWKS_URL"),
		AuthHS256Secret:  os.Getenv("AUTH_HS256_SECRET"),
		AuthIssuer:       os.Getenv("AUTH_ISSUER"),
		AuthAudience:     os.Getenv("AUTH_AUDIENCE"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		LogFormat:        envOr("LOG_FORMAT", "console"),
		LogHashSalt:      os.Getenv("LOG_HASH_SALT"),
		ReminderSchedule: envOr("REMINDER_SCHEDULE", DefaultReminderSchedule),
		ReminderTimezone: envOr("REMINDER_TIMEZONE", DefaultReminderTimezone),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		AMQPURL:          os.Getenv("AMQP_URL"),
		AMQPExchange:     envOr("AMQP_EXCHANGE", DefaultAMQPExchange),
		OTelExporter:     strings.ToLower(envOr("OTEL_EXPORTER", ExporterNone)),
		OTelOTLPProtocol: strings.ToLower(envOr("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
	}

	cfg.ReminderEnabled = true
	if v := os.Getenv("REMINDER_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			cfg.reminderEnabledRaw = v
		} else {
			cfg.ReminderEnabled = b
		}
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for origin := range strings.SplitSeq(origins, ",") {
			origin = strings.TrimSpace(origin)
			if origin == "" {
				continue
			}
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	// Validate required configuration.
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// validate checks that all required configuration is present.
func (c *Config) validate() error {
	var errs []string

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	if c.AuthJWKSURL == "" && c.AuthHS256Secret == "" {
		errs = append(errs, "one of AUTH_JWKS_URL or AUTH_HS256_SECRET is required")
	}

	if c.LogHashSalt != "" && len(c.LogHashSalt) < MinLogHashSaltLength {
		errs = append(errs, fmt.Sprintf("LOG_HASH_SALT must be at least %d characters", MinLogHashSaltLength))
	}

	if c.reminderEnabledRaw != "" {
		errs = append(errs, fmt.Sprintf("REMINDER_ENABLED %q must be a boolean", c.reminderEnabledRaw))
	}

	if _, err := time.LoadLocation(c.ReminderTimezone); err != nil {
		errs = append(errs, fmt.Sprintf("REMINDER_TIMEZONE %q is not a valid timezone", c.ReminderTimezone))
	}

	if _, err := cron.ParseStandard(c.ReminderSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("REMINDER_SCHEDULE %q is not a valid cron expression", c.ReminderSchedule))
	}

	switch c.OTelExporter {
	case ExporterNone, ExporterStdout, ExporterOTLP:
	default:
		errs = append(errs, fmt.Sprintf("OTEL_EXPORTER %q must be one of none, stdout, otlp", c.OTelExporter))
	}

	if c.OTelOTLPProtocol != "grpc" && c.OTelOTLPProtocol != "http" {
		errs = append(errs, fmt.Sprintf("OTEL_EXPORTER_OTLP_PROTOCOL %q must be grpc or http", c.OTelOTLPProtocol))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Location returns the reminder timezone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReminderTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AssistantEnabled reports whether a Gemini key is configured.
func (c *Config) AssistantEnabled() bool {
	return c.GeminiAPIKey != ""
}
