// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultAPIBaseURL is where the expense API listens in local development.
	DefaultAPIBaseURL = "http://127.0.0.1:5000"
	// DefaultAPITimeout bounds each request to the expense API.
	DefaultAPITimeout = 30 * time.Second
	// DefaultServiceName identifies this client in telemetry.
	DefaultServiceName = "expense-client"
)

// Config holds all configuration for the application.
type Config struct {
	APIBaseURL string
	APITimeout time.Duration

	LogLevel  string
	LogFormat string

	TelegramBotToken     string
	WhitelistedUserIDs   []int64
	WhitelistedUsernames []string
	GeminiAPIKey         string

	OTelExporter     string
	OTelProtocol     string
	OTelServiceName  string
	OTelOTLPEndpoint string
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIBaseURL:       strings.TrimRight(fallback(os.Getenv("API_BASE_URL"), DefaultAPIBaseURL), "/"),
		APITimeout:       DefaultAPITimeout,
		LogLevel:         fallback(os.Getenv("LOG_LEVEL"), "info"),
		LogFormat:        strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))),
		TelegramBotToken: strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		GeminiAPIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		OTelExporter:     strings.ToLower(strings.TrimSpace(os.Getenv("OTEL_EXPORTER"))),
		OTelProtocol:     strings.ToLower(fallback(os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"), "grpc")),
		OTelServiceName:  fallback(os.Getenv("OTEL_SERVICE_NAME"), DefaultServiceName),
		OTelOTLPEndpoint: strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
	}

	var errs []string

	if timeoutStr := strings.TrimSpace(os.Getenv("API_TIMEOUT")); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil || timeout < 0 {
			errs = append(errs, fmt.Sprintf("API_TIMEOUT %q is not a valid non-negative duration", timeoutStr))
		} else {
			cfg.APITimeout = timeout
		}
	}

	whitelistStr := os.Getenv("WHITELISTED_USER_IDS")
	if whitelistStr != "" {
		for idStr := range strings.SplitSeq(whitelistStr, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				continue
			}
			cfg.WhitelistedUserIDs = append(cfg.WhitelistedUserIDs, id)
		}
	}

	whitelistUsernames := os.Getenv("WHITELISTED_USERNAMES")
	if whitelistUsernames != "" {
		for username := range strings.SplitSeq(whitelistUsernames, ",") {
			username = strings.TrimSpace(username)
			if username == "" {
				continue
			}
			username = strings.TrimPrefix(username, "@")
			cfg.WhitelistedUsernames = append(cfg.WhitelistedUsernames, username)
		}
	}

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return cfg, nil
}

// validate checks settings shared by every front-end.
func (c *Config) validate() []string {
	var errs []string

	if parsed, err := url.Parse(c.APIBaseURL); err != nil {
		errs = append(errs, fmt.Sprintf("invalid API_BASE_URL %q: %v", c.APIBaseURL, err))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errs = append(errs, fmt.Sprintf("invalid API_BASE_URL scheme %q: must be http or https", parsed.Scheme))
	} else if parsed.Host == "" {
		errs = append(errs, "API_BASE_URL must include a host")
	}

	switch c.OTelExporter {
	case "", "none", "stdout", "otlp":
	default:
		errs = append(errs, fmt.Sprintf("invalid OTEL_EXPORTER %q: must be one of stdout, otlp, none", c.OTelExporter))
	}

	if c.OTelExporter == "otlp" && c.OTelProtocol != "grpc" && c.OTelProtocol != "http" {
		errs = append(errs, fmt.Sprintf("invalid OTEL_EXPORTER_OTLP_PROTOCOL %q: must be grpc or http", c.OTelProtocol))
	}

	return errs
}

// ValidateBot checks the settings only the Telegram front-end needs.
func (c *Config) ValidateBot() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("configuration validation failed:\n  - TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

// HasWhitelist reports whether access to the bot is restricted.
func (c *Config) HasWhitelist() bool {
	return len(c.WhitelistedUserIDs) > 0 || len(c.WhitelistedUsernames) > 0
}

// IsUserWhitelisted checks if a Telegram user ID or username may use the bot.
// Without a configured whitelist every user is allowed.
func (c *Config) IsUserWhitelisted(userID int64, username string) bool {
	if !c.HasWhitelist() {
		return true
	}

	if slices.Contains(c.WhitelistedUserIDs, userID) {
		return true
	}

	// Username whitelist is case-insensitive.
	if username != "" {
		username = strings.TrimPrefix(username, "@")
		for _, whitelisted := range c.WhitelistedUsernames {
			if strings.EqualFold(whitelisted, username) {
				return true
			}
		}
	}

	return false
}

// TelemetryEnabled reports whether an exporter is configured.
func (c *Config) TelemetryEnabled() bool {
	return c.OTelExporter != "" && c.OTelExporter != "none"
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}
