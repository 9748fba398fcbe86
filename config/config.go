package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment variables or .env file.
//
// It is composed of smaller structs that represent different concerns of the system,
// such as server settings, the Notion data source, and the optional snapshot cache.
//
// Example ENV equivalent:
//
//	PORT=3000
//	NOTION_TOKEN=secret_xxx
//	NOTION_DB_ID=0123456789abcdef0123456789abcdef
//	AMOUNT_PROP=Amount
//	CATEGORY_PROP=Account
//	REDIS_URL=redis://localhost:6379/0
//	CACHE_TTL=30s
type Config struct {
	Server ServerConfig // HTTP server configuration
	Notion NotionConfig // Notion data source settings
	Cache  CacheConfig  // Optional Redis snapshot cache
	Log    LogConfig    // Logger settings
}

// ServerConfig holds HTTP server settings.
//
// Fields:
//   - Port: TCP port the HTTP server listens on (e.g., "3000").
//   - RequestTimeout: per-request deadline; zero disables it.
//   - RateLimitPerMinute: requests allowed per client IP per minute.
//   - CoalesceRequests: share one Notion fetch between concurrent requests.
type ServerConfig struct {
	Port               string
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	CoalesceRequests   bool
}

// NotionConfig defines how the Notion database is queried and aggregated.
//
// Fields:
//   - Token: integration token sent as a Bearer credential.
//   - DatabaseID: database whose rows are aggregated.
//   - AmountProp: numeric property summed into the total.
//   - CategoryProp: single-select property used for grouping.
//   - BaseURL, Version: API endpoint and Notion-Version header.
//   - Timeout: per-call HTTP timeout.
//   - MaxAttempts, InitialBackoff, MaxBackoff: retry policy for transient errors.
type NotionConfig struct {
	Token          string
	DatabaseID     string
	AmountProp     string
	CategoryProp   string
	BaseURL        string
	Version        string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// CacheConfig controls the Redis snapshot cache. It is active only when
// both URL and TTL are set.
type CacheConfig struct {
	URL string
	TTL time.Duration
}

// Enabled reports whether the snapshot cache should be wired.
func (c CacheConfig) Enabled() bool {
	return c.URL != "" && c.TTL > 0
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Pretty bool
}

// Load builds a Config by reading from .env file or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Behavior:
//   - Uses a private viper instance so repeated calls (tests) start clean.
//   - Calls validate() and returns an error naming every missing variable.
func Load() (Config, error) {
	v := viper.New()

	// Default values
	v.SetDefault("PORT", "3000")
	v.SetDefault("REQUEST_TIMEOUT", "0s")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
	v.SetDefault("COALESCE_REQUESTS", true)

	v.SetDefault("AMOUNT_PROP", "Amount")
	v.SetDefault("CATEGORY_PROP", "Account")
	v.SetDefault("NOTION_API_URL", "https://api.notion.com")
	v.SetDefault("NOTION_VERSION", "2022-06-28")
	v.SetDefault("NOTION_TIMEOUT", "30s")
	v.SetDefault("NOTION_MAX_ATTEMPTS", 3)
	v.SetDefault("NOTION_INITIAL_BACKOFF", "1s")
	v.SetDefault("NOTION_MAX_BACKOFF", "30s")

	v.SetDefault("CACHE_TTL", "0s")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)

	// Optionally read from .env if present (common in local dev)
	v.SetConfigFile(".env")
	_ = v.ReadInConfig() // ignore error if no .env

	// Read environment variables automatically
	v.AutomaticEnv()

	cfg := Config{
		Server: ServerConfig{
			Port:               v.GetString("PORT"),
			RequestTimeout:     v.GetDuration("REQUEST_TIMEOUT"),
			RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
			CoalesceRequests:   v.GetBool("COALESCE_REQUESTS"),
		},
		Notion: NotionConfig{
			Token:          strings.TrimSpace(v.GetString("NOTION_TOKEN")),
			DatabaseID:     strings.TrimSpace(v.GetString("NOTION_DB_ID")),
			AmountProp:     v.GetString("AMOUNT_PROP"),
			CategoryProp:   v.GetString("CATEGORY_PROP"),
			BaseURL:        strings.TrimRight(v.GetString("NOTION_API_URL"), "/"),
			Version:        v.GetString("NOTION_VERSION"),
			Timeout:        v.GetDuration("NOTION_TIMEOUT"),
			MaxAttempts:    v.GetInt("NOTION_MAX_ATTEMPTS"),
			InitialBackoff: v.GetDuration("NOTION_INITIAL_BACKOFF"),
			MaxBackoff:     v.GetDuration("NOTION_MAX_BACKOFF"),
		},
		Cache: CacheConfig{
			URL: v.GetString("REDIS_URL"),
			TTL: v.GetDuration("CACHE_TTL"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Pretty: v.GetBool("LOG_PRETTY"),
		},
	}

	// Validate critical fields
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate ensures required variables are present and values are usable.
//
// Behavior:
//   - Checks each critical field of Config.
//   - Collects missing ones in a slice so the operator sees all of them at once.
func (c Config) validate() error {
	var missing []string

	if c.Notion.Token == "" {
		missing = append(missing, "NOTION_TOKEN")
	}
	if c.Notion.DatabaseID == "" {
		missing = append(missing, "NOTION_DB_ID")
	}
	if c.Server.Port == "" {
		missing = append(missing, "PORT")
	}
	if c.Notion.AmountProp == "" {
		missing = append(missing, "AMOUNT_PROP")
	}
	if c.Notion.CategoryProp == "" {
		missing = append(missing, "CATEGORY_PROP")
	}
	if c.Notion.BaseURL == "" {
		missing = append(missing, "NOTION_API_URL")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}

	if c.Notion.MaxAttempts < 1 {
		return fmt.Errorf("NOTION_MAX_ATTEMPTS must be >= 1 (got %d)", c.Notion.MaxAttempts)
	}
	if c.Server.RateLimitPerMinute < 1 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be >= 1 (got %d)", c.Server.RateLimitPerMinute)
	}
	return nil
}
