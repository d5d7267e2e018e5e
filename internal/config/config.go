// Package config provides configuration types, loading, and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Identity provider kinds.
const (
	ProviderSupabase = "supabase"
	ProviderDiscord  = "discord"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Identity  IdentityConfig  `yaml:"identity" json:"identity"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Development exposes error details in 500 responses.
	Development bool `yaml:"development" json:"development"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port" json:"port"`
	// PublicURL is the frontend origin used for redirects when the
	// request carries no Origin header.
	PublicURL   string        `yaml:"public_url" json:"public_url"`
	CORSOrigins []string      `yaml:"cors_origins" json:"cors_origins"`
	ReadTimeout time.Duration `yaml:"read_timeout" json:"read_timeout"`
	// WriteTimeout also bounds each request through the chi timeout middleware.
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

// IdentityConfig selects and configures the external identity provider.
type IdentityConfig struct {
	Provider string `yaml:"provider" json:"provider"`
	// RedirectURL overrides the OAuth redirect target for every sign-in flow.
	RedirectURL string        `yaml:"redirect_url" json:"redirect_url"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`

	SupabaseURL        string `yaml:"supabase_url" json:"supabase_url"`
	SupabaseServiceKey string `yaml:"supabase_service_key" json:"-"`

	DiscordClientID     string `yaml:"discord_client_id" json:"discord_client_id"`
	DiscordClientSecret string `yaml:"discord_client_secret" json:"-"`
	DiscordAPIURL       string `yaml:"discord_api_url" json:"discord_api_url"`
	DiscordAuthorizeURL string `yaml:"discord_authorize_url" json:"discord_authorize_url"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// RateLimitConfig limits the code generation endpoints per client IP.
// A zero Requests value disables limiting.
type RateLimitConfig struct {
	Requests int           `yaml:"requests" json:"requests"`
	Window   time.Duration `yaml:"window" json:"window"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			PublicURL:    "http://localhost:3000",
			CORSOrigins:  []string{"*"},
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Identity: IdentityConfig{
			Provider:            ProviderSupabase,
			Timeout:             10 * time.Second,
			DiscordAPIURL:       "https://discord.com/api",
			DiscordAuthorizeURL: "https://discord.com/oauth2/authorize",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			Requests: 30,
			Window:   time.Minute,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// CONFIG_FILE, and environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	// Server
	c.Server.Port = getEnvInt("PORT", c.Server.Port)
	c.Server.PublicURL = getEnv("PUBLIC_URL", c.Server.PublicURL)
	c.Server.CORSOrigins = getEnvList("CORS_ORIGINS", c.Server.CORSOrigins)

	// Identity provider
	c.Identity.Provider = strings.ToLower(getEnv("IDENTITY_PROVIDER", c.Identity.Provider))
	c.Identity.RedirectURL = getEnv("OAUTH_REDIRECT_URL", getEnv("SUPABASE_REDIRECT_URL", c.Identity.RedirectURL))
	c.Identity.Timeout = getEnvDuration("PROVIDER_TIMEOUT", c.Identity.Timeout)
	c.Identity.SupabaseURL = strings.TrimRight(getEnv("SUPABASE_URL", c.Identity.SupabaseURL), "/")
	c.Identity.SupabaseServiceKey = getEnv("SUPABASE_SERVICE_KEY", c.Identity.SupabaseServiceKey)
	c.Identity.DiscordClientID = getEnv("DISCORD_CLIENT_ID", c.Identity.DiscordClientID)
	c.Identity.DiscordClientSecret = getEnv("DISCORD_CLIENT_SECRET", c.Identity.DiscordClientSecret)
	c.Identity.DiscordAPIURL = strings.TrimRight(getEnv("DISCORD_API_URL", c.Identity.DiscordAPIURL), "/")
	c.Identity.DiscordAuthorizeURL = getEnv("DISCORD_AUTHORIZE_URL", c.Identity.DiscordAuthorizeURL)

	// Logging
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
	c.Logging.File = getEnv("LOG_FILE", c.Logging.File)

	// Rate limiting
	c.RateLimit.Requests = getEnvInt("RATE_LIMIT_REQUESTS", c.RateLimit.Requests)
	c.RateLimit.Window = getEnvDuration("RATE_LIMIT_WINDOW", c.RateLimit.Window)

	// NODE_ENV is honoured so existing deployments keep their switch.
	env := getEnv("APP_ENV", os.Getenv("NODE_ENV"))
	if env != "" {
		c.Development = strings.EqualFold(env, "development")
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}
	if c.Server.PublicURL == "" {
		return errors.New("public_url cannot be empty")
	}

	switch c.Identity.Provider {
	case ProviderSupabase:
		if c.Identity.SupabaseURL == "" {
			return errors.New("SUPABASE_URL is required for the supabase identity provider")
		}
		if c.Identity.SupabaseServiceKey == "" {
			return errors.New("SUPABASE_SERVICE_KEY is required for the supabase identity provider")
		}
	case ProviderDiscord:
		if c.Identity.DiscordClientID == "" || c.Identity.DiscordClientSecret == "" {
			return errors.New("DISCORD_CLIENT_ID and DISCORD_CLIENT_SECRET are required for the discord identity provider")
		}
	default:
		return fmt.Errorf("unsupported identity provider: %s", c.Identity.Provider)
	}
	if c.Identity.Timeout <= 0 {
		return errors.New("identity provider timeout must be positive")
	}

	// Validate logging level
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate logging format
	switch c.Logging.Format {
	case "text", "json":
		// Valid
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.RateLimit.Requests < 0 {
		return errors.New("rate_limit.requests cannot be negative")
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		return errors.New("rate_limit.window must be positive when rate limiting is enabled")
	}

	return nil
}

// PermissiveCORS reports whether every origin is allowed.
func (c *Config) PermissiveCORS() bool {
	if len(c.Server.CORSOrigins) == 0 {
		return true
	}
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	if len(list) == 0 {
		return defaultValue
	}
	return list
}
