// Package config handles application configuration from environment variables
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration
type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	BaseURL         string        `env:"BASE_URL" envDefault:"http://localhost:8080" validate:"required,url"`
	StoreURL        string        `env:"STORE_URL" envDefault:"http://localhost:3000" validate:"required,url"`
	RedisAddr       string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	LinkSecret      string        `env:"LINK_SECRET"`
	SessionLifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"12h" validate:"gt=0"`
	RateLimit       int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120" validate:"gte=0"`

	Log      LogConfig      `envPrefix:"LOG_"`
	Cache    CacheConfig    `envPrefix:"CACHE_"`
	Recombee RecombeeConfig `envPrefix:"RECOMBEE_"`
	Gemini   GeminiConfig   `envPrefix:"GEMINI_"`
	Email    EmailConfig    `envPrefix:"SMTP_"`
}

// LogConfig controls the zerolog output
type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info" validate:"oneof=trace debug info warn error"`
	Format string `env:"FORMAT" envDefault:"json" validate:"oneof=json console"`
}

// CacheConfig selects the recommendation cache backend
type CacheConfig struct {
	Backend string        `env:"BACKEND" envDefault:"memory" validate:"oneof=memory file redis"`
	TTL     time.Duration `env:"TTL" envDefault:"1h" validate:"gt=0"`
	Dir     string        `env:"DIR"`
	// PurgeInterval is how often the memory backend sweeps expired entries
	PurgeInterval time.Duration `env:"PURGE_INTERVAL" envDefault:"5m" validate:"gte=0"`
}

// RecombeeConfig holds Primary provider configuration
type RecombeeConfig struct {
	APIKey  string        `env:"API_KEY"`
	BaseURL string        `env:"BASE_URL" envDefault:"https://rapi.recombee.com/db/default" validate:"required,url"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s" validate:"gt=0"`
}

// GeminiConfig holds Fallback provider configuration
type GeminiConfig struct {
	APIKey     string        `env:"API_KEY"`
	BaseURL    string        `env:"BASE_URL" envDefault:"https://generativelanguage.googleapis.com" validate:"required,url"`
	Path       string        `env:"PATH" envDefault:"/v1/generate"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"15s" validate:"gt=0"`
	PromptPath string        `env:"PROMPT_PATH"`
}

// EmailConfig holds outbound mail settings
type EmailConfig struct {
	Addr string `env:"ADDR" envDefault:"localhost:1025"`
	From string `env:"FROM" envDefault:"no-reply@recogateway.local" validate:"required,email"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// HasRecombee returns true if the Primary provider has a key
func (c *Config) HasRecombee() bool {
	return c.Recombee.APIKey != ""
}

// HasGemini returns true if the Fallback provider has a key
func (c *Config) HasGemini() bool {
	return c.Gemini.APIKey != ""
}

// HasTracking returns true if a tracking database is configured
func (c *Config) HasTracking() bool {
	return c.DatabaseURL != ""
}

// ErrNoLinkSecret is returned by RequireLinkSecret when LINK_SECRET is empty
var ErrNoLinkSecret = errors.New("LINK_SECRET must be set to sign click links")

// RequireLinkSecret fails when click links would be signed with an empty
// key. Processes that mint or verify click links call it at startup.
func (c *Config) RequireLinkSecret() error {
	if c.LinkSecret == "" {
		return ErrNoLinkSecret
	}
	return nil
}

// Validate checks struct rules and the format of any configured API key.
// Missing keys are allowed; they disable the provider.
func (c *Config) Validate() error {
	var errs []error
	if err := validate.Struct(c); err != nil {
		errs = append(errs, err)
	}
	if c.HasRecombee() {
		if err := ValidateRecombeeKey(c.Recombee.APIKey); err != nil {
			errs = append(errs, err)
		}
	}
	if c.HasGemini() {
		if err := ValidateGeminiKey(c.Gemini.APIKey); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
