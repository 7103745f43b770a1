// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultSystemPrompt is the preamble the original deployment shipped with.
const DefaultSystemPrompt = "Είσαι ένας βοηθητικός και φιλικός chatbot."

// Config holds all configuration for the service.
type Config struct {
	GenerationProviderKey string
	GenerationModel       string
	GenerationTemperature float32
	GenerationTimeout     time.Duration
	MaxReplyTokens        int
	HistoryDepth          int
	SystemPrompt          string

	EventChannelToken         string
	EventChannelWebhookSecret string

	ListenPort int
	DBPath     string
	LogLevel   string
}

// EventChannelEnabled reports whether the Telegram adapter should run.
// An empty token disables the event channel entirely.
func (c *Config) EventChannelEnabled() bool {
	return c.EventChannelToken != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("GENERATION_MODEL", "gpt-4o-mini")
	v.SetDefault("GENERATION_TEMPERATURE", 0.7)
	v.SetDefault("GENERATION_TIMEOUT_SECONDS", 30)
	v.SetDefault("MAX_REPLY_TOKENS", 150)
	v.SetDefault("HISTORY_DEPTH", 5)
	v.SetDefault("SYSTEM_PROMPT", DefaultSystemPrompt)
	v.SetDefault("LISTEN_PORT", 5000)
	v.SetDefault("DB_PATH", "chatbot.db")
	v.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		GenerationProviderKey: v.GetString("GENERATION_PROVIDER_KEY"),
		GenerationModel:       v.GetString("GENERATION_MODEL"),
		GenerationTemperature: float32(v.GetFloat64("GENERATION_TEMPERATURE")),
		GenerationTimeout:     time.Duration(v.GetInt("GENERATION_TIMEOUT_SECONDS")) * time.Second,
		MaxReplyTokens:        v.GetInt("MAX_REPLY_TOKENS"),
		HistoryDepth:          v.GetInt("HISTORY_DEPTH"),
		SystemPrompt:          v.GetString("SYSTEM_PROMPT"),

		EventChannelToken:         v.GetString("EVENT_CHANNEL_TOKEN"),
		EventChannelWebhookSecret: v.GetString("EVENT_CHANNEL_WEBHOOK_SECRET"),

		ListenPort: v.GetInt("LISTEN_PORT"),
		DBPath:     v.GetString("DB_PATH"),
		LogLevel:   v.GetString("LOG_LEVEL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration is present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.GenerationProviderKey == "" {
		errs = append(errs, "GENERATION_PROVIDER_KEY is required")
	}
	if c.HistoryDepth < 0 {
		errs = append(errs, fmt.Sprintf("HISTORY_DEPTH must not be negative, got %d", c.HistoryDepth))
	}
	if c.MaxReplyTokens <= 0 {
		errs = append(errs, fmt.Sprintf("MAX_REPLY_TOKENS must be positive, got %d", c.MaxReplyTokens))
	}
	if c.GenerationTemperature < 0 || c.GenerationTemperature > 2 {
		errs = append(errs, fmt.Sprintf("GENERATION_TEMPERATURE must be within [0, 2], got %g", c.GenerationTemperature))
	}
	if c.GenerationTimeout <= 0 {
		errs = append(errs, "GENERATION_TIMEOUT_SECONDS must be positive")
	}
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		errs = append(errs, fmt.Sprintf("LISTEN_PORT %d is not a valid port", c.ListenPort))
	}
	if c.DBPath == "" {
		errs = append(errs, "DB_PATH must not be empty")
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}
	return nil
}
