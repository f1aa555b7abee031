package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the game process reads from the environment.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// LLM endpoint (OpenAI-compatible chat completions).
	APIKey    string `env:"SILICONFLOW_API_KEY"`
	BaseURL   string `env:"LLM_BASE_URL" envDefault:"https://api.siliconflow.cn/v1"`
	ModelName string `env:"LLM_MODEL" envDefault:"Qwen/QwQ-32B"`

	// Image generation endpoint. Empty model disables illustrations.
	ImageModel string `env:"IMAGE_MODEL"`
	ImageDir   string `env:"IMAGE_DIR" envDefault:"./images"`

	// Optional session persistence and event broadcasting.
	RedisURL string `env:"REDIS_URL"`

	// Input screening.
	SensitiveWordsDir string `env:"SENSITIVE_WORDS_DIR" envDefault:"./sensitive_words"`
	MaxInputLength    int    `env:"MAX_INPUT_LENGTH" envDefault:"100"`
}

// Load parses configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// SlogLevel maps the configured level string to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
