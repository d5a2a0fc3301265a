// Package config loads runtime configuration from environment variables.
// Everything except the secrets has a default so the binary runs locally with a minimal .env.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// ErrMissingOpenAIKey is returned when the openai provider is selected without OPENAI_API_KEY.
var ErrMissingOpenAIKey = errors.New("OPENAI_API_KEY is required when LLM_PROVIDER=openai")

// Config holds runtime configuration for the Safeboy API.
type Config struct {
	// HTTP
	HTTPHost string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	HTTPPort int    `env:"HTTP_PORT" envDefault:"8080"`

	// Storage
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/safeboy.db"`

	// Auth. pkg/auth reads the same variables; declared here so startup fails fast.
	JWTSecret string `env:"JWT_SECRET,notEmpty"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	// LLM
	LLMProvider    string        `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	LLMTemperature float32       `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	LLMMaxTokens   int           `env:"CHAT_MAX_TOKENS" envDefault:"1000"`
	OpenAIAPIKey   string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL  string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel    string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OllamaBaseURL  string        `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	OllamaModel    string        `env:"OLLAMA_CHAT_MODEL" envDefault:"llama3.2:3b"`

	// Prompt budget: total context window of the chat model, in tokens.
	ChatContextTokens int `env:"CHAT_CONTEXT_TOKENS" envDefault:"16000"`

	// Smart search
	ScoringWeightsFile string        `env:"SCORING_WEIGHTS_FILE"`
	RedisURL           string        `env:"REDIS_URL"`
	ExpansionCacheTTL  time.Duration `env:"EXPANSION_CACHE_TTL" envDefault:"24h"`

	// Outbound webhooks (n8n)
	N8NWebhookURL string `env:"N8N_WEBHOOK_URL"`
}

// Load parses the environment into a Config and validates provider settings.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field rules that struct tags cannot express.
func (c Config) Validate() error {
	switch strings.ToLower(c.LLMProvider) {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return ErrMissingOpenAIKey
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("config: unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.ChatContextTokens <= c.LLMMaxTokens {
		return fmt.Errorf("config: CHAT_CONTEXT_TOKENS (%d) must exceed CHAT_MAX_TOKENS (%d)", c.ChatContextTokens, c.LLMMaxTokens)
	}
	return nil
}
