// Package config loads application configuration from environment variables.
// All variables use the QUIZ_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Exam    ExamConfig
	AI      AIConfig
	Discord DiscordConfig
	Cache   CacheConfig
	DB      DatabaseConfig
	Log     LogConfig
}

// ExamConfig selects the curriculum and where run snapshots live.
type ExamConfig struct {
	Code           string
	CurriculumPath string
	DataDir        string
	PromptPath     string // optional override dir for the generation prompts
	ShuffleOptions bool
}

// AIConfig holds configuration for the generation providers.
type AIConfig struct {
	Google      GoogleConfig
	OpenAI      OpenAIConfig
	DeepSeek    DeepSeekConfig
	Anthropic   AnthropicConfig
	OpenRouter  OpenRouterConfig
	Ollama      OllamaConfig
	Temperature float64
	MaxTokens   int
}

// GoogleConfig holds Google Gemini provider settings.
type GoogleConfig struct {
	APIKey string
	Model  string
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// DeepSeekConfig holds DeepSeek provider settings (OpenAI-compatible).
type DeepSeekConfig struct {
	APIKey string
	Model  string
}

// AnthropicConfig holds Anthropic Claude provider settings.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// OpenRouterConfig holds OpenRouter provider settings (OpenAI-compatible).
type OpenRouterConfig struct {
	APIKey string
	Model  string
}

// OllamaConfig holds settings for a local Ollama server.
type OllamaConfig struct {
	Enabled bool
	URL     string
	Model   string
}

// DiscordConfig holds Discord delivery settings. The bot token is optional;
// without it reactions are neither seeded nor read.
type DiscordConfig struct {
	WebhookURL string
	BotToken   string
	APIBase    string
}

// CacheConfig holds Redis settings for the posted-quiz ledger. An empty URL
// disables the ledger.
type CacheConfig struct {
	URL            string
	KeyPrefix      string
	LedgerTTLHours int
}

// LedgerTTL returns the ledger retention as a duration.
func (c CacheConfig) LedgerTTL() time.Duration {
	return time.Duration(c.LedgerTTLHours) * time.Hour
}

// DatabaseConfig holds PostgreSQL settings for the run history. An empty URL
// disables it.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with QUIZ_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Exam: ExamConfig{
			Code:           envStr("QUIZ_EXAM_CODE", "PDE"),
			CurriculumPath: envStr("QUIZ_CURRICULUM_PATH", "./data/exam-domains"),
			DataDir:        envStr("QUIZ_DATA_DIR", "./data"),
			PromptPath:     envStr("QUIZ_PROMPT_PATH", ""),
			ShuffleOptions: envBool("QUIZ_SHUFFLE_OPTIONS", true),
		},
		AI: AIConfig{
			Google: GoogleConfig{
				APIKey: envStr("QUIZ_AI_GOOGLE_API_KEY", ""),
				Model:  envStr("QUIZ_AI_GOOGLE_MODEL", ""),
			},
			OpenAI: OpenAIConfig{
				APIKey:  envStr("QUIZ_AI_OPENAI_API_KEY", ""),
				Model:   envStr("QUIZ_AI_OPENAI_MODEL", ""),
				BaseURL: envStr("QUIZ_AI_OPENAI_BASE_URL", ""),
			},
			DeepSeek: DeepSeekConfig{
				APIKey: envStr("QUIZ_AI_DEEPSEEK_API_KEY", ""),
				Model:  envStr("QUIZ_AI_DEEPSEEK_MODEL", ""),
			},
			Anthropic: AnthropicConfig{
				APIKey: envStr("QUIZ_AI_ANTHROPIC_API_KEY", ""),
				Model:  envStr("QUIZ_AI_ANTHROPIC_MODEL", ""),
			},
			OpenRouter: OpenRouterConfig{
				APIKey: envStr("QUIZ_AI_OPENROUTER_API_KEY", ""),
				Model:  envStr("QUIZ_AI_OPENROUTER_MODEL", ""),
			},
			Ollama: OllamaConfig{
				Enabled: envBool("QUIZ_AI_OLLAMA_ENABLED", false),
				URL:     envStr("QUIZ_AI_OLLAMA_URL", "http://localhost:11434"),
				Model:   envStr("QUIZ_AI_OLLAMA_MODEL", ""),
			},
			Temperature: envFloat("QUIZ_AI_TEMPERATURE", 0.7),
			MaxTokens:   envInt("QUIZ_AI_MAX_TOKENS", 2048),
		},
		Discord: DiscordConfig{
			WebhookURL: envStr("QUIZ_DISCORD_WEBHOOK_URL", ""),
			BotToken:   envStr("QUIZ_DISCORD_BOT_TOKEN", ""),
			APIBase:    envStr("QUIZ_DISCORD_API_BASE", "https://discord.com/api/v10"),
		},
		Cache: CacheConfig{
			URL:            envStr("QUIZ_CACHE_URL", ""),
			KeyPrefix:      envStr("QUIZ_CACHE_KEY_PREFIX", "quiz:posted:"),
			LedgerTTLHours: envInt("QUIZ_CACHE_LEDGER_TTL_HOURS", 72),
		},
		DB: DatabaseConfig{
			URL:      envStr("QUIZ_DATABASE_URL", ""),
			MaxConns: envInt("QUIZ_DATABASE_MAX_CONNS", 4),
			MinConns: envInt("QUIZ_DATABASE_MIN_CONNS", 1),
		},
		Log: LogConfig{
			Level:  envStr("QUIZ_LOG_LEVEL", "info"),
			Format: envStr("QUIZ_LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate checks settings every command depends on.
func (c *Config) Validate() error {
	if c.Exam.Code == "" {
		return fmt.Errorf("QUIZ_EXAM_CODE is required")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("QUIZ_LOG_LEVEL must be debug, info, warn or error, got %q", c.Log.Level)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("QUIZ_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("QUIZ_AI_TEMPERATURE must be between 0 and 2, got %v", c.AI.Temperature)
	}
	if c.AI.MaxTokens <= 0 {
		return fmt.Errorf("QUIZ_AI_MAX_TOKENS must be positive, got %d", c.AI.MaxTokens)
	}

	if c.Cache.URL != "" && c.Cache.LedgerTTLHours <= 0 {
		return fmt.Errorf("QUIZ_CACHE_LEDGER_TTL_HOURS must be positive, got %d", c.Cache.LedgerTTLHours)
	}

	if c.DB.URL != "" {
		if c.DB.MaxConns <= 0 {
			return fmt.Errorf("QUIZ_DATABASE_MAX_CONNS must be positive, got %d", c.DB.MaxConns)
		}
		if c.DB.MinConns > c.DB.MaxConns {
			return fmt.Errorf("QUIZ_DATABASE_MIN_CONNS (%d) exceeds QUIZ_DATABASE_MAX_CONNS (%d)", c.DB.MinConns, c.DB.MaxConns)
		}
	}

	return nil
}

// ValidateGenerate checks the settings needed to generate a quiz.
func (c *Config) ValidateGenerate() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if !c.HasAIProvider() {
		return fmt.Errorf("at least one AI provider must be configured")
	}
	return nil
}

// ValidatePublish checks the settings needed to deliver to Discord.
func (c *Config) ValidatePublish() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Discord.WebhookURL == "" {
		return fmt.Errorf("QUIZ_DISCORD_WEBHOOK_URL is required")
	}
	return nil
}

// HasAIProvider returns true if at least one AI provider is configured.
func (c *Config) HasAIProvider() bool {
	return c.AI.Google.APIKey != "" ||
		c.AI.OpenAI.APIKey != "" ||
		c.AI.DeepSeek.APIKey != "" ||
		c.AI.Anthropic.APIKey != "" ||
		c.AI.OpenRouter.APIKey != "" ||
		c.AI.Ollama.Enabled
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}
