// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Slack connection modes.
const (
	ModeSocket = "socket"
	ModeHTTP   = "http"
)

// LLM providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config holds all application configuration.
type Config struct {
	Port       string
	LogLevel   slog.Level
	DBPath     string // empty keeps sessions in memory
	SessionTTL time.Duration
	TopicsPath string // empty uses the embedded catalog
	Slack      SlackConfig
	LLM        LLMConfig
	Generation GenerationConfig
	Commands   CommandConfig
}

// SlackConfig holds Slack credentials and transport settings.
type SlackConfig struct {
	BotToken      string
	AppToken      string
	SigningSecret string
	Mode          string
	APIURL        string
}

// LLMConfig selects and configures the text-generation provider.
type LLMConfig struct {
	Provider  string
	BaseURL   string
	Anthropic ProviderConfig
	OpenAI    ProviderConfig
}

// ProviderConfig is one provider's credentials.
type ProviderConfig struct {
	APIKey string
	Model  string
}

// GenerationConfig is the caller-side policy around generation calls.
type GenerationConfig struct {
	Timeout       time.Duration
	Attempts      int
	RatePerMinute int // 0 disables per-user limiting
}

// CommandConfig names the two slash commands.
type CommandConfig struct {
	Coach string
	Guide string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	timeoutSeconds := getEnvInt("GENERATION_TIMEOUT_SECONDS", 45)
	if timeoutSeconds <= 0 {
		timeoutSeconds = 45
	}
	ttlHours := getEnvInt("SESSION_TTL_HOURS", 24)
	if ttlHours <= 0 {
		ttlHours = 24
	}

	cfg := &Config{
		Port:       getEnv("PORT", "8080"),
		LogLevel:   parseLevel(getEnv("LOG_LEVEL", "info")),
		DBPath:     getEnv("DB_PATH", ""),
		SessionTTL: time.Duration(ttlHours) * time.Hour,
		TopicsPath: getEnv("TOPICS_PATH", ""),
		Slack: SlackConfig{
			BotToken:      getEnv("SLACK_BOT_TOKEN", ""),
			AppToken:      getEnv("SLACK_APP_TOKEN", ""),
			SigningSecret: getEnv("SLACK_SIGNING_SECRET", ""),
			Mode:          strings.ToLower(getEnv("SLACK_MODE", ModeSocket)),
			APIURL:        getEnv("SLACK_API_URL", "https://slack.com/api/"),
		},
		LLM: LLMConfig{
			Provider: strings.ToLower(getEnv("LLM_PROVIDER", ProviderAnthropic)),
			BaseURL:  getEnv("LLM_BASE_URL", ""),
			Anthropic: ProviderConfig{
				APIKey: getEnv("ANTHROPIC_API_KEY", ""),
				Model:  getEnv("ANTHROPIC_MODEL", "claude-opus-4-5"),
			},
			OpenAI: ProviderConfig{
				APIKey: getEnv("OPENAI_API_KEY", ""),
				Model:  getEnv("OPENAI_MODEL", "gpt-4o"),
			},
		},
		Generation: GenerationConfig{
			Timeout:       time.Duration(timeoutSeconds) * time.Second,
			Attempts:      getEnvInt("GENERATION_ATTEMPTS", 1),
			RatePerMinute: getEnvInt("GENERATION_RATE_PER_MINUTE", 0),
		},
		Commands: CommandConfig{
			Coach: getEnv("COACH_COMMAND", "/maven"),
			Guide: getEnv("GUIDE_COMMAND", "/maven-pdf"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Slack.BotToken == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN is required")
	}
	switch c.Slack.Mode {
	case ModeSocket:
		if c.Slack.AppToken == "" {
			return fmt.Errorf("SLACK_APP_TOKEN is required in socket mode")
		}
	case ModeHTTP:
		if c.Slack.SigningSecret == "" {
			return fmt.Errorf("SLACK_SIGNING_SECRET is required in http mode")
		}
	default:
		return fmt.Errorf("unsupported SLACK_MODE: %s", c.Slack.Mode)
	}
	switch c.LLM.Provider {
	case ProviderAnthropic:
		if c.LLM.Anthropic.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case ProviderOpenAI:
		if c.LLM.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER: %s", c.LLM.Provider)
	}
	if c.Generation.Attempts <= 0 {
		return fmt.Errorf("GENERATION_ATTEMPTS must be > 0")
	}
	if c.Generation.RatePerMinute < 0 {
		return fmt.Errorf("GENERATION_RATE_PER_MINUTE must be >= 0")
	}
	if !strings.HasPrefix(c.Commands.Coach, "/") || !strings.HasPrefix(c.Commands.Guide, "/") {
		return fmt.Errorf("COACH_COMMAND and GUIDE_COMMAND must start with /")
	}
	if c.Commands.Coach == c.Commands.Guide {
		return fmt.Errorf("COACH_COMMAND and GUIDE_COMMAND must differ")
	}
	return nil
}

// SocketMode reports whether events arrive over Socket Mode.
func (c *Config) SocketMode() bool {
	return c.Slack.Mode == ModeSocket
}

func parseLevel(value string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
