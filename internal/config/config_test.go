package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_APP_TOKEN", "xapp-test")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Port)
	}
	if !cfg.SocketMode() {
		t.Error("Expected socket mode by default")
	}
	if cfg.LLM.Provider != ProviderAnthropic || cfg.LLM.Anthropic.Model != "claude-opus-4-5" {
		t.Errorf("Unexpected LLM defaults %+v", cfg.LLM)
	}
	if cfg.Generation.Timeout != 45*time.Second || cfg.Generation.Attempts != 1 || cfg.Generation.RatePerMinute != 0 {
		t.Errorf("Unexpected generation defaults %+v", cfg.Generation)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("Expected 24h TTL, got %s", cfg.SessionTTL)
	}
	if cfg.Commands.Coach != "/maven" || cfg.Commands.Guide != "/maven-pdf" {
		t.Errorf("Unexpected commands %+v", cfg.Commands)
	}
	if cfg.DBPath != "" {
		t.Errorf("Expected memory store by default, got %s", cfg.DBPath)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("Expected info level, got %s", cfg.LogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SLACK_MODE", "HTTP")
	t.Setenv("SLACK_SIGNING_SECRET", "secret")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GENERATION_TIMEOUT_SECONDS", "10")
	t.Setenv("GENERATION_RATE_PER_MINUTE", "3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SESSION_TTL_HOURS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.SocketMode() {
		t.Error("Expected http mode")
	}
	if cfg.LLM.Provider != ProviderOpenAI {
		t.Errorf("Expected openai, got %s", cfg.LLM.Provider)
	}
	if cfg.Generation.Timeout != 10*time.Second || cfg.Generation.RatePerMinute != 3 {
		t.Errorf("Unexpected generation config %+v", cfg.Generation)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("Expected debug level, got %s", cfg.LogLevel)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("Expected fallback TTL, got %s", cfg.SessionTTL)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:       "8080",
			Slack:      SlackConfig{BotToken: "b", AppToken: "a", Mode: ModeSocket},
			LLM:        LLMConfig{Provider: ProviderAnthropic, Anthropic: ProviderConfig{APIKey: "k"}},
			Generation: GenerationConfig{Attempts: 1},
			Commands:   CommandConfig{Coach: "/maven", Guide: "/maven-pdf"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing bot token", func(c *Config) { c.Slack.BotToken = "" }, "SLACK_BOT_TOKEN"},
		{"socket without app token", func(c *Config) { c.Slack.AppToken = "" }, "SLACK_APP_TOKEN"},
		{"http without secret", func(c *Config) { c.Slack.Mode = ModeHTTP }, "SLACK_SIGNING_SECRET"},
		{"unknown mode", func(c *Config) { c.Slack.Mode = "rtm" }, "SLACK_MODE"},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "cohere" }, "LLM_PROVIDER"},
		{"openai without key", func(c *Config) { c.LLM.Provider = ProviderOpenAI }, "OPENAI_API_KEY"},
		{"zero attempts", func(c *Config) { c.Generation.Attempts = 0 }, "GENERATION_ATTEMPTS"},
		{"same commands", func(c *Config) { c.Commands.Guide = "/maven" }, "must differ"},
		{"command without slash", func(c *Config) { c.Commands.Coach = "maven" }, "must start with /"},
	}

	base := valid()
	if err := base.Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
