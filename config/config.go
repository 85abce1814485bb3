package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabasePath  string // sqlite db holding all durable records
	LLMProvider   string // anthropic, openai, ollama
	AnthropicKey  string
	OpenAIKey     string
	LLMModel      string
	OllamaBaseURL string
	InferenceURL  string // on-device model runner endpoint; empty disables it
	WidgetWebhook string // refresh signal for the widget surface; empty disables it
	CricketAPIURL string
	CricketAPIKey string
	SyncCron      string // widget re-evaluation schedule
	InsightCron   string // weekly insight schedule
}

// ConfigDir returns ~/.unapp, the home for config and the default database.
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".unapp")
}

// ConfigFile returns the path to the persistent env-style config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config")
}

func Load() *Config {
	_ = godotenv.Load()             // ignore error if no .env
	_ = godotenv.Load(ConfigFile()) // installed config; .env takes precedence

	return &Config{
		DatabasePath:  envOr("DATABASE_PATH", "./unapp.db"),
		LLMProvider:   envOr("LLM_PROVIDER", "anthropic"),
		AnthropicKey:  os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		LLMModel:      os.Getenv("LLM_MODEL"),
		OllamaBaseURL: envOr("OLLAMA_BASE_URL", "http://localhost:11434/v1"),
		InferenceURL:  os.Getenv("UNAPP_INFERENCE_URL"),
		WidgetWebhook: os.Getenv("UNAPP_WIDGET_WEBHOOK"),
		CricketAPIURL: envOr("CRICKET_API_URL", "https://api.cricapi.com/v1/currentMatches"),
		CricketAPIKey: os.Getenv("CRICKET_API_KEY"),
		SyncCron:      envOr("UNAPP_SYNC_CRON", "*/15 * * * *"),
		InsightCron:   envOr("UNAPP_INSIGHT_CRON", "0 8 * * 1"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
