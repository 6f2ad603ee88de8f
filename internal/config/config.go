package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
	ProviderAgent  LLMProvider = "agent"
)

type StorageKind string

const (
	StorageMem   StorageKind = "mem"
	StorageRedis StorageKind = "redis"
)

type Config struct {
	Discord     DiscordConfig     `yaml:"discord"`
	LLM         LLMConfig         `yaml:"llm"`
	ChatHistory ChatHistoryConfig `yaml:"chatHistory"`
	Tracing     TracingConfig     `yaml:"tracing"`

	// LogFile is the JSONL interaction log; empty disables it.
	LogFile string `yaml:"logFile" env:"LOG_FILE_PATH"`
}

type DiscordConfig struct {
	BotToken string   `yaml:"botToken" env:"DISCORD_BOT_TOKEN"`
	Guilds   []string `yaml:"guilds"`
}

type LLMConfig struct {
	Provider     LLMProvider  `yaml:"provider" env:"LLM_PROVIDER"`
	AgentName    string       `yaml:"agentName"`
	SystemPrompt string       `yaml:"systemPrompt"`
	OpenAI       OpenAIConfig `yaml:"openai"`
	Yandex       YandexConfig `yaml:"yandex"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey" env:"OPENAI_API_KEY"`
	BaseURL string `yaml:"baseURL" env:"OPENAI_BASE_URL"`
	Model   string `yaml:"model" env:"OPENAI_MODEL"`
}

type YandexConfig struct {
	OAuthToken string `yaml:"oauthToken" env:"YANDEX_OAUTH_TOKEN"`
	FolderID   string `yaml:"folderId" env:"YANDEX_FOLDER_ID"`
}

type ChatHistoryConfig struct {
	Storage StorageKind `yaml:"storage" env:"CHAT_HISTORY_STORAGE"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST"`
	Port     int    `yaml:"port" env:"REDIS_PORT"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

// TracingConfig is passed through to the LLM collaborators opaquely; the
// core never interprets it.
type TracingConfig struct {
	Langfuse LangfuseConfig `yaml:"langfuse"`
}

type LangfuseConfig struct {
	SecretKey string `yaml:"secretKey" env:"LANGFUSE_SECRET_KEY"`
	PublicKey string `yaml:"publicKey" env:"LANGFUSE_PUBLIC_KEY"`
	Host      string `yaml:"host" env:"LANGFUSE_HOST"`
}

// Load reads the YAML config file and overlays environment variables on top
// (secrets are usually supplied via env, not the file).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderOpenAI
	}
	if cfg.LLM.OpenAI.Model == "" {
		cfg.LLM.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.LLM.AgentName == "" {
		cfg.LLM.AgentName = "discord-chatter"
	}
	if cfg.ChatHistory.Storage == "" {
		cfg.ChatHistory.Storage = StorageMem
	}
	if cfg.ChatHistory.Redis.Port == 0 {
		cfg.ChatHistory.Redis.Port = 6379
	}
}

func validate(cfg *Config) error {
	if cfg.Discord.BotToken == "" {
		return fmt.Errorf("discord.botToken is required")
	}
	switch cfg.LLM.Provider {
	case ProviderOpenAI, ProviderYandex, ProviderAgent:
	default:
		return fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}
	switch cfg.ChatHistory.Storage {
	case StorageMem:
	case StorageRedis:
		if cfg.ChatHistory.Redis.Host == "" {
			return fmt.Errorf("chatHistory.redis.host is required for redis storage")
		}
	default:
		return fmt.Errorf("unknown chat history storage: %s", cfg.ChatHistory.Storage)
	}
	return nil
}
