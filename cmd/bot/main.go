package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"discord-chatter/internal/config"
	"discord-chatter/internal/discord"
	"discord-chatter/internal/llm"
	"discord-chatter/internal/mcpserver"
	"discord-chatter/internal/session"
	"discord-chatter/internal/storage"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg, err := config.Load(envOr("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newSessionStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init session storage: %v", err)
	}

	var mcpManager *mcpserver.Manager
	if cfg.LLM.Provider == config.ProviderAgent {
		mcpCfg, err := mcpserver.LoadConfig(envOr("MCP_CONFIG_PATH", "mcp.json"))
		if err != nil {
			log.Fatalf("failed to load MCP config: %v", err)
		}
		mcpManager = mcpserver.NewManager(mcpCfg)
		if err := mcpManager.Start(ctx); err != nil {
			log.Fatalf("failed to start MCP servers: %v", err)
		}
		defer func() {
			if err := mcpManager.Stop(); err != nil {
				log.Printf("failed to stop MCP servers: %v", err)
			}
		}()
	}

	interactor, err := llm.NewFactory(cfg, store, mcpManager).CreateInteractor()
	if err != nil {
		log.Fatalf("failed to create llm interactor: %v", err)
	}
	defer closeIfCloser(interactor)
	log.Printf("using llm interactor: %s", interactor.Name())

	if cfg.Tracing.Langfuse.Host != "" {
		log.Printf("langfuse tracing configured (host=%s)", cfg.Tracing.Langfuse.Host)
	}

	var rec storage.Recorder
	if cfg.LogFile != "" {
		fr, err := storage.NewFileRecorder(cfg.LogFile)
		if err != nil {
			log.Printf("failed to init file recorder: %v", err)
		} else {
			rec = fr
		}
	}

	bot, err := discord.New(cfg.Discord.BotToken, interactor, cfg.Discord.Guilds, rec)
	if err != nil {
		log.Fatalf("failed to create bot: %v", err)
	}

	if err := bot.Start(ctx); err != nil {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Printf("Shutting down gracefully...")
}

func newSessionStorage(ctx context.Context, cfg *config.Config) (session.Storage, error) {
	if cfg.ChatHistory.Storage == config.StorageRedis {
		return session.NewRedisStore(ctx, session.RedisConfig{
			Host:     cfg.ChatHistory.Redis.Host,
			Port:     cfg.ChatHistory.Redis.Port,
			Password: cfg.ChatHistory.Redis.Password,
			DB:       cfg.ChatHistory.Redis.DB,
		})
	}
	return session.NewMemoryStore(), nil
}

func closeIfCloser(interactor llm.Interactor) {
	if cl, ok := interactor.(interface{ Close() error }); ok {
		if err := cl.Close(); err != nil {
			log.Printf("failed to close interactor: %v", err)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
