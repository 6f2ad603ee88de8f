package llm

import (
	"fmt"

	"discord-chatter/internal/config"
	"discord-chatter/internal/mcpserver"
	"discord-chatter/internal/session"
)

// Factory builds the interactor selected by configuration.
type Factory struct {
	cfg   *config.Config
	store session.Storage
	mcp   *mcpserver.Manager
}

// NewFactory wires the factory. mcp may be nil unless the agent provider is
// selected.
func NewFactory(cfg *config.Config, store session.Storage, mcp *mcpserver.Manager) *Factory {
	return &Factory{cfg: cfg, store: store, mcp: mcp}
}

func (f *Factory) CreateInteractor() (Interactor, error) {
	llmCfg := f.cfg.LLM
	switch llmCfg.Provider {
	case config.ProviderOpenAI:
		client := NewOpenAI(llmCfg.OpenAI.APIKey, llmCfg.OpenAI.BaseURL, llmCfg.OpenAI.Model)
		return NewChatInteractor(llmCfg.AgentName, client, f.store, llmCfg.SystemPrompt), nil
	case config.ProviderYandex:
		client, err := NewYandex(llmCfg.Yandex.OAuthToken, llmCfg.Yandex.FolderID)
		if err != nil {
			return nil, err
		}
		return NewChatInteractor(llmCfg.AgentName, client, f.store, llmCfg.SystemPrompt), nil
	case config.ProviderAgent:
		if f.mcp == nil {
			return nil, fmt.Errorf("agent provider requires MCP servers")
		}
		client := NewOpenAI(llmCfg.OpenAI.APIKey, llmCfg.OpenAI.BaseURL, llmCfg.OpenAI.Model)
		return NewAgentInteractor(llmCfg.AgentName, client, f.mcp, f.store, llmCfg.SystemPrompt), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", llmCfg.Provider)
	}
}
