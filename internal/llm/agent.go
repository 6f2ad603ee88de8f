package llm

import (
	"context"
	"fmt"
	"log"

	"discord-chatter/internal/mcpserver"
	"discord-chatter/internal/session"
)

// maxToolIterations bounds the generate -> call tools -> generate loop.
const maxToolIterations = 5

// AgentInteractor drives a tool-calling model over the MCP sidecar tool set.
// History is read and written through the same session storage protocol as
// the plain chat interactor.
type AgentInteractor struct {
	name         string
	client       ToolClient
	mcp          *mcpserver.Manager
	store        session.Storage
	systemPrompt string
}

func NewAgentInteractor(name string, client ToolClient, mcp *mcpserver.Manager, store session.Storage, systemPrompt string) *AgentInteractor {
	return &AgentInteractor{
		name:         name,
		client:       client,
		mcp:          mcp,
		store:        store,
		systemPrompt: systemPrompt,
	}
}

func (a *AgentInteractor) Name() string { return a.name }

func (a *AgentInteractor) StartSession(ctx context.Context, sessionID string) error {
	_, err := a.store.CreateSession(ctx, sessionID, a.systemPrompt)
	return err
}

func (a *AgentInteractor) KnownSession(ctx context.Context, sessionID string) bool {
	sess, err := a.store.GetSession(ctx, sessionID)
	if err != nil {
		log.Printf("failed to look up session %s: %v", sessionID, err)
		return false
	}
	return sess != nil
}

func (a *AgentInteractor) SendMessage(ctx context.Context, sessionID, userID, text string) (string, error) {
	sess, err := appendUserMessage(ctx, a.store, sessionID, userID, text)
	if err != nil {
		return "", err
	}

	tools, err := a.availableTools(ctx)
	if err != nil {
		return "", err
	}

	content, err := a.runToolLoop(ctx, historyMessages(sess), tools)
	if err != nil {
		return "", fmt.Errorf("agent run for session %s: %w", sessionID, err)
	}

	return persistReply(ctx, a.store, sessionID, content)
}

func (a *AgentInteractor) availableTools(ctx context.Context) ([]Tool, error) {
	if a.mcp == nil {
		return nil, nil
	}
	infos, err := a.mcp.Tools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list MCP tools: %w", err)
	}
	tools := make([]Tool, 0, len(infos))
	for _, info := range infos {
		tools = append(tools, Tool{
			Type: "function",
			Function: Function{
				Name:        info.Name,
				Description: info.Description,
				Parameters:  info.InputSchema,
			},
		})
	}
	return tools, nil
}

// runToolLoop generates over msgs, executing requested tool calls and feeding
// their results back, until the model produces a final answer or the
// iteration budget runs out.
func (a *AgentInteractor) runToolLoop(ctx context.Context, msgs []Message, tools []Tool) (string, error) {
	for i := 0; i < maxToolIterations; i++ {
		resp, err := a.client.GenerateWithTools(ctx, msgs, tools)
		if err != nil {
			return "", err
		}
		log.Printf("agent response [model=%s, tool_calls=%d, tokens=%d]",
			resp.Model, len(resp.ToolCalls), resp.TotalTokens)

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}
		if a.mcp == nil {
			return "", fmt.Errorf("model requested %d tool calls but no MCP servers are running", len(resp.ToolCalls))
		}

		msgs = append(msgs, Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			result, err := a.mcp.CallTool(ctx, tc.Function.Name, tc.Function.Arguments)
			if err != nil {
				log.Printf("tool %s failed: %v", tc.Function.Name, err)
				result = fmt.Sprintf("tool error: %v", err)
			}
			msgs = append(msgs, Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}
	return "", fmt.Errorf("no final answer after %d tool iterations", maxToolIterations)
}
