package llm

import "context"

// Message is one entry of the model context. ToolCallID and ToolCalls carry
// the function-calling protocol for agent conversations; plain chat messages
// leave them empty.
type Message struct {
	Role       string
	Content    string
	ToolCallID string
	ToolCalls  []ToolCall
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	ToolCalls        []ToolCall
}

type Tool struct {
	Type     string
	Function Function
}

type Function struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

type ToolCall struct {
	ID       string
	Type     string
	Function FunctionCall
}

type FunctionCall struct {
	Name      string
	Arguments map[string]interface{}
}

// Client is a raw chat-completion backend.
type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}

// ToolClient is a chat-completion backend that can also drive function calling.
type ToolClient interface {
	Client
	GenerateWithTools(ctx context.Context, messages []Message, tools []Tool) (Response, error)
}
