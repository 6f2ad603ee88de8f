package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DefaultStartTimeout bounds how long a single sidecar may take to come up.
const DefaultStartTimeout = 60 * time.Second

// ServerConfig describes one stdio MCP sidecar process.
type ServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
}

// Config mirrors mcp.json: {"servers": {"name": {...}}}.
type Config struct {
	Servers map[string]ServerConfig `json:"servers"`
}

// LoadConfig reads the sidecar configuration from a JSON file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read mcp config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse mcp config %s: %w", path, err)
	}
	return cfg, nil
}

// ToolInfo is a tool advertised by one of the running sidecars.
type ToolInfo struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

type sidecar struct {
	name    string
	cfg     ServerConfig
	session *mcp.ClientSession
}

// Manager starts and stops a set of stdio MCP sidecar subprocesses and
// routes tool calls to the sidecar that owns the tool. Methods are safe for
// concurrent use once Start has returned.
type Manager struct {
	timeout  time.Duration
	sidecars []*sidecar

	mu sync.Mutex
	// tool name -> owning session, filled by Tools.
	owners map[string]*mcp.ClientSession
}

func NewManager(cfg Config) *Manager {
	m := &Manager{
		timeout: DefaultStartTimeout,
		owners:  make(map[string]*mcp.ClientSession),
	}
	// Stable startup order.
	names := make([]string, 0, len(cfg.Servers))
	for name := range cfg.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m.sidecars = append(m.sidecars, &sidecar{name: name, cfg: cfg.Servers[name]})
	}
	return m
}

// Start launches every configured sidecar and connects over stdio.
func (m *Manager) Start(ctx context.Context) error {
	if len(m.sidecars) == 0 {
		return fmt.Errorf("no MCP servers configured to start")
	}

	log.Printf("Starting %d MCP servers...", len(m.sidecars))
	for _, sc := range m.sidecars {
		log.Printf("  Starting MCP server: %s", sc.name)
		if err := m.connect(ctx, sc); err != nil {
			return fmt.Errorf("start MCP server %s: %w", sc.name, err)
		}
	}
	log.Printf("%d MCP servers started", len(m.sidecars))
	return nil
}

func (m *Manager) connect(ctx context.Context, sc *sidecar) error {
	client := mcp.NewClient(&mcp.Implementation{
		Name:    "discord-chatter",
		Version: "1.0.0",
	}, nil)

	cmd := exec.CommandContext(ctx, sc.cfg.Command, sc.cfg.Args...)
	cmd.Env = os.Environ()
	for k, v := range sc.cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	connectCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	session, err := client.Connect(connectCtx, mcp.NewCommandTransport(cmd))
	if err != nil {
		return err
	}
	sc.session = session
	return nil
}

// Stop closes every sidecar session.
func (m *Manager) Stop() error {
	log.Printf("Stopping %d MCP servers...", len(m.sidecars))
	var firstErr error
	for _, sc := range m.sidecars {
		if sc.session == nil {
			continue
		}
		if err := sc.session.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop MCP server %s: %w", sc.name, err)
		}
		sc.session = nil
	}
	return firstErr
}

// Tools aggregates the tool lists of all running sidecars.
func (m *Manager) Tools(ctx context.Context) ([]ToolInfo, error) {
	var out []ToolInfo
	owners := make(map[string]*mcp.ClientSession)
	for _, sc := range m.sidecars {
		if sc.session == nil {
			return nil, fmt.Errorf("MCP server %s is not running", sc.name)
		}
		res, err := sc.session.ListTools(ctx, &mcp.ListToolsParams{})
		if err != nil {
			return nil, fmt.Errorf("list tools of %s: %w", sc.name, err)
		}
		for _, tool := range res.Tools {
			schema, err := schemaToMap(tool.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("tool %s of %s: %w", tool.Name, sc.name, err)
			}
			out = append(out, ToolInfo{
				Name:        tool.Name,
				Description: tool.Description,
				InputSchema: schema,
			})
			owners[tool.Name] = sc.session
		}
	}
	m.mu.Lock()
	for name, session := range owners {
		m.owners[name] = session
	}
	m.mu.Unlock()
	return out, nil
}

func (m *Manager) owner(name string) (*mcp.ClientSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.owners[name]
	return session, ok
}

// CallTool invokes a tool on the sidecar that advertised it and returns the
// concatenated text content of the result.
func (m *Manager) CallTool(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	session, ok := m.owner(name)
	if !ok {
		// Tool list not fetched yet or unknown tool; refresh once.
		if _, err := m.Tools(ctx); err != nil {
			return "", err
		}
		if session, ok = m.owner(name); !ok {
			return "", fmt.Errorf("no MCP server provides tool %q", name)
		}
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("call tool %s: %w", name, err)
	}

	var text string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			text += tc.Text
		}
	}
	if result.IsError {
		return "", fmt.Errorf("tool %s returned an error: %s", name, text)
	}
	return text, nil
}

// schemaToMap converts the SDK's schema type into the plain map the
// chat-completion API expects.
func schemaToMap(schema any) (map[string]interface{}, error) {
	if schema == nil {
		return map[string]interface{}{"type": "object"}, nil
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode input schema: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode input schema: %w", err)
	}
	return out, nil
}
