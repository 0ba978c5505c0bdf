// Package mcpbridge wraps an MCP (Model Context Protocol) server connection
// as orchestrator.ToolResolver-s and siumai.FunctionTool-s, per spec §1's
// "MCP tool bridge". Grounded on apexion/aictl's internal/mcp.Manager:
// one *mcp.Client per server, a cached ListTools result, and CallTool
// dispatch by name. This package trims the cooldown/idle-eviction
// machinery a long-running CLI agent needs (not a library-client concern)
// and keeps only connect-once-cache-tools-dispatch.
package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/siumai/siumai"
	"github.com/siumai/siumai/internal/orchestrator"
)

// Server is one connected MCP server: a client session plus its cached tool
// list, safe for concurrent Resolve calls (grounded on serverConn's mu).
type Server struct {
	mu        sync.Mutex
	name      string
	client    *mcp.Client
	transport mcp.Transport
	session   *mcp.ClientSession
	tools     []*mcp.Tool
}

// NewServer builds an unconnected Server. Call Connect before Tools or
// Resolvers are meaningful.
func NewServer(name string, transport mcp.Transport) *Server {
	return &Server{
		name:      name,
		transport: transport,
		client:    mcp.NewClient(&mcp.Implementation{Name: "siumai", Version: "1.0.0"}, nil),
	}
}

// Connect establishes the session and caches its tool list. Idempotent.
func (s *Server) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return nil
	}
	session, err := s.client.Connect(ctx, s.transport, nil)
	if err != nil {
		return fmt.Errorf("mcpbridge: connect %q: %w", s.name, err)
	}
	s.session = session

	result, err := session.ListTools(ctx, nil)
	if err != nil {
		return fmt.Errorf("mcpbridge: list tools %q: %w", s.name, err)
	}
	s.tools = result.Tools
	return nil
}

// Close shuts down the session.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Close()
	s.session = nil
	return err
}

// Tools exposes the server's tool list as siumai.FunctionTool-s, converting
// each MCP input schema (a *jsonschema.Schema from google/jsonschema-go) into
// the plain map[string]any FunctionTool.JSONSchema expects.
func (s *Server) Tools() []siumai.Tool {
	s.mu.Lock()
	cached := s.tools
	s.mu.Unlock()

	out := make([]siumai.Tool, 0, len(cached))
	for _, t := range cached {
		out = append(out, siumai.FunctionTool{
			Name:        s.qualifiedName(t.Name),
			Description: t.Description,
			JSONSchema:  schemaToMap(t.InputSchema),
		})
	}
	return out
}

// qualifiedName namespaces a tool by server, since two MCP servers may
// expose tools with the same bare name.
func (s *Server) qualifiedName(toolName string) string {
	return s.name + "__" + toolName
}

// Resolvers returns one orchestrator.ToolResolver per tool this server
// exposes, keyed by the same qualified name Tools returns, ready to merge
// into a Dispatcher's Resolvers map.
func (s *Server) Resolvers() map[string]orchestrator.ToolResolver {
	s.mu.Lock()
	cached := s.tools
	s.mu.Unlock()

	out := make(map[string]orchestrator.ToolResolver, len(cached))
	for _, t := range cached {
		out[s.qualifiedName(t.Name)] = &toolResolver{server: s, bareName: t.Name}
	}
	return out
}

// toolResolver dispatches one qualified tool name to its server's CallTool,
// implementing orchestrator.ToolResolver.
type toolResolver struct {
	server   *Server
	bareName string
}

func (r *toolResolver) Resolve(ctx context.Context, name string, argsJSON string) (string, error) {
	r.server.mu.Lock()
	session := r.server.session
	r.server.mu.Unlock()
	if session == nil {
		return "", fmt.Errorf("mcpbridge: server %q not connected", r.server.name)
	}

	var args map[string]any
	if strings.TrimSpace(argsJSON) != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", fmt.Errorf("mcpbridge: decode arguments for %q: %w", name, err)
		}
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: r.bareName, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("mcpbridge: call tool %q: %w", name, err)
	}
	return ResultToJSON(result), nil
}

// ResultToJSON flattens an MCP CallToolResult's text content into the
// OutputJSON string orchestrator.ToolResult carries, grounded on
// apexion's extractContent. Non-text content parts (images, embedded
// resources) are dropped; the orchestrator only round-trips text back to
// the model.
func ResultToJSON(result *mcp.CallToolResult) string {
	if result == nil {
		return "{}"
	}
	var parts []string
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	text := strings.Join(parts, "\n")
	if text == "" {
		text = "{}"
	}
	b, err := json.Marshal(map[string]any{"text": text, "isError": result.IsError})
	if err != nil {
		return text
	}
	return string(b)
}

// schemaToMap round-trips a *jsonschema.Schema through JSON so callers get
// the plain map[string]any FunctionTool.JSONSchema expects without this
// package depending on google/jsonschema-go's struct shape directly.
func schemaToMap(schema any) map[string]any {
	if schema == nil {
		return nil
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}
