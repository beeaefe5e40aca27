package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPClient is the subset of an mcp-go client the toolbox needs.
// *client.Client satisfies it.
type MCPClient interface {
	Start(ctx context.Context) error
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// ToolError is a tool result flagged as an error by the server.
type ToolError struct {
	Tool    string
	Message string
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Message)
}

// MCPToolbox serves tools from a Model Context Protocol server.
type MCPToolbox struct {
	client MCPClient
	server string
	logger *slog.Logger
}

// DialMCP connects to a streamable-HTTP MCP server at url and performs the
// protocol handshake.
func DialMCP(ctx context.Context, url string, logger *slog.Logger) (*MCPToolbox, error) {
	c, err := client.NewStreamableHttpClient(url)
	if err != nil {
		return nil, fmt.Errorf("create mcp client: %w", err)
	}
	return NewMCPToolbox(ctx, c, logger)
}

// NewMCPToolbox starts c and performs the protocol handshake.
func NewMCPToolbox(ctx context.Context, c MCPClient, logger *slog.Logger) (*MCPToolbox, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("start mcp client: %w", err)
	}

	var req mcp.InitializeRequest
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: "designflow", Version: "1.0.0"}
	res, err := c.Initialize(ctx, req)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("initialize mcp session: %w", err)
	}

	tb := &MCPToolbox{client: c, server: res.ServerInfo.Name, logger: logger}
	logger.Info("mcp server connected",
		slog.String("server", res.ServerInfo.Name),
		slog.String("version", res.ServerInfo.Version),
		slog.String("protocol", res.ProtocolVersion),
	)
	return tb, nil
}

// Server returns the connected server's name.
func (t *MCPToolbox) Server() string {
	return t.server
}

// ListTools implements Toolbox.
func (t *MCPToolbox) ListTools(ctx context.Context) ([]Descriptor, error) {
	res, err := t.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list mcp tools: %w", err)
	}

	out := make([]Descriptor, 0, len(res.Tools))
	for _, tool := range res.Tools {
		schema, err := toolSchema(tool)
		if err != nil {
			t.logger.Warn("skipping tool with unencodable schema",
				slog.String("tool", tool.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, Descriptor{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		})
	}
	t.logger.Debug("listed mcp tools", slog.Int("count", len(out)))
	return out, nil
}

// CallTool implements Toolbox. Text content blocks are joined with
// newlines; a result flagged as an error returns *ToolError.
func (t *MCPToolbox) CallTool(ctx context.Context, name string, args json.RawMessage) (string, error) {
	var arguments map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &arguments); err != nil {
			return "", fmt.Errorf("tool %s: invalid arguments: %w", name, err)
		}
	}

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: arguments,
		},
	}
	res, err := t.client.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call tool %s: %w", name, err)
	}

	text := resultText(res)
	if res.IsError {
		return "", &ToolError{Tool: name, Message: text}
	}
	return text, nil
}

// Close ends the MCP session.
func (t *MCPToolbox) Close() error {
	if err := t.client.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func toolSchema(tool mcp.Tool) (json.RawMessage, error) {
	if len(tool.RawInputSchema) > 0 {
		return tool.RawInputSchema, nil
	}
	return json.Marshal(tool.InputSchema)
}

func resultText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		switch tc := c.(type) {
		case mcp.TextContent:
			parts = append(parts, tc.Text)
		case *mcp.TextContent:
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
