// Package client talks to MCP tool servers. Storyweaver uses them as
// optional backends: a speech server for narration and an image server
// for scene illustrations.
package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zhe.chen/storyweaver/pkg/types"
)

// MCPClient is one connected MCP server
type MCPClient interface {
	Connect(ctx context.Context) error
	// Initialize performs the MCP handshake and records the server info
	Initialize(ctx context.Context) error
	ListTools(ctx context.Context) ([]types.Tool, error)
	CallTool(ctx context.Context, name string, arguments map[string]interface{}) (*types.ToolCallResult, error)
	Close() error
	GetServerInfo() (name, version string)
}

// Transport carries MCP requests by method name. Results come back as the
// JSON shape of the matching MCP response.
type Transport interface {
	Start(ctx context.Context) error
	SendRequest(ctx context.Context, method string, params interface{}) (json.RawMessage, error)
	SendNotification(ctx context.Context, method string, params interface{}) error
	Close() error
}

// JSONRPCError is an error reported by the server for a request
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *JSONRPCError) Error() string {
	return fmt.Sprintf("JSON-RPC error %d: %s", e.Code, e.Message)
}

// ToolError is returned when a tool ran but reported isError=true
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("tool execution failed: %s (no details)", e.Tool)
	}
	return fmt.Sprintf("tool execution failed: %s: %s", e.Tool, e.Message)
}

// InitializeRequest holds initialize parameters
type InitializeRequest struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ClientInfo      ClientInfo             `json:"clientInfo"`
}

type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResponse is the part of the initialize result storyweaver reads
type InitializeResponse struct {
	ProtocolVersion string     `json:"protocolVersion"`
	ServerInfo      ServerInfo `json:"serverInfo"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolsListResponse is the tools/list result
type ToolsListResponse struct {
	Tools []types.Tool `json:"tools"`
}

// CallToolRequest holds tools/call parameters
type CallToolRequest struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

const (
	protocolVersion = "2025-03-26"
	clientName      = "storyweaver"
	clientVersion   = "1.0.0"
)

// Client implements MCPClient over a Transport
type Client struct {
	transport  Transport
	serverName string
	serverVer  string
}

func NewClient(transport Transport) *Client {
	return &Client{transport: transport}
}

func (c *Client) Connect(ctx context.Context) error {
	return c.transport.Start(ctx)
}

func (c *Client) Initialize(ctx context.Context) error {
	raw, err := c.transport.SendRequest(ctx, "initialize", InitializeRequest{
		ProtocolVersion: protocolVersion,
		Capabilities:    map[string]interface{}{},
		ClientInfo:      ClientInfo{Name: clientName, Version: clientVersion},
	})
	if err != nil {
		return fmt.Errorf("initialize request failed: %w", err)
	}

	var resp InitializeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("failed to parse initialize response: %w", err)
	}
	c.serverName = resp.ServerInfo.Name
	c.serverVer = resp.ServerInfo.Version

	if err := c.transport.SendNotification(ctx, "notifications/initialized", nil); err != nil {
		return fmt.Errorf("initialized notification failed: %w", err)
	}
	return nil
}

func (c *Client) ListTools(ctx context.Context) ([]types.Tool, error) {
	raw, err := c.transport.SendRequest(ctx, "tools/list", map[string]interface{}{})
	if err != nil {
		return nil, fmt.Errorf("tools/list request failed: %w", err)
	}

	var resp ToolsListResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse tools/list response: %w", err)
	}
	return resp.Tools, nil
}

// CallTool invokes name. A result flagged isError is returned together
// with a *ToolError carrying its first text block.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (*types.ToolCallResult, error) {
	raw, err := c.transport.SendRequest(ctx, "tools/call", CallToolRequest{Name: name, Arguments: arguments})
	if err != nil {
		return nil, fmt.Errorf("tools/call request failed: %w", err)
	}

	var result types.ToolCallResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse tools/call response: %w", err)
	}
	if result.IsError {
		return &result, &ToolError{Tool: name, Message: FirstText(&result)}
	}
	return &result, nil
}

// FirstText returns the first non-empty text block of a tool result
func FirstText(result *types.ToolCallResult) string {
	if result == nil {
		return ""
	}
	for _, block := range result.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text
		}
	}
	return ""
}

func (c *Client) Close() error {
	return c.transport.Close()
}

func (c *Client) GetServerInfo() (name, version string) {
	return c.serverName, c.serverVer
}
