package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/zhe.chen/storyweaver/pkg/types"
)

// ErrNoContent is returned when a tool succeeds but yields nothing usable
var ErrNoContent = errors.New("tool returned no content")

// Toolbox routes qualified "server__tool" names to connected MCP clients
type Toolbox struct {
	clients map[string]MCPClient // server_name -> client
	log     *zap.Logger
}

// NewToolbox creates a toolbox over already-initialized clients
func NewToolbox(clients map[string]MCPClient, log *zap.Logger) *Toolbox {
	if log == nil {
		log = zap.NewNop()
	}
	return &Toolbox{clients: clients, log: log.Named("toolbox")}
}

// Qualify joins a server and tool name into the form Execute accepts
func Qualify(server, tool string) string {
	return server + "__" + tool
}

// ParseToolName splits "server__tool" into ("server", "tool")
func ParseToolName(name string) (string, string, error) {
	i := strings.Index(name, "__")
	if i <= 0 || i+2 >= len(name) {
		return "", "", fmt.Errorf("invalid tool name format: %s (expected: server__tool)", name)
	}
	return name[:i], name[i+2:], nil
}

// Has reports whether the named server is connected
func (b *Toolbox) Has(server string) bool {
	if b == nil {
		return false
	}
	_, ok := b.clients[server]
	return ok
}

// Servers returns connected server names in sorted order
func (b *Toolbox) Servers() []string {
	names := make([]string, 0, len(b.clients))
	for name := range b.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute calls a qualified tool and returns its result. A result flagged
// isError is reported as a *ToolError.
func (b *Toolbox) Execute(ctx context.Context, qualified string, arguments map[string]interface{}) (*types.ToolCallResult, error) {
	serverName, toolName, err := ParseToolName(qualified)
	if err != nil {
		return nil, err
	}

	mcpClient, ok := b.clients[serverName]
	if !ok {
		return nil, fmt.Errorf("MCP server %s not found", serverName)
	}

	b.log.Debug("executing tool", zap.String("server", serverName), zap.String("tool", toolName))

	result, err := mcpClient.CallTool(ctx, toolName, arguments)
	if err != nil {
		return nil, fmt.Errorf("MCP tool %s failed: %w", qualified, err)
	}
	if len(result.Content) == 0 {
		return nil, fmt.Errorf("%s: %w", qualified, ErrNoContent)
	}
	return result, nil
}

// Close closes every client, returning the first error
func (b *Toolbox) Close() error {
	var first error
	for name, c := range b.clients {
		if err := c.Close(); err != nil {
			b.log.Warn("close failed", zap.String("server", name), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Text concatenates all text blocks of a result
func Text(result *types.ToolCallResult) string {
	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// Binary decodes the first image or audio block. The mime type is returned
// as sent by the server.
func Binary(result *types.ToolCallResult) ([]byte, string, error) {
	for _, block := range result.Content {
		if (block.Type == "image" || block.Type == "audio") && block.Data != "" {
			data, err := base64.StdEncoding.DecodeString(block.Data)
			if err != nil {
				return nil, "", fmt.Errorf("decode %s block: %w", block.Type, err)
			}
			return data, block.MimeType, nil
		}
	}
	return nil, "", ErrNoContent
}

// Link returns a URL or path the tool pointed at: a resource URI first,
// otherwise a text block that looks like one.
func Link(result *types.ToolCallResult) string {
	for _, block := range result.Content {
		if block.URI != "" {
			return block.URI
		}
	}
	for _, block := range result.Content {
		text := strings.TrimSpace(block.Text)
		if block.Type != "text" || strings.ContainsAny(text, " \n") {
			continue
		}
		if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") || strings.HasPrefix(text, "/") {
			return text
		}
	}
	return ""
}
