package client

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zhe.chen/storyweaver/pkg/types"
)

// ValidateTools checks if required tools are available on the server
func ValidateTools(available []types.Tool, required []string) error {
	toolMap := make(map[string]bool)
	for _, tool := range available {
		toolMap[tool.Name] = true
	}

	var missing []string
	for _, req := range required {
		if !toolMap[req] {
			missing = append(missing, req)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required tools: %v", missing)
	}

	return nil
}

// CreateClient builds an unconnected client for one configured server
func CreateClient(config types.ServerConfig, log *zap.Logger) (MCPClient, error) {
	var transport Transport

	switch config.Transport {
	case "stdio":
		if len(config.Command) == 0 {
			return nil, fmt.Errorf("command required for stdio transport")
		}
		transport = NewStdioTransport(config.Command, config.Timeout, log)

	case "http":
		if config.URL == "" {
			return nil, fmt.Errorf("url required for http transport")
		}
		transport = NewHTTPTransport(config.URL, config.Timeout, config.Headers, log)

	default:
		return nil, fmt.Errorf("unsupported transport type: %s", config.Transport)
	}

	return NewClient(transport), nil
}

// Dial creates, connects and initializes a client, then checks that the
// server exposes every tool listed under capabilities.tools.
func Dial(ctx context.Context, config types.ServerConfig, log *zap.Logger) (MCPClient, error) {
	mcpClient, err := CreateClient(config, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return connect(ctx, mcpClient, config, log)
}

func connect(ctx context.Context, mcpClient MCPClient, config types.ServerConfig, log *zap.Logger) (MCPClient, error) {
	if err := mcpClient.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}

	if err := mcpClient.Initialize(ctx); err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("initialization failed: %w", err)
	}

	if required := config.Capabilities.Tools; len(required) > 0 {
		tools, err := mcpClient.ListTools(ctx)
		if err != nil {
			mcpClient.Close()
			return nil, fmt.Errorf("failed to list tools: %w", err)
		}
		if err := ValidateTools(tools, required); err != nil {
			mcpClient.Close()
			return nil, err
		}
	}

	name, version := mcpClient.GetServerInfo()
	log.Info("connected to MCP server",
		zap.String("server", config.Name),
		zap.String("name", name),
		zap.String("version", version))

	return mcpClient, nil
}
