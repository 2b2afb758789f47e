package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/zhe.chen/storyweaver/pkg/types"
)

const (
	defaultHTTPTimeout  = 30 * time.Second
	defaultStdioTimeout = 60 * time.Second
)

// MCPGoTransport adapts an mcp-go client to Transport. The same adapter
// serves stdio subprocesses and Streamable HTTP servers; only the
// underlying mcp-go transport differs.
type MCPGoTransport struct {
	dial    func() (transport.Interface, error)
	timeout time.Duration
	log     *zap.Logger

	mcpClient   *client.Client
	initialized bool
}

// NewHTTPTransport connects to a Streamable HTTP MCP endpoint.
func NewHTTPTransport(url string, timeout time.Duration, headers map[string]string, log *zap.Logger) *MCPGoTransport {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &MCPGoTransport{
		dial: func() (transport.Interface, error) {
			return transport.NewStreamableHTTP(url,
				transport.WithHTTPHeaders(headers),
				transport.WithContinuousListening(),
			)
		},
		timeout: timeout,
		log:     orNop(log).Named("mcp.http").With(zap.String("url", url)),
	}
}

// NewStdioTransport launches command on Start and speaks MCP over its
// stdin and stdout. The server's stderr goes to the debug log.
func NewStdioTransport(command []string, timeout time.Duration, log *zap.Logger) *MCPGoTransport {
	if timeout <= 0 {
		timeout = defaultStdioTimeout
	}
	log = orNop(log).Named("mcp.stdio")
	if len(command) > 0 {
		log = log.With(zap.String("command", command[0]))
	}
	return &MCPGoTransport{
		dial: func() (transport.Interface, error) {
			if len(command) == 0 {
				return nil, fmt.Errorf("command cannot be empty")
			}
			return transport.NewStdio(command[0], nil, command[1:]...), nil
		},
		timeout: timeout,
		log:     log,
	}
}

// Start creates the underlying transport and starts the mcp-go client
func (t *MCPGoTransport) Start(ctx context.Context) error {
	tr, err := t.dial()
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}

	t.mcpClient = client.NewClient(tr)
	if err := t.mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start client: %w", err)
	}

	if stdio, ok := tr.(*transport.Stdio); ok {
		go t.logStderr(stdio.Stderr())
	}
	return nil
}

// SendRequest maps the methods Client uses onto typed mcp-go calls
func (t *MCPGoTransport) SendRequest(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if t.mcpClient == nil {
		return nil, fmt.Errorf("transport not started")
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	switch method {
	case "initialize":
		initParams, ok := params.(InitializeRequest)
		if !ok {
			return nil, fmt.Errorf("invalid initialize params type %T", params)
		}
		return t.initialize(ctx, initParams)

	case "tools/list":
		if !t.initialized {
			return nil, fmt.Errorf("client not initialized")
		}
		return t.listTools(ctx)

	case "tools/call":
		if !t.initialized {
			return nil, fmt.Errorf("client not initialized")
		}
		callParams, ok := params.(CallToolRequest)
		if !ok {
			return nil, fmt.Errorf("invalid tools/call params type %T", params)
		}
		return t.callTool(ctx, callParams)
	}

	return nil, fmt.Errorf("unsupported method: %s", method)
}

func (t *MCPGoTransport) initialize(ctx context.Context, params InitializeRequest) (json.RawMessage, error) {
	res, err := t.mcpClient.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: params.ProtocolVersion,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    params.ClientInfo.Name,
				Version: params.ClientInfo.Version,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize failed: %w", err)
	}
	t.initialized = true

	return json.Marshal(InitializeResponse{
		ProtocolVersion: res.ProtocolVersion,
		ServerInfo: ServerInfo{
			Name:    res.ServerInfo.Name,
			Version: res.ServerInfo.Version,
		},
	})
}

func (t *MCPGoTransport) listTools(ctx context.Context) (json.RawMessage, error) {
	res, err := t.mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools failed: %w", err)
	}

	tools := make([]types.Tool, 0, len(res.Tools))
	for _, tool := range res.Tools {
		var schema map[string]interface{}
		if raw, err := json.Marshal(tool.InputSchema); err == nil {
			_ = json.Unmarshal(raw, &schema)
		}
		tools = append(tools, types.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		})
	}
	return json.Marshal(ToolsListResponse{Tools: tools})
}

func (t *MCPGoTransport) callTool(ctx context.Context, params CallToolRequest) (json.RawMessage, error) {
	res, err := t.mcpClient.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      params.Name,
			Arguments: params.Arguments,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("call tool failed: %w", err)
	}

	// Content blocks marshal as {"type": ..., "text"|"data"|"mimeType": ...},
	// the shape types.ToolCallResult decodes.
	return json.Marshal(res)
}

// SendNotification is a no-op; mcp-go sends notifications/initialized itself
func (t *MCPGoTransport) SendNotification(ctx context.Context, method string, params interface{}) error {
	return nil
}

// Close shuts down the client and, for stdio, the server process
func (t *MCPGoTransport) Close() error {
	if t.mcpClient == nil {
		return nil
	}
	return t.mcpClient.Close()
}

func (t *MCPGoTransport) logStderr(r io.Reader) {
	if r == nil {
		return
	}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		t.log.Debug("server stderr", zap.String("line", scanner.Text()))
	}
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
