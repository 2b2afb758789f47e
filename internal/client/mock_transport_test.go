package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// mockTransport is an in-memory Transport that replies from canned responses
type mockTransport struct {
	startErr        error
	requestErr      error
	notificationErr error
	delay           time.Duration
	responses       map[string]interface{} // method -> response

	started       bool
	closed        bool
	requests      []mockRequest
	notifications []string
}

type mockRequest struct {
	Method string
	Params interface{}
}

func newMockTransport() *mockTransport {
	m := &mockTransport{responses: make(map[string]interface{})}
	m.respond("initialize", map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]interface{}{"tools": map[string]interface{}{}},
		"serverInfo": map[string]interface{}{
			"name":    "test-server",
			"version": "1.0.0",
		},
	})
	return m
}

func (m *mockTransport) Start(ctx context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.started = true
	return nil
}

func (m *mockTransport) SendRequest(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	m.requests = append(m.requests, mockRequest{Method: method, Params: params})

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.requestErr != nil {
		return nil, m.requestErr
	}

	if resp, ok := m.responses[method]; ok {
		data, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal mock response: %w", err)
		}
		return data, nil
	}
	return json.RawMessage(`{}`), nil
}

func (m *mockTransport) SendNotification(ctx context.Context, method string, params interface{}) error {
	m.notifications = append(m.notifications, method)
	return m.notificationErr
}

func (m *mockTransport) Close() error {
	m.closed = true
	return nil
}

func (m *mockTransport) respond(method string, response interface{}) {
	m.responses[method] = response
}

func (m *mockTransport) respondTools(names ...string) {
	tools := make([]map[string]interface{}, 0, len(names))
	for _, n := range names {
		tools = append(tools, map[string]interface{}{"name": n, "description": n})
	}
	m.respond("tools/list", map[string]interface{}{"tools": tools})
}

func (m *mockTransport) respondContent(isError bool, blocks ...map[string]interface{}) {
	m.respond("tools/call", map[string]interface{}{
		"content": blocks,
		"isError": isError,
	})
}

func (m *mockTransport) lastRequest() *mockRequest {
	if len(m.requests) == 0 {
		return nil
	}
	return &m.requests[len(m.requests)-1]
}
