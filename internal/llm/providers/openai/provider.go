package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/zhe.chen/storyweaver/internal/llm"
	"github.com/zhe.chen/storyweaver/pkg/types"
)

// Provider implements llm.Provider for OpenAI and OpenAI-compatible APIs
type Provider struct {
	name    string
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewProvider creates a new OpenAI provider
func NewProvider(config types.OpenAIConfig) (*Provider, error) {
	if config.APIKey == "" {
		return New("openai", nil, "", 0), nil
	}
	return New("openai", NewClient(config), config.Model, config.Timeout), nil
}

// New wraps an already configured client. A nil client yields a disabled
// provider.
func New(name string, client *openai.Client, model string, timeout time.Duration) *Provider {
	return &Provider{name: name, client: client, model: model, timeout: timeout}
}

// NewClient builds the go-openai client shared by chat and image generation
func NewClient(config types.OpenAIConfig) *openai.Client {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.Organization != "" {
		clientConfig.OrgID = config.Organization
	}
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) IsEnabled() bool {
	return p.client != nil
}

// Complete runs a chat completion with an optional system message
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if p.client == nil {
		return "", llm.ErrDisabled
	}

	ctx, cancel := llm.WithTimeout(ctx, p.timeout)
	defer cancel()

	return ChatCompletion(ctx, p.client, p.model, req)
}

// ChatCompletion sends req to any OpenAI-compatible endpoint
func ChatCompletion(ctx context.Context, client *openai.Client, model string, req llm.CompletionRequest) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
