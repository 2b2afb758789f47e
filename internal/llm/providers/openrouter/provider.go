// Package openrouter reaches OpenRouter through its OpenAI-compatible API.
package openrouter

import (
	"net/http"

	"github.com/sashabaranov/go-openai"

	openaiprovider "github.com/zhe.chen/storyweaver/internal/llm/providers/openai"
	"github.com/zhe.chen/storyweaver/pkg/types"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"

	// Attribution headers OpenRouter shows on its dashboard
	httpReferer = "https://github.com/zhe.chen/storyweaver"
	appTitle    = "storyweaver"
)

// NewProvider returns a chat provider named "openrouter". Without an API
// key it is disabled.
func NewProvider(config types.OpenRouterConfig) (*openaiprovider.Provider, error) {
	if config.APIKey == "" {
		return openaiprovider.New("openrouter", nil, "", 0), nil
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = openRouterBaseURL
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Transport: &headerTransport{
			base: http.DefaultTransport,
			headers: map[string]string{
				"HTTP-Referer": httpReferer,
				"X-Title":      appTitle,
			},
		},
	}

	return openaiprovider.New("openrouter", openai.NewClientWithConfig(clientConfig), config.Model, config.Timeout), nil
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}
