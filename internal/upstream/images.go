package upstream

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/zhe.chen/storyweaver/internal/artifact"
	"github.com/zhe.chen/storyweaver/internal/client"
	"github.com/zhe.chen/storyweaver/internal/language"
	"github.com/zhe.chen/storyweaver/internal/render"
)

// GenerateImageTool is the tool called on an MCP image server.
const GenerateImageTool = "imagegen__generate_image"

// Image is what a remote generator returned: raw PNG bytes or a URL.
type Image struct {
	Data []byte
	URL  string
}

// ImageSource is a remote generative image backend.
type ImageSource interface {
	Name() string
	Generate(ctx context.Context, prompt string) (Image, error)
}

// OpenAIImages generates images with the OpenAI image API.
type OpenAIImages struct {
	client *openai.Client
	model  string
	size   string
}

// NewOpenAIImages creates an image source on an existing go-openai client.
func NewOpenAIImages(c *openai.Client, model string, size int) *OpenAIImages {
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	if size <= 0 {
		size = render.SceneSize
	}
	return &OpenAIImages{client: c, model: model, size: fmt.Sprintf("%dx%d", size, size)}
}

func (o *OpenAIImages) Name() string { return "openai" }

// Generate requests one base64-encoded image.
func (o *OpenAIImages) Generate(ctx context.Context, prompt string) (Image, error) {
	resp, err := o.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          o.model,
		N:              1,
		Size:           o.size,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return Image{}, fmt.Errorf("image request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return Image{}, errors.New("no image in response")
	}

	item := resp.Data[0]
	if item.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return Image{}, fmt.Errorf("failed to decode image: %w", err)
		}
		return Image{Data: data}, nil
	}
	if item.URL != "" {
		return Image{URL: item.URL}, nil
	}
	return Image{}, errors.New("empty image in response")
}

// MCPImages generates images through an MCP tool server.
type MCPImages struct {
	tools *client.Toolbox
}

// NewMCPImages creates an image source over the toolbox's imagegen server.
func NewMCPImages(tools *client.Toolbox) *MCPImages {
	return &MCPImages{tools: tools}
}

func (m *MCPImages) Name() string { return "mcp" }

func (m *MCPImages) Generate(ctx context.Context, prompt string) (Image, error) {
	result, err := m.tools.Execute(ctx, GenerateImageTool, map[string]interface{}{"prompt": prompt})
	if err != nil {
		return Image{}, err
	}
	if data, _, err := client.Binary(result); err == nil {
		return Image{Data: data}, nil
	}
	if link := client.Link(result); link != "" {
		return Image{URL: link}, nil
	}
	return Image{}, client.ErrNoContent
}

// SceneImages tries a remote source when one is configured, then the
// procedural renderer, then the placeholder locator.
type SceneImages struct {
	remote    ImageSource // may be nil
	limiter   *rate.Limiter
	renderer  *render.SceneRenderer
	artifacts *artifact.Store
	timeout   time.Duration
	log       *zap.Logger
}

// NewSceneImages wires the backends. A non-positive requestsPerMinute
// disables rate limiting.
func NewSceneImages(remote ImageSource, requestsPerMinute int, renderer *render.SceneRenderer, artifacts *artifact.Store, timeout time.Duration, log *zap.Logger) *SceneImages {
	if log == nil {
		log = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	return &SceneImages{
		remote:    remote,
		limiter:   limiter,
		renderer:  renderer,
		artifacts: artifacts,
		timeout:   timeout,
		log:       log.Named("upstream.images"),
	}
}

// GenerateImage implements ImageGenerator.
func (g *SceneImages) GenerateImage(ctx context.Context, description, lang string, ordinal int) Result[string] {
	langName := language.Name(lang)
	log := g.log.With(zap.Int("scene", ordinal))

	var remoteErr error
	if g.remote != nil {
		ref, err := g.fromRemote(ctx, description, langName, ordinal)
		if err == nil {
			return Real(ref)
		}
		log.Warn("remote image failed", zap.String("source", g.remote.Name()), zap.String("reason", reason(err)))
		remoteErr = err
	}

	ref, err := g.procedural(description, ordinal, langName)
	if err != nil {
		log.Warn("procedural render failed", zap.String("reason", reason(err)))
		return Fallback(artifact.PlaceholderImageURL(ordinal), reason(err))
	}
	if remoteErr != nil {
		return Fallback(ref, reason(remoteErr))
	}
	return Real(ref)
}

func (g *SceneImages) fromRemote(ctx context.Context, description, langName string, ordinal int) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	prompt := fmt.Sprintf("%s. Illustration inspired by %s storytelling traditions, rich colors, no text.", description, langName)
	img, err := g.remote.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if len(img.Data) > 0 {
		return g.artifacts.Write(g.artifacts.Name("scene", ordinal, "png"), img.Data)
	}
	return img.URL, nil
}

func (g *SceneImages) procedural(description string, ordinal int, langName string) (ref string, err error) {
	if g.renderer == nil {
		return "", errors.New("no renderer configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panic: %v", r)
		}
	}()

	img, err := g.renderer.Draw(description, ordinal, langName)
	if err != nil {
		return "", err
	}
	data, err := render.EncodePNG(img)
	if err != nil {
		return "", err
	}
	return g.artifacts.Write(g.artifacts.Name("scene", ordinal, "png"), data)
}
