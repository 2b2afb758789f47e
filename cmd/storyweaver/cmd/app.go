package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/zhe.chen/storyweaver/internal/artifact"
	"github.com/zhe.chen/storyweaver/internal/client"
	"github.com/zhe.chen/storyweaver/internal/compose"
	"github.com/zhe.chen/storyweaver/internal/llm"
	"github.com/zhe.chen/storyweaver/internal/llm/providers/claude"
	"github.com/zhe.chen/storyweaver/internal/llm/providers/gemini"
	openaiprovider "github.com/zhe.chen/storyweaver/internal/llm/providers/openai"
	"github.com/zhe.chen/storyweaver/internal/llm/providers/openrouter"
	"github.com/zhe.chen/storyweaver/internal/logger"
	"github.com/zhe.chen/storyweaver/internal/observability"
	"github.com/zhe.chen/storyweaver/internal/pipeline"
	"github.com/zhe.chen/storyweaver/internal/planner"
	"github.com/zhe.chen/storyweaver/internal/render"
	"github.com/zhe.chen/storyweaver/internal/store"
	"github.com/zhe.chen/storyweaver/internal/store/postgres"
	"github.com/zhe.chen/storyweaver/internal/upstream"
	"github.com/zhe.chen/storyweaver/pkg/types"
)

// app is the wired set of components one command needs.
type app struct {
	cfg    *types.Config
	log    *zap.Logger
	store  store.Store
	tools  *client.Toolbox
	runner *pipeline.Runner

	closers []func(context.Context) error
}

// newBaseApp sets up logging and the store only.
func newBaseApp(ctx context.Context, cfg *types.Config) (*app, error) {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, store: st}
	a.closers = append(a.closers, func(context.Context) error { return st.Close() })
	return a, nil
}

// newApp wires the full pipeline and starts its runner.
func newApp(ctx context.Context, cfg *types.Config) (*app, error) {
	a, err := newBaseApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := a.wire(ctx); err != nil {
		a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg
	a.initObservability(ctx)

	artifacts, err := artifact.New(cfg.Output.Dir, cfg.Output.PublicPrefix)
	if err != nil {
		return err
	}
	fonts, err := render.LoadFonts()
	if err != nil {
		return err
	}

	var provider llm.Provider
	if cfg.LLM.Enabled {
		provider, err = createLLMProvider(cfg.LLM)
		if err != nil {
			return err
		}
		a.log.Info("llm provider", zap.String("name", provider.Name()), zap.Bool("enabled", provider.IsEnabled()))
	}

	var translator upstream.Translator
	var speech upstream.SpeechSynthesizer
	if cfg.Google.APIKey != "" {
		if t, err := upstream.NewGoogleTranslator(ctx, cfg.Google.APIKey); err != nil {
			a.log.Warn("cloud translation unavailable", zap.Error(err))
		} else {
			translator = t
		}
		if sp, err := upstream.NewGoogleSpeech(ctx, cfg.Google.APIKey, cfg.Google.VoiceGender); err != nil {
			a.log.Warn("cloud speech unavailable", zap.Error(err))
		} else {
			speech = sp
		}
	}

	a.tools = dialServers(ctx, cfg.Servers, a.log)
	a.closers = append(a.closers, func(context.Context) error { return a.tools.Close() })

	remote := imageSource(cfg, a.tools, a.log)

	llmTimeout := providerTimeout(cfg.LLM)
	summarizer := upstream.NewSummarizer(provider, translator, llmTimeout, a.log)
	narrator := upstream.NewNarrator(speech, a.tools, artifacts, cfg.Google.Timeout, a.log)
	scenePlanner := planner.New(provider, cfg.Pipeline.SceneCount, llmTimeout, a.log)
	images := upstream.NewSceneImages(remote, cfg.Images.RequestsPerMinute, render.NewSceneRenderer(fonts, nil), artifacts, cfg.Images.Timeout, a.log)
	compositor := compose.New(fonts, artifacts, compose.NewFFmpeg(cfg.Video.FFmpegPath, a.log), cfg.Video, cfg.Pipeline.TitleDuration, cfg.Output.TempDir, a.log)

	p := pipeline.NewPipeline(a.store, summarizer, narrator, scenePlanner, images, compositor, cfg.Pipeline, a.log)
	a.runner = pipeline.NewRunner(p, cfg.Pipeline.Concurrency, cfg.Pipeline.QueueSize, a.log)
	return nil
}

func (a *app) initObservability(ctx context.Context) {
	m := a.cfg.Metrics
	if m.Addr != "" {
		handler, shutdown, err := observability.InitMetrics()
		if err != nil {
			a.log.Warn("metrics disabled", zap.Error(err))
		} else {
			serveCtx, stop := context.WithCancel(context.Background())
			go func() {
				if err := observability.Serve(serveCtx, m.Addr, handler, a.log); err != nil {
					a.log.Error("metrics server stopped", zap.Error(err))
				}
			}()
			a.closers = append(a.closers, func(ctx context.Context) error {
				stop()
				return shutdown(ctx)
			})
		}
	}

	if m.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(ctx, m.ServiceName, m.OTLPEndpoint)
		if err != nil {
			a.log.Warn("tracing disabled", zap.Error(err))
			return
		}
		a.closers = append(a.closers, shutdown)
	}
}

// Close drains the runner and releases everything in reverse order.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.runner != nil {
		if err := a.runner.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("runner: %w", err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	_ = a.log.Sync()
	return errors.Join(errs...)
}

// createLLMProvider creates the appropriate LLM provider based on configuration
func createLLMProvider(config types.LLMConfig) (llm.Provider, error) {
	switch config.Provider {
	case "anthropic", "claude":
		return claude.NewProvider(config.Anthropic)

	case "google", "gemini":
		return gemini.NewProvider(config.Google)

	case "openai":
		return openaiprovider.NewProvider(config.OpenAI)

	case "openrouter":
		return openrouter.NewProvider(config.OpenRouter)

	case "":
		return nil, fmt.Errorf("llm.provider not specified in config")

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: anthropic, google, openai, openrouter)", config.Provider)
	}
}

func providerTimeout(config types.LLMConfig) time.Duration {
	switch config.Provider {
	case "google", "gemini":
		return config.Google.Timeout
	case "openai":
		return config.OpenAI.Timeout
	case "openrouter":
		return config.OpenRouter.Timeout
	default:
		return config.Anthropic.Timeout
	}
}

func openStore(ctx context.Context, cfg types.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemory(), nil
	case "file":
		return store.NewFile(cfg.Dir)
	case "postgres":
		return postgres.Open(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}

// dialServers connects every configured MCP server. A server that cannot
// be reached is left out so its capability degrades instead of failing.
func dialServers(ctx context.Context, servers map[string]types.ServerConfig, log *zap.Logger) *client.Toolbox {
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)

	clients := make(map[string]client.MCPClient, len(servers))
	for _, name := range names {
		c, err := client.Dial(ctx, servers[name], log)
		if err != nil {
			log.Warn("mcp server unavailable", zap.String("server", name), zap.Error(err))
			continue
		}
		clients[name] = c
	}
	return client.NewToolbox(clients, log)
}

// imageSource picks the remote scene image backend, or nil for the
// procedural renderer alone.
func imageSource(cfg *types.Config, tools *client.Toolbox, log *zap.Logger) upstream.ImageSource {
	switch cfg.Images.Provider {
	case "openai":
		if cfg.LLM.OpenAI.APIKey == "" {
			log.Warn("openai images need llm.openai.api_key, using procedural images")
			return nil
		}
		return upstream.NewOpenAIImages(openaiprovider.NewClient(cfg.LLM.OpenAI), cfg.Images.Model, cfg.Images.Size)
	case "mcp":
		if !tools.Has("imagegen") {
			log.Warn("no imagegen server connected, using procedural images")
			return nil
		}
		return upstream.NewMCPImages(tools)
	default:
		return nil
	}
}
