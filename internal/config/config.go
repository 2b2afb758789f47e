// Package config loads the storyweaver YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/zhe.chen/storyweaver/pkg/types"
)

// DefaultPath is used when no --config flag or STORYWEAVER_CONFIG is given.
const DefaultPath = "configs/storyweaver.yaml"

// LoadDotEnv loads a .env file from the working directory if one exists.
// It reports whether a file was loaded.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

// Load reads the YAML file at path, expands ${VAR} references, fills
// defaults and validates the result. A missing file yields the defaults.
func Load(path string) (*types.Config, error) {
	var cfg types.Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills zero values with the documented defaults.
func ApplyDefaults(cfg *types.Config) {
	setString(&cfg.Output.Dir, "public/generated")
	setString(&cfg.Output.PublicPrefix, "/generated")
	if cfg.Output.TempDir == "" {
		cfg.Output.TempDir = os.TempDir()
	}

	p := &cfg.Pipeline
	setInt(&p.SceneCount, 4)
	setDuration(&p.TotalDuration, 180*time.Second)
	setDuration(&p.TitleDuration, 5*time.Second)
	setInt(&p.Concurrency, 2)
	setInt(&p.QueueSize, 16)
	setDuration(&p.PollInterval, 2*time.Second)
	setDuration(&p.StageTimeout, 2*time.Minute)

	v := &cfg.Video
	setInt(&v.FPS, 30)
	setString(&v.FFmpegPath, "ffmpeg")
	setString(&v.Preset, "medium")
	setInt(&v.CRF, 23)
	setInt(&v.MaxConcurrentEncodes, 1)
	setString(&v.Subtitle, "AI StoryWeaver")
	setDuration(&v.FetchTimeout, 30*time.Second)

	im := &cfg.Images
	setString(&im.Provider, "procedural")
	setInt(&im.Size, 1024)
	setInt(&im.RequestsPerMinute, 10)
	setDuration(&im.Timeout, 60*time.Second)
	setString(&im.Model, "dall-e-3")

	l := &cfg.LLM
	setString(&l.Provider, "anthropic")
	setString(&l.Anthropic.Model, "claude-3-5-haiku-20241022")
	setDuration(&l.Anthropic.Timeout, 60*time.Second)
	setString(&l.Google.Model, "gemini-2.0-flash")
	setDuration(&l.Google.Timeout, 60*time.Second)
	setString(&l.OpenAI.Model, "gpt-4o-mini")
	setDuration(&l.OpenAI.Timeout, 60*time.Second)
	setString(&l.OpenRouter.Model, "openai/gpt-4o-mini")
	setDuration(&l.OpenRouter.Timeout, 60*time.Second)

	setDuration(&cfg.Google.Timeout, 30*time.Second)
	setString(&cfg.Google.VoiceGender, "NEUTRAL")

	setString(&cfg.Store.Driver, "file")
	setString(&cfg.Store.Dir, "data/stories")

	setString(&cfg.Log.Level, "info")
	setString(&cfg.Metrics.ServiceName, "storyweaver")

	for name, server := range cfg.Servers {
		if server.Name == "" {
			server.Name = name
		}
		setString(&server.Transport, "stdio")
		setDuration(&server.Timeout, 60*time.Second)
		cfg.Servers[name] = server
	}
}

// Validate rejects configurations the pipeline cannot run with.
func Validate(cfg *types.Config) error {
	p := cfg.Pipeline
	if p.SceneCount <= 0 {
		return fmt.Errorf("pipeline.scene_count must be positive")
	}
	if p.TotalDuration <= 0 || p.TitleDuration <= 0 {
		return fmt.Errorf("pipeline durations must be positive")
	}
	if p.TitleDuration >= p.TotalDuration {
		return fmt.Errorf("pipeline.title_duration (%s) must be shorter than total_duration (%s)", p.TitleDuration, p.TotalDuration)
	}
	if p.Concurrency <= 0 || p.QueueSize <= 0 {
		return fmt.Errorf("pipeline.concurrency and queue_size must be positive")
	}

	switch cfg.Store.Driver {
	case "memory", "file":
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return fmt.Errorf("store.database_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}

	switch cfg.Images.Provider {
	case "procedural", "openai", "mcp":
	default:
		return fmt.Errorf("unknown images provider: %s", cfg.Images.Provider)
	}

	switch cfg.LLM.Provider {
	case "anthropic", "claude", "google", "gemini", "openai", "openrouter":
	default:
		return fmt.Errorf("unknown LLM provider: %s", cfg.LLM.Provider)
	}

	for name, server := range cfg.Servers {
		switch server.Transport {
		case "stdio":
			if len(server.Command) == 0 {
				return fmt.Errorf("server %s: stdio transport requires command", name)
			}
		case "http":
			if server.URL == "" {
				return fmt.Errorf("server %s: http transport requires url", name)
			}
		default:
			return fmt.Errorf("server %s: unsupported transport: %s", name, server.Transport)
		}
	}

	return nil
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst <= 0 {
		*dst = def
	}
}

func setDuration(dst *time.Duration, def time.Duration) {
	if *dst <= 0 {
		*dst = def
	}
}
