package types

import (
	"errors"
	"fmt"
	"time"
)

// Config represents the application configuration
type Config struct {
	Servers  map[string]ServerConfig `yaml:"servers"`
	Output   OutputConfig            `yaml:"output"`
	Pipeline PipelineConfig          `yaml:"pipeline"`
	Video    VideoConfig             `yaml:"video"`
	Images   ImagesConfig            `yaml:"images"`
	LLM      LLMConfig               `yaml:"llm"`
	Google   GoogleCloudConfig       `yaml:"google"`
	Store    StoreConfig             `yaml:"store"`
	Log      LogConfig               `yaml:"log"`
	Metrics  MetricsConfig           `yaml:"metrics"`
}

// ServerConfig defines MCP server connection parameters
type ServerConfig struct {
	Name         string            `yaml:"name"`
	Command      []string          `yaml:"command"`           // For stdio transport
	URL          string            `yaml:"url"`               // For HTTP transport
	Transport    string            `yaml:"transport"`         // "stdio" or "http"
	Timeout      time.Duration     `yaml:"timeout"`
	Headers      map[string]string `yaml:"headers,omitempty"` // HTTP headers (e.g., Authorization)
	Capabilities struct {
		Tools []string `yaml:"tools"`
	} `yaml:"capabilities"`
}

// OutputConfig controls where artifacts are written and how they are referenced
type OutputConfig struct {
	Dir          string `yaml:"dir"`           // Flat directory for generated artifacts
	PublicPrefix string `yaml:"public_prefix"` // Reference prefix, e.g. "/generated"
	TempDir      string `yaml:"temp_dir"`      // Scratch space for video segments
}

// PipelineConfig defines pipeline execution parameters
type PipelineConfig struct {
	SceneCount    int           `yaml:"scene_count"`
	TotalDuration time.Duration `yaml:"total_duration"`
	TitleDuration time.Duration `yaml:"title_duration"`
	Concurrency   int           `yaml:"concurrency"`
	QueueSize     int           `yaml:"queue_size"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	StageTimeout  time.Duration `yaml:"stage_timeout"`
}

// VideoConfig defines compositor and encoder parameters
type VideoConfig struct {
	FPS                  int           `yaml:"fps"`
	FFmpegPath           string        `yaml:"ffmpeg_path"`
	Preset               string        `yaml:"preset"`
	CRF                  int           `yaml:"crf"`
	MaxConcurrentEncodes int           `yaml:"max_concurrent_encodes"`
	Subtitle             string        `yaml:"subtitle"`
	FetchTimeout         time.Duration `yaml:"fetch_timeout"`
	Preview              bool          `yaml:"preview"` // Also write a 2x2 scene preview image
}

// ImagesConfig selects the scene image backend
type ImagesConfig struct {
	Provider          string        `yaml:"provider"` // "procedural", "openai" or "mcp"
	Size              int           `yaml:"size"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
	Model             string        `yaml:"model"` // Remote image model, e.g. "dall-e-3"
}

// LLMConfig defines text-completion provider configuration
type LLMConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"` // "anthropic", "google", "openai", "openrouter"

	// Provider-specific configurations
	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	Google     GoogleConfig     `yaml:"google"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
}

// AnthropicConfig for Claude
type AnthropicConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"` // e.g., "claude-3-5-sonnet-20241022"
	Timeout time.Duration `yaml:"timeout"`
}

// GoogleConfig for Gemini
type GoogleConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"` // e.g., "gemini-2.0-flash"
	Timeout time.Duration `yaml:"timeout"`
}

// OpenAIConfig for GPT models
type OpenAIConfig struct {
	APIKey       string        `yaml:"api_key"`
	Model        string        `yaml:"model"`        // e.g., "gpt-4o-mini"
	Organization string        `yaml:"organization"` // Optional
	BaseURL      string        `yaml:"base_url"`     // Optional, for OpenAI-compatible endpoints
	Timeout      time.Duration `yaml:"timeout"`
}

// OpenRouterConfig for OpenAI-compatible models behind OpenRouter
type OpenRouterConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// GoogleCloudConfig holds credentials for Cloud Translation and Text-to-Speech
type GoogleCloudConfig struct {
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	VoiceGender string        `yaml:"voice_gender"` // "NEUTRAL", "FEMALE", "MALE"
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Driver      string `yaml:"driver"` // "memory", "file" or "postgres"
	Dir         string `yaml:"dir"`
	DatabaseURL string `yaml:"database_url"`
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// MetricsConfig controls the /metrics endpoint and trace export
type MetricsConfig struct {
	Addr         string `yaml:"addr"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ToolCallResult represents the result of a tool invocation
type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError"`
}

// ContentBlock represents a content item in tool result
type ContentBlock struct {
	Type     string `json:"type"` // "text", "image", "audio", "resource"
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// StoryStatus is the lifecycle position of a story
type StoryStatus string

const (
	StoryPending          StoryStatus = "pending"
	StorySummarizing      StoryStatus = "summarizing"
	StoryGeneratingAudio  StoryStatus = "generating_audio"
	StoryGeneratingImages StoryStatus = "generating_images"
	StoryCreatingVideo    StoryStatus = "creating_video"
	StoryCompleted        StoryStatus = "completed"
	StoryFailed           StoryStatus = "failed"
)

// ErrInvalidTransition is returned when a status change would move a story backwards
var ErrInvalidTransition = errors.New("invalid status transition")

var statusOrder = map[StoryStatus]int{
	StoryPending:          0,
	StorySummarizing:      1,
	StoryGeneratingAudio:  2,
	StoryGeneratingImages: 3,
	StoryCreatingVideo:    4,
	StoryCompleted:        5,
}

// IsTerminal reports whether no further transitions are possible
func (s StoryStatus) IsTerminal() bool {
	return s == StoryCompleted || s == StoryFailed
}

// IsValid reports whether s is a known status
func (s StoryStatus) IsValid() bool {
	if s == StoryFailed {
		return true
	}
	_, ok := statusOrder[s]
	return ok
}

// CanAdvanceTo reports whether a story in status s may move to next: the
// following status in sequence, or failed from any non-terminal status.
// Rewriting the current status is allowed so stages stay idempotent.
func (s StoryStatus) CanAdvanceTo(next StoryStatus) bool {
	if !next.IsValid() {
		return false
	}
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	if next == StoryFailed {
		return true
	}
	return statusOrder[next] == statusOrder[s]+1
}

// Story is the unit of work driven through the pipeline
type Story struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Text           string      `json:"text"`
	InputLanguage  string      `json:"input_language"`
	OutputLanguage string      `json:"output_language"`
	Status         StoryStatus `json:"status"`
	Summary        string      `json:"summary,omitempty"`
	AudioRef       string      `json:"audio_ref,omitempty"`
	VideoRef       string      `json:"video_ref,omitempty"`
	FailureReason  string      `json:"failure_reason,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Clone returns a copy safe to hand out of a store
func (s *Story) Clone() *Story {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// StoryUpdate is a partial update. Nil fields are left unchanged.
type StoryUpdate struct {
	Status        *StoryStatus
	Summary       *string
	AudioRef      *string
	VideoRef      *string
	FailureReason *string
}

// ApplyTo merges u into story. Output references and the summary are
// never cleared once set; an empty value leaves the stored one in place.
func (u StoryUpdate) ApplyTo(story *Story) error {
	if u.Status != nil {
		if !story.Status.CanAdvanceTo(*u.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, story.Status, *u.Status)
		}
		story.Status = *u.Status
	}
	setIfNonEmpty(&story.Summary, u.Summary)
	setIfNonEmpty(&story.AudioRef, u.AudioRef)
	setIfNonEmpty(&story.VideoRef, u.VideoRef)
	setIfNonEmpty(&story.FailureReason, u.FailureReason)
	story.UpdatedAt = time.Now()
	return nil
}

func setIfNonEmpty(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}

// Scene is one illustrated beat of a story, created in ordinal order
type Scene struct {
	ID          string    `json:"id"`
	StoryID     string    `json:"story_id"`
	Ordinal     int       `json:"ordinal"` // 1-based
	Description string    `json:"description"`
	ImageRef    string    `json:"image_ref"`
	CreatedAt   time.Time `json:"created_at"`
}

// PipelineStage represents a stage in the execution pipeline
type PipelineStage string

const (
	StageSummarize  PipelineStage = "summarize"
	StageNarrate    PipelineStage = "narrate"
	StageIllustrate PipelineStage = "illustrate"
	StageCompose    PipelineStage = "compose"
)

// StageStatus represents the execution status of a stage
type StageStatus string

const (
	StatusPending   StageStatus = "pending"
	StatusRunning   StageStatus = "running"
	StatusCompleted StageStatus = "completed"
	StatusDegraded  StageStatus = "degraded"
	StatusFailed    StageStatus = "failed"
)
