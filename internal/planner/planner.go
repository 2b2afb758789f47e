// Package planner splits a story summary into visual scene descriptions.
package planner

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhe.chen/storyweaver/internal/language"
	"github.com/zhe.chen/storyweaver/internal/llm"
	"github.com/zhe.chen/storyweaver/internal/upstream"
)

// DefaultSceneCount is the number of beats planned per story.
const DefaultSceneCount = 4

// enumeration strips "1.", "2)", "-", "*" or "•" list markers.
var enumeration = regexp.MustCompile(`^\s*(\d+[.):]|[-*•])\s*`)

// Planner asks an LLM for scene beats and falls back to fixed templates.
type Planner struct {
	provider llm.Provider // may be nil
	count    int
	timeout  time.Duration
	log      *zap.Logger
}

// New creates a planner. A non-positive count uses DefaultSceneCount.
func New(provider llm.Provider, count int, timeout time.Duration, log *zap.Logger) *Planner {
	if count <= 0 {
		count = DefaultSceneCount
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Planner{provider: provider, count: count, timeout: timeout, log: log.Named("planner")}
}

// Plan returns at most count scene descriptions in story order.
func (p *Planner) Plan(ctx context.Context, summary, lang string) upstream.Result[[]string] {
	scenes, err := p.ask(ctx, summary, lang)
	if err == nil {
		return upstream.Real(scenes)
	}
	p.log.Warn("using template scenes", zap.String("reason", err.Error()))
	return upstream.Fallback(Templates(language.Name(lang), p.count), err.Error())
}

func (p *Planner) ask(ctx context.Context, summary, lang string) ([]string, error) {
	if p.provider == nil || !p.provider.IsEnabled() {
		return nil, llm.ErrDisabled
	}

	ctx, cancel := llm.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.provider.Complete(ctx, llm.ScenesRequest(summary, lang, p.count))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.provider.Name(), err)
	}

	scenes := Parse(out, p.count)
	if len(scenes) == 0 {
		return nil, errors.New("no scenes in response")
	}
	return scenes, nil
}

// Parse splits a response into lines, drops blank ones, strips leading
// list markers and keeps at most limit entries.
func Parse(response string, limit int) []string {
	var scenes []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(enumeration.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		scenes = append(scenes, line)
		if len(scenes) == limit {
			break
		}
	}
	return scenes
}

var templates = []string{
	"Opening scene: Traditional %s village setting with authentic cultural elements and warm lighting",
	"Character introduction: Main protagonist in traditional %s attire, showing wisdom and kindness",
	"Central conflict: The pivotal story moment with %s cultural symbolism and dramatic tension",
	"Resolution: Peaceful conclusion with community celebration, %s cultural authenticity and joy",
}

// Templates returns count fixed beats for languageName, cycling the four
// templates when count exceeds them.
func Templates(languageName string, count int) []string {
	scenes := make([]string, count)
	for i := range scenes {
		scenes[i] = fmt.Sprintf(templates[i%len(templates)], languageName)
	}
	return scenes
}
