package upstream

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/zhe.chen/storyweaver/internal/artifact"
	"github.com/zhe.chen/storyweaver/internal/client"
)

// TextToSpeechTool is the tool the narrator calls on an MCP speech server.
const TextToSpeechTool = "speech__text_to_speech"

var errNoNarrator = errors.New("no speech backend configured")

// TieredNarrator tries Cloud Text-to-Speech, then an MCP speech tool, then
// returns the placeholder audio sentinel.
type TieredNarrator struct {
	speech    SpeechSynthesizer // may be nil
	tools     *client.Toolbox   // may be nil
	artifacts *artifact.Store
	timeout   time.Duration
	log       *zap.Logger
}

// NewNarrator wires the available backends. speech and tools may be nil.
func NewNarrator(speech SpeechSynthesizer, tools *client.Toolbox, artifacts *artifact.Store, timeout time.Duration, log *zap.Logger) *TieredNarrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &TieredNarrator{
		speech:    speech,
		tools:     tools,
		artifacts: artifacts,
		timeout:   timeout,
		log:       log.Named("upstream.narrator"),
	}
}

// Synthesize implements Narrator.
func (n *TieredNarrator) Synthesize(ctx context.Context, text, lang string) Result[string] {
	err := errNoNarrator

	if n.speech != nil {
		ref, serr := n.cloud(ctx, text, lang)
		if serr == nil {
			return Real(ref)
		}
		n.log.Warn("cloud speech failed", zap.String("reason", reason(serr)))
		err = serr
	}

	if n.tools.Has("speech") {
		ref, terr := n.tool(ctx, text, lang)
		if terr == nil {
			return Real(ref)
		}
		n.log.Warn("speech tool failed", zap.String("reason", reason(terr)))
		err = terr
	}

	return Fallback(artifact.PlaceholderAudio, reason(err))
}

func (n *TieredNarrator) cloud(ctx context.Context, text, lang string) (string, error) {
	ctx, cancel := withTimeout(ctx, n.timeout)
	defer cancel()

	audio, err := n.speech.SynthesizeMP3(ctx, text, lang)
	if err != nil {
		return "", err
	}
	return n.artifacts.Write(n.artifacts.Name("audio", 0, "mp3"), audio)
}

func (n *TieredNarrator) tool(ctx context.Context, text, lang string) (string, error) {
	ctx, cancel := withTimeout(ctx, n.timeout)
	defer cancel()

	result, err := n.tools.Execute(ctx, TextToSpeechTool, map[string]interface{}{
		"text":     text,
		"language": lang,
	})
	if err != nil {
		return "", err
	}

	if audio, _, err := client.Binary(result); err == nil {
		return n.artifacts.Write(n.artifacts.Name("audio", 0, "mp3"), audio)
	}
	if link := client.Link(result); link != "" {
		return link, nil
	}
	return "", client.ErrNoContent
}
