package upstream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhe.chen/storyweaver/internal/language"
	"github.com/zhe.chen/storyweaver/internal/llm"
)

const previewRunes = 150

// TieredSummarizer tries an LLM, then a translated template, then a plain
// template.
type TieredSummarizer struct {
	provider   llm.Provider // may be nil
	translator Translator   // may be nil
	timeout    time.Duration
	log        *zap.Logger
}

// NewSummarizer wires the available backends. Either may be nil.
func NewSummarizer(provider llm.Provider, translator Translator, timeout time.Duration, log *zap.Logger) *TieredSummarizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &TieredSummarizer{
		provider:   provider,
		translator: translator,
		timeout:    timeout,
		log:        log.Named("upstream.summarizer"),
	}
}

// Summarize implements Summarizer.
func (s *TieredSummarizer) Summarize(ctx context.Context, text, inputLang, outputLang string) Result[string] {
	summary, err := s.complete(ctx, text, inputLang, outputLang)
	if err == nil {
		return Real(summary)
	}
	s.log.Warn("llm summary unavailable", zap.String("reason", reason(err)))

	if s.translator != nil {
		summary, terr := s.translatedTemplate(ctx, text, inputLang, outputLang)
		if terr == nil {
			return Fallback(summary, reason(err))
		}
		s.log.Warn("translated summary unavailable", zap.String("reason", reason(terr)))
		err = terr
	}

	return Fallback(plainTemplate(text, inputLang, outputLang), reason(err))
}

func (s *TieredSummarizer) complete(ctx context.Context, text, inputLang, outputLang string) (string, error) {
	if s.provider == nil || !s.provider.IsEnabled() {
		return "", llm.ErrDisabled
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.provider.Complete(ctx, llm.SummaryRequest(text, inputLang, outputLang))
	if err != nil {
		return "", fmt.Errorf("%s: %w", s.provider.Name(), err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("empty summary")
	}
	return out, nil
}

func (s *TieredSummarizer) translatedTemplate(ctx context.Context, text, inputLang, outputLang string) (string, error) {
	in, out := language.Name(inputLang), language.Name(outputLang)
	body := fmt.Sprintf("This is a %s cultural story that showcases traditional values and storytelling. The narrative follows classic folk tale structure with moral lessons embedded throughout.", in)

	if inputLang != outputLang {
		ctx, cancel := withTimeout(ctx, s.timeout)
		defer cancel()

		translated, err := s.translator.Translate(ctx, body, outputLang)
		if err != nil {
			return "", err
		}
		body = translated
	}

	return fmt.Sprintf("Summary (%s to %s)\n\n%s\n\nOriginal story preview: \"%s...\"", in, out, body, preview(text)), nil
}

func plainTemplate(text, inputLang, outputLang string) string {
	return fmt.Sprintf("A %s story prepared for %s narration.\n\nStory preview: \"%s...\"",
		language.Name(inputLang), language.Name(outputLang), preview(text))
}

// preview returns at most the first previewRunes runes of text.
func preview(text string) string {
	r := []rune(strings.TrimSpace(text))
	if len(r) > previewRunes {
		r = r[:previewRunes]
	}
	return string(r)
}
