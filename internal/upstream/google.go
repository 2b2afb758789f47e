package upstream

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"
	translate "google.golang.org/api/translate/v2"
)

// Translator translates text into a target language code.
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// SpeechSynthesizer returns encoded MP3 audio for text.
type SpeechSynthesizer interface {
	SynthesizeMP3(ctx context.Context, text, lang string) ([]byte, error)
}

// GoogleTranslator calls Cloud Translation v2.
type GoogleTranslator struct {
	svc *translate.Service
}

// NewGoogleTranslator creates a translator authenticated by API key.
func NewGoogleTranslator(ctx context.Context, apiKey string, opts ...option.ClientOption) (*GoogleTranslator, error) {
	svc, err := translate.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create translate service: %w", err)
	}
	return &GoogleTranslator{svc: svc}, nil
}

// Translate returns the first translation of text.
func (g *GoogleTranslator) Translate(ctx context.Context, text, target string) (string, error) {
	resp, err := g.svc.Translations.List([]string{text}, target).Format("text").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("translate request failed: %w", err)
	}
	if len(resp.Translations) == 0 || resp.Translations[0].TranslatedText == "" {
		return "", errors.New("empty translation")
	}
	return resp.Translations[0].TranslatedText, nil
}

// GoogleSpeech calls Cloud Text-to-Speech v1.
type GoogleSpeech struct {
	svc    *texttospeech.Service
	gender string
}

// NewGoogleSpeech creates a synthesizer authenticated by API key.
func NewGoogleSpeech(ctx context.Context, apiKey, gender string, opts ...option.ClientOption) (*GoogleSpeech, error) {
	svc, err := texttospeech.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech service: %w", err)
	}
	if gender == "" {
		gender = "NEUTRAL"
	}
	return &GoogleSpeech{svc: svc, gender: strings.ToUpper(gender)}, nil
}

// SynthesizeMP3 returns decoded MP3 bytes.
func (g *GoogleSpeech) SynthesizeMP3(ctx context.Context, text, lang string) ([]byte, error) {
	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: lang,
			SsmlGender:   g.gender,
		},
		AudioConfig: &texttospeech.AudioConfig{AudioEncoding: "MP3"},
	}

	resp, err := g.svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("synthesize request failed: %w", err)
	}
	if resp.AudioContent == "" {
		return nil, errors.New("empty audio content")
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio: %w", err)
	}
	return audio, nil
}
