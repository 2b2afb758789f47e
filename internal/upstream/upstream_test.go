package upstream

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/zhe.chen/storyweaver/internal/artifact"
	"github.com/zhe.chen/storyweaver/internal/client"
	"github.com/zhe.chen/storyweaver/internal/llm"
	"github.com/zhe.chen/storyweaver/internal/render"
	"github.com/zhe.chen/storyweaver/pkg/types"
)

type fakeProvider struct {
	enabled bool
	out     string
	err     error
	got     llm.CompletionRequest
}

func (f *fakeProvider) Name() string    { return "fake" }
func (f *fakeProvider) IsEnabled() bool { return f.enabled }
func (f *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	f.got = req
	return f.out, f.err
}

type fakeTranslator struct {
	out    string
	err    error
	called bool
}

func (f *fakeTranslator) Translate(ctx context.Context, text, target string) (string, error) {
	f.called = true
	return f.out, f.err
}

type fakeSpeech struct {
	audio []byte
	err   error
}

func (f *fakeSpeech) SynthesizeMP3(ctx context.Context, text, lang string) ([]byte, error) {
	return f.audio, f.err
}

// fakeMCP answers every tool call with a fixed result.
type fakeMCP struct {
	result *types.ToolCallResult
	err    error
	calls  []string
}

func (f *fakeMCP) Connect(ctx context.Context) error    { return nil }
func (f *fakeMCP) Initialize(ctx context.Context) error { return nil }
func (f *fakeMCP) ListTools(ctx context.Context) ([]types.Tool, error) {
	return nil, nil
}
func (f *fakeMCP) CallTool(ctx context.Context, name string, args map[string]interface{}) (*types.ToolCallResult, error) {
	f.calls = append(f.calls, name)
	return f.result, f.err
}
func (f *fakeMCP) Close() error                          { return nil }
func (f *fakeMCP) GetServerInfo() (name, version string) { return "fake", "0" }

type fakeSource struct {
	img Image
	err error
}

func (f *fakeSource) Name() string { return "fake" }
func (f *fakeSource) Generate(ctx context.Context, prompt string) (Image, error) {
	return f.img, f.err
}

func newArtifacts(t *testing.T) *artifact.Store {
	t.Helper()
	s, err := artifact.New(t.TempDir(), "/generated")
	if err != nil {
		t.Fatalf("artifact.New: %v", err)
	}
	return s
}

func TestSummarize_Tiers(t *testing.T) {
	text := strings.Repeat("a", 200)

	tests := []struct {
		name          string
		provider      llm.Provider
		translator    *fakeTranslator
		in            string
		out           string
		wantDegraded  bool
		wantContains  string
		wantTranslate bool
	}{
		{
			name:         "llm summary",
			provider:     &fakeProvider{enabled: true, out: "  A fox outwits a crow.  "},
			in:           "en",
			out:          "en",
			wantContains: "A fox outwits a crow.",
		},
		{
			name:          "llm disabled uses translated template",
			provider:      &fakeProvider{enabled: false},
			translator:    &fakeTranslator{out: "Ceci est une histoire."},
			in:            "en",
			out:           "fr",
			wantDegraded:  true,
			wantContains:  "Ceci est une histoire.",
			wantTranslate: true,
		},
		{
			name:         "same language skips translation",
			translator:   &fakeTranslator{out: "unused"},
			in:           "hi",
			out:          "hi",
			wantDegraded: true,
			wantContains: "This is a Hindi cultural story",
		},
		{
			name:          "translation error falls to plain template",
			provider:      &fakeProvider{enabled: true, err: errors.New("rate limited")},
			translator:    &fakeTranslator{err: errors.New("403")},
			in:            "en",
			out:           "es",
			wantDegraded:  true,
			wantContains:  "prepared for Spanish narration",
			wantTranslate: true,
		},
		{
			name:         "empty llm output is degraded",
			provider:     &fakeProvider{enabled: true, out: "   "},
			in:           "en",
			out:          "en",
			wantDegraded: true,
			wantContains: "prepared for English narration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tr Translator
			if tt.translator != nil {
				tr = tt.translator
			}
			s := NewSummarizer(tt.provider, tr, 0, nil)

			res := s.Summarize(context.Background(), text, tt.in, tt.out)
			if res.Degraded != tt.wantDegraded {
				t.Errorf("Degraded = %v, want %v (reason %q)", res.Degraded, tt.wantDegraded, res.Reason)
			}
			if res.Degraded && res.Reason == "" {
				t.Error("degraded result without reason")
			}
			if !strings.Contains(res.Value, tt.wantContains) {
				t.Errorf("summary %q does not contain %q", res.Value, tt.wantContains)
			}
			if tt.translator != nil && tt.translator.called != tt.wantTranslate {
				t.Errorf("translator called = %v, want %v", tt.translator.called, tt.wantTranslate)
			}
		})
	}
}

func TestSummarize_TemplateQuotesPreview(t *testing.T) {
	text := strings.Repeat("é", 400)
	res := NewSummarizer(nil, nil, 0, nil).Summarize(context.Background(), text, "fr", "fr")

	if !strings.Contains(res.Value, strings.Repeat("é", 150)+"...") {
		t.Error("preview should hold the first 150 runes")
	}
	if strings.Contains(res.Value, strings.Repeat("é", 151)) {
		t.Error("preview longer than 150 runes")
	}
}

func TestSummarize_UsesTranslatorPromptWhenLanguagesDiffer(t *testing.T) {
	p := &fakeProvider{enabled: true, out: "ok"}
	NewSummarizer(p, nil, 0, nil).Summarize(context.Background(), "story", "ja", "en")

	if !strings.Contains(p.got.System, "translator") || !strings.Contains(p.got.System, "Japanese") {
		t.Errorf("system prompt = %q", p.got.System)
	}
}

func TestNarrator_Tiers(t *testing.T) {
	audio := []byte("ID3fake")

	t.Run("cloud speech writes mp3", func(t *testing.T) {
		store := newArtifacts(t)
		n := NewNarrator(&fakeSpeech{audio: audio}, nil, store, 0, nil)

		res := n.Synthesize(context.Background(), "hello", "en")
		if res.Degraded {
			t.Fatalf("unexpected degrade: %s", res.Reason)
		}
		if !strings.HasPrefix(res.Value, "/generated/audio_") || !strings.HasSuffix(res.Value, ".mp3") {
			t.Errorf("ref = %q", res.Value)
		}
		data, err := os.ReadFile(store.Resolve(res.Value).Path)
		if err != nil || string(data) != string(audio) {
			t.Errorf("artifact contents = %q, %v", data, err)
		}
	})

	t.Run("speech tool after cloud failure", func(t *testing.T) {
		mcp := &fakeMCP{result: &types.ToolCallResult{Content: []types.ContentBlock{
			{Type: "audio", Data: base64.StdEncoding.EncodeToString(audio), MimeType: "audio/mpeg"},
		}}}
		tools := client.NewToolbox(map[string]client.MCPClient{"speech": mcp}, nil)
		n := NewNarrator(&fakeSpeech{err: errors.New("quota")}, tools, newArtifacts(t), 0, nil)

		res := n.Synthesize(context.Background(), "hello", "en")
		if res.Degraded || !strings.HasSuffix(res.Value, ".mp3") {
			t.Errorf("result = %+v", res)
		}
		if len(mcp.calls) != 1 || mcp.calls[0] != "text_to_speech" {
			t.Errorf("tool calls = %v", mcp.calls)
		}
	})

	t.Run("no backend yields placeholder", func(t *testing.T) {
		res := NewNarrator(nil, nil, newArtifacts(t), 0, nil).Synthesize(context.Background(), "hello", "en")
		if !res.Degraded || res.Value != artifact.PlaceholderAudio {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("all backends failing yields placeholder", func(t *testing.T) {
		tools := client.NewToolbox(map[string]client.MCPClient{"speech": &fakeMCP{err: errors.New("down")}}, nil)
		res := NewNarrator(&fakeSpeech{err: errors.New("quota")}, tools, newArtifacts(t), 0, nil).
			Synthesize(context.Background(), "hello", "en")
		if !res.Degraded || res.Value != artifact.PlaceholderAudio {
			t.Errorf("result = %+v", res)
		}
		if !strings.Contains(res.Reason, "down") {
			t.Errorf("reason = %q", res.Reason)
		}
	})
}

func newRenderer(t *testing.T) *render.SceneRenderer {
	t.Helper()
	fonts, err := render.LoadFonts()
	if err != nil {
		t.Fatalf("LoadFonts: %v", err)
	}
	return render.NewSceneRenderer(fonts, nil)
}

func TestSceneImages_Tiers(t *testing.T) {
	t.Run("procedural only is real", func(t *testing.T) {
		g := NewSceneImages(nil, 0, newRenderer(t), newArtifacts(t), 0, nil)
		res := g.GenerateImage(context.Background(), "A forest village at sunset", "en", 2)
		if res.Degraded {
			t.Fatalf("unexpected degrade: %s", res.Reason)
		}
		if !strings.HasPrefix(res.Value, "/generated/scene_2_") {
			t.Errorf("ref = %q", res.Value)
		}
	})

	t.Run("remote bytes are stored", func(t *testing.T) {
		g := NewSceneImages(&fakeSource{img: Image{Data: []byte("png")}}, 600, newRenderer(t), newArtifacts(t), 0, nil)
		res := g.GenerateImage(context.Background(), "scene", "en", 1)
		if res.Degraded || !strings.HasPrefix(res.Value, "/generated/scene_1_") {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("remote url passes through", func(t *testing.T) {
		g := NewSceneImages(&fakeSource{img: Image{URL: "https://cdn.example.com/1.png"}}, 0, nil, newArtifacts(t), 0, nil)
		res := g.GenerateImage(context.Background(), "scene", "en", 1)
		if res.Value != "https://cdn.example.com/1.png" {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("remote failure degrades to procedural", func(t *testing.T) {
		g := NewSceneImages(&fakeSource{err: errors.New("content policy")}, 0, newRenderer(t), newArtifacts(t), 0, nil)
		res := g.GenerateImage(context.Background(), "scene", "en", 3)
		if !res.Degraded || !strings.HasPrefix(res.Value, "/generated/scene_3_") {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("no renderer yields placeholder", func(t *testing.T) {
		g := NewSceneImages(nil, 0, nil, newArtifacts(t), 0, nil)
		res := g.GenerateImage(context.Background(), "scene", "en", 4)
		if !res.Degraded || res.Value != artifact.PlaceholderImageURL(4) {
			t.Errorf("result = %+v", res)
		}
	})
}

func TestMCPImages(t *testing.T) {
	mcp := &fakeMCP{result: &types.ToolCallResult{Content: []types.ContentBlock{
		{Type: "text", Text: "https://cdn.example.com/x.png"},
	}}}
	src := NewMCPImages(client.NewToolbox(map[string]client.MCPClient{"imagegen": mcp}, nil))

	img, err := src.Generate(context.Background(), "a river")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if img.URL != "https://cdn.example.com/x.png" {
		t.Errorf("URL = %q", img.URL)
	}
	if len(mcp.calls) != 1 || mcp.calls[0] != "generate_image" {
		t.Errorf("calls = %v", mcp.calls)
	}
}

func TestResultConstructors(t *testing.T) {
	if r := Real(3); r.Degraded || r.Value != 3 {
		t.Errorf("Real = %+v", r)
	}
	if r := Fallback("x", "why"); !r.Degraded || r.Reason != "why" {
		t.Errorf("Fallback = %+v", r)
	}
}
