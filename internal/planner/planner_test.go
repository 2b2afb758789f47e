package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zhe.chen/storyweaver/internal/llm"
)

type stubProvider struct {
	enabled bool
	out     string
	err     error
	req     llm.CompletionRequest
}

func (s *stubProvider) Name() string    { return "stub" }
func (s *stubProvider) IsEnabled() bool { return s.enabled }
func (s *stubProvider) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	s.req = req
	return s.out, s.err
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		response string
		limit    int
		want     []string
	}{
		{
			name:     "numbered with blanks",
			response: "1. A village at dawn\n\n2) The hero sets out\n  3: A storm\n4. Home again\n",
			limit:    4,
			want:     []string{"A village at dawn", "The hero sets out", "A storm", "Home again"},
		},
		{
			name:     "bullets",
			response: "- river crossing\n* mountain pass\n• festival",
			limit:    4,
			want:     []string{"river crossing", "mountain pass", "festival"},
		},
		{
			name:     "truncated to limit",
			response: "a\nb\nc\nd\ne\nf",
			limit:    4,
			want:     []string{"a", "b", "c", "d"},
		},
		{
			name:     "only blanks",
			response: "\n  \n\t\n",
			limit:    4,
			want:     nil,
		},
		{
			name:     "year is not a marker",
			response: "1999 was a hard winter",
			limit:    4,
			want:     []string{"1999 was a hard winter"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.response, tt.limit)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("Parse = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlan_EmptySummaryWithoutProvider(t *testing.T) {
	res := New(nil, 0, 0, nil).Plan(context.Background(), "", "ta")

	if !res.Degraded {
		t.Error("template scenes should be degraded")
	}
	if len(res.Value) != 4 {
		t.Fatalf("got %d scenes, want 4", len(res.Value))
	}
	for i, s := range res.Value {
		if !strings.Contains(s, "Tamil") {
			t.Errorf("scene %d does not mention the language: %q", i+1, s)
		}
	}
	if !strings.HasPrefix(res.Value[0], "Opening scene") || !strings.HasPrefix(res.Value[3], "Resolution") {
		t.Errorf("template order wrong: %q", res.Value)
	}
}

func TestPlan_Provider(t *testing.T) {
	p := &stubProvider{enabled: true, out: "1. one\n2. two\n3. three\n4. four\n5. five"}
	res := New(p, 4, 0, nil).Plan(context.Background(), "summary", "ja")

	if res.Degraded {
		t.Fatalf("unexpected degrade: %s", res.Reason)
	}
	if len(res.Value) != 4 || res.Value[3] != "four" {
		t.Errorf("scenes = %q", res.Value)
	}
	if p.req.Prompt != "summary" || !strings.Contains(p.req.System, "Japanese") {
		t.Errorf("request = %+v", p.req)
	}
}

func TestPlan_FewerLinesKept(t *testing.T) {
	p := &stubProvider{enabled: true, out: "only one scene"}
	res := New(p, 4, 0, nil).Plan(context.Background(), "summary", "en")

	if res.Degraded || len(res.Value) != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestPlan_FallbackOnErrorOrEmpty(t *testing.T) {
	for _, p := range []*stubProvider{
		{enabled: true, err: errors.New("timeout")},
		{enabled: true, out: "\n\n"},
	} {
		res := New(p, 4, 0, nil).Plan(context.Background(), "summary", "en")
		if !res.Degraded || len(res.Value) != 4 {
			t.Errorf("result = %+v", res)
		}
	}
}

func TestTemplates_Cycle(t *testing.T) {
	got := Templates("English", 6)
	if len(got) != 6 || got[4] != got[0] {
		t.Errorf("Templates = %q", got)
	}
}
