package llm

import (
	"strings"
	"testing"
)

func TestSummaryRequest(t *testing.T) {
	same := SummaryRequest("Once upon a time", "en", "en")
	if !strings.Contains(same.System, "Respond in English") {
		t.Errorf("same-language prompt = %q", same.System)
	}
	if same.Prompt != "Once upon a time" {
		t.Errorf("Prompt = %q", same.Prompt)
	}
	if same.MaxTokens != 300 {
		t.Errorf("MaxTokens = %d, want 300", same.MaxTokens)
	}

	translated := SummaryRequest("Había una vez", "es", "hi")
	if !strings.Contains(translated.System, "Spanish story") || !strings.Contains(translated.System, "to Hindi") {
		t.Errorf("translation prompt = %q", translated.System)
	}
}

func TestScenesRequest(t *testing.T) {
	req := ScenesRequest("A crow finds water.", "ta", 4)
	if !strings.Contains(req.System, "4 key visual scenes") {
		t.Errorf("System = %q", req.System)
	}
	if !strings.Contains(req.System, "Tamil storytelling") {
		t.Errorf("System missing language name: %q", req.System)
	}
	if req.MaxTokens != 400 {
		t.Errorf("MaxTokens = %d, want 400", req.MaxTokens)
	}
}
