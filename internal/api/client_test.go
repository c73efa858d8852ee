package api

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestResolveModel(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want anthropic.Model
	}{
		{"default", "", anthropic.ModelClaudeSonnet4_5_20250929},
		{"short sonnet", "claude-sonnet-4-5", anthropic.ModelClaudeSonnet4_5_20250929},
		{"short haiku", "claude-haiku-4-5", anthropic.ModelClaudeHaiku4_5_20251001},
		{"pinned version passes through", "claude-sonnet-4-5-20250929", anthropic.Model("claude-sonnet-4-5-20250929")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveModel(tt.in); got != tt.want {
				t.Errorf("resolveModel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTranslateModelForBedrock(t *testing.T) {
	got := translateModelForBedrock(anthropic.ModelClaudeSonnet4_5_20250929)
	want := anthropic.Model("us.anthropic.claude-sonnet-4-5-20250929-v1:0")
	if got != want {
		t.Errorf("translateModelForBedrock() = %q, want %q", got, want)
	}

	// Unknown models pass through unchanged.
	custom := anthropic.Model("us.anthropic.custom-v1:0")
	if got := translateModelForBedrock(custom); got != custom {
		t.Errorf("translateModelForBedrock(custom) = %q, want unchanged", got)
	}
}

func TestTokenTracker(t *testing.T) {
	tr := NewTokenTracker()
	tr.Add(1000, 500)
	tr.Add(2000, 1500)

	in, out := tr.Total()
	if in != 3000 || out != 2000 {
		t.Errorf("Total() = %d/%d, want 3000/2000", in, out)
	}
	if tr.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2", tr.Calls())
	}

	// 3000 input and 2000 output tokens at Sonnet pricing.
	want := 3000.0/1_000_000*3.0 + 2000.0/1_000_000*15.0
	if got := tr.Cost(); got != want {
		t.Errorf("Cost() = %v, want %v", got, want)
	}

	tr.Reset()
	in, out = tr.Total()
	if in != 0 || out != 0 || tr.Calls() != 0 {
		t.Error("Reset() did not clear tracker")
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Error("NewClient() without key = nil error, want error")
	}
}
