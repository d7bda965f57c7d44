package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestValidateGeminiConfig(t *testing.T) {
	if err := ValidateGeminiConfig(GeminiConfig{}); err == nil {
		t.Error("Expected error when API key is missing")
	}
	if err := ValidateGeminiConfig(GeminiConfig{APIKey: "key"}); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestSplitCandidates(t *testing.T) {
	response := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "line one\n\nline three"}}}},
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "second candidate"}}}},
			{Content: nil},
		},
	}

	lines := splitCandidates(response)
	want := []string{"line one", "", "line three", "second candidate"}
	if len(lines) != len(want) {
		t.Fatalf("Expected %d lines, got %v", len(want), lines)
	}
	for i, line := range want {
		if lines[i] != line {
			t.Errorf("Line %d: expected %q, got %q", i, line, lines[i])
		}
	}
}

func TestSplitCandidatesEmpty(t *testing.T) {
	if lines := splitCandidates(&genai.GenerateContentResponse{}); len(lines) != 0 {
		t.Errorf("Expected no lines for empty response, got %v", lines)
	}
}
