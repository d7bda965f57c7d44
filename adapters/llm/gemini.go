// Package llm implements the answer generator on top of the Gemini API.
package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/FairyDevicesRD/ai.chat.kmp/domain"
	"github.com/FairyDevicesRD/ai.chat.kmp/domain/repositories"
)

const defaultModel = "gemini-2.0-flash"

// System instruction fixing the reply language.
const replyLanguageInstruction = "返答は日本語"

// GeminiConfig holds the chat-completion endpoint settings.
type GeminiConfig struct {
	APIKey   string
	Endpoint string // Optional: overrides the default Gemini API base URL
	Model    string
}

// ValidateGeminiConfig validates the GeminiConfig.
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("gemini API key is required")
	}
	return nil
}

// GeminiAgent implements repositories.AnswerGenerator using the Gemini
// generateContent endpoint.
type GeminiAgent struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

var _ repositories.AnswerGenerator = (*GeminiAgent)(nil)

// NewGeminiAgent creates a new Gemini answer generator.
func NewGeminiAgent(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiAgent, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.Endpoint != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.Endpoint}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultModel
		logger.Info("Using default model", zap.String("model", model))
	}

	return &GeminiAgent{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Question submits the user text, optionally with an inline JPEG, and
// returns the reply split into lines. Any failure except cancellation
// becomes an AI agent error.
func (g *GeminiAgent) Question(ctx context.Context, text string, jpeg []byte) ([]string, error) {
	parts := []*genai.Part{genai.NewPartFromText(text)}
	if jpeg != nil {
		parts = append(parts, genai.NewPartFromBytes(jpeg, "image/jpeg"))
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(replyLanguageInstruction, genai.RoleModel),
	}

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, domain.NewAiAgentError(err)
	}

	lines := splitCandidates(response)
	g.logger.Debug("content generated",
		zap.Int("candidates", len(response.Candidates)),
		zap.Int("lines", len(lines)))
	return lines, nil
}

// splitCandidates flattens every candidate's first text part into
// newline-split lines, preserving order and empty lines.
func splitCandidates(response *genai.GenerateContentResponse) []string {
	var lines []string
	for _, candidate := range response.Candidates {
		if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
			continue
		}
		text := candidate.Content.Parts[0].Text
		if text == "" {
			continue
		}
		lines = append(lines, strings.Split(text, "\n")...)
	}
	return lines
}
