// Package delegate backs the conversational classifier with Google's
// Gemini API. It implements classify.Completer so the delegate engine can
// hand full conversations to the model and parse its structured replies.
package delegate

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/fletescerealeros/fletes/core/model"
)

const defaultModel = "gemini-2.0-flash"

// GeminiCompleter sends the accumulated conversation to the Gemini API and
// returns its text output verbatim.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// NewGeminiCompleter builds a completer against the public Gemini API.
func NewGeminiCompleter(ctx context.Context, apiKey, modelName string) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = defaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiCompleter{client: client, model: modelName}, nil
}

// Complete maps stored turns onto Gemini contents and generates a reply.
// The system prompt travels as a system instruction, not as a turn.
func (g *GeminiCompleter) Complete(ctx context.Context, system string, turns []model.Turn, message string) (string, error) {
	contents := make([]*genai.Content, 0, len(turns)+1)
	for _, t := range turns {
		contents = append(contents, genai.NewContentFromText(t.Content, roleFor(t.Role)))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}

func roleFor(role string) genai.Role {
	if role == "assistant" {
		return genai.RoleModel
	}
	return genai.RoleUser
}
