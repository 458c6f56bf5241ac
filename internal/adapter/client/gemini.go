package client

import (
	"context"

	"google.golang.org/genai"

	"loantrack-core/internal/domain/entity"
)

// GeminiClient adapts the hosted Gemini API to the ModelProvider interface.
// One call per command, no automatic retry: a failed call is surfaced to the
// user to resend. The genai client is shared with the Embedder and owned by
// the caller.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(c *genai.Client, model string) *GeminiClient {
	return &GeminiClient{
		client: c,
		model:  model,
	}
}

func (g *GeminiClient) Generate(ctx context.Context, systemPrompt, userText string) (*entity.ModelResponse, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(systemPrompt+"\n\nUser message: "+userText), nil)
	if err != nil {
		return nil, err
	}

	// Gemini gives the flattened-text shape. The other two shapes in
	// ModelResponse belong to older upstream API versions and stay covered
	// by the extraction chain.
	return &entity.ModelResponse{OutputText: result.Text()}, nil
}
