package client

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Embedder produces the command vectors the parse cache is keyed by, on the
// same genai client as GeminiClient.
type Embedder struct {
	client *genai.Client
	model  string // e.g., "text-embedding-004"
}

func NewEmbedder(c *genai.Client, model string) *Embedder {
	return &Embedder{
		client: c,
		model:  model,
	}
}

func (e *Embedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	res, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), nil)
	if err != nil {
		return nil, err
	}
	if len(res.Embeddings) == 0 {
		return nil, fmt.Errorf("embed model %s returned no embeddings", e.model)
	}
	return res.Embeddings[0].Values, nil
}
