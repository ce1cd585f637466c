package provider

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// EmbedDimension is the vector width produced by the embedder.
// Must match the pgvector column width in the document_chunks schema.
const EmbedDimension int32 = 768

// Embedder generates text embeddings using the shared client handle.
type Embedder struct {
	source    *ClientSource
	modelName string
}

// NewEmbedder creates an Embedder backed by the given client source.
func NewEmbedder(source *ClientSource, modelName string) (*Embedder, error) {
	if source == nil {
		return nil, fmt.Errorf("client source is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	return &Embedder{source: source, modelName: modelName}, nil
}

// Embed returns the embedding vector for text, truncated to EmbedDimension.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	client, err := e.source.Client(ctx)
	if err != nil {
		return nil, err
	}

	dim := EmbedDimension
	resp, err := client.Models.EmbedContent(ctx, e.modelName, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return resp.Embeddings[0].Values, nil
}
