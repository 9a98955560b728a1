// Package embeddingprovider wraps google.golang.org/genai's embedding
// endpoint to satisfy internal/retrieval.EmbeddingProvider, used only when
// the optional semantic_lookup tool is wired (cgo build + API key
// configured).
package embeddingprovider

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"govctl/internal/obslog"
)

const defaultModel = "gemini-embedding-001"
const outputDimensions = int32(768)

// GenAIProvider generates embeddings through Gemini's EmbedContent API.
type GenAIProvider struct {
	client *genai.Client
	model  string
}

// NewGenAIProvider constructs a provider bound to apiKey. model defaults
// to gemini-embedding-001 when empty.
func NewGenAIProvider(ctx context.Context, apiKey, model string) (*GenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embeddingprovider: api key is required")
	}
	if model == "" {
		model = defaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("embeddingprovider: create genai client: %w", err)
	}
	return &GenAIProvider{client: client, model: model}, nil
}

// Embed returns a single text's embedding vector.
func (p *GenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	log := obslog.Get(obslog.CategoryRetrieval)
	timer := obslog.StartTimer(obslog.CategoryRetrieval, "GenAIProvider.Embed")
	defer timer.Stop()

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	dims := outputDimensions
	result, err := p.client.Models.EmbedContent(ctx, p.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	})
	if err != nil {
		log.Warn("genai embed failed: %v", err)
		return nil, fmt.Errorf("embeddingprovider: embed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("embeddingprovider: no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}

// Dimensions reports the fixed vector width this provider returns.
func (p *GenAIProvider) Dimensions() int { return int(outputDimensions) }
