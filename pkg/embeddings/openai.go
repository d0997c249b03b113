package embeddings

import (
	"context"
	"fmt"
	"time"

	openaiembed "github.com/cloudwego/eino-ext/components/embedding/openai"
)

// OpenAIConfig holds credentials and model selection for the live embedder
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAIEmbedder is the live text embedding backend
type OpenAIEmbedder struct {
	embedder *openaiembed.Embedder
}

// NewOpenAIEmbedder creates a live embedder. Returns an error when no API key
// is configured; the caller passes a nil Embedder to the Provider in that case.
func NewOpenAIEmbedder(ctx context.Context, config OpenAIConfig) (*OpenAIEmbedder, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("embedding api key is not configured")
	}

	embedder, err := openaiembed.NewEmbedder(ctx, &openaiembed.EmbeddingConfig{
		APIKey:  config.APIKey,
		BaseURL: config.BaseURL,
		Model:   config.Model,
		Timeout: config.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &OpenAIEmbedder{embedder: embedder}, nil
}

// EmbedText embeds a single text
func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float64, error) {
	vectors, err := e.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding provider returned no vectors")
	}
	return vectors[0], nil
}
