package attributes

import (
	"context"
	"fmt"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
)

// OpenAIConfig holds credentials and model selection for the vision model
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewOpenAIChatModel creates the multimodal chat model backing extraction.
// Returns an error when no API key is configured; the caller passes a nil
// ChatModel to the Extractor in that case.
func NewOpenAIChatModel(ctx context.Context, config OpenAIConfig) (ChatModel, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("vision api key is not configured")
	}

	chatModel, err := openaimodel.NewChatModel(ctx, &openaimodel.ChatModelConfig{
		APIKey:  config.APIKey,
		BaseURL: config.BaseURL,
		Model:   config.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return chatModel, nil
}
