package attributes

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeChatModel struct {
	response string
	err      error
	messages []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.messages = input
	if f.err != nil {
		return nil, f.err
	}
	return &schema.Message{Role: schema.Assistant, Content: f.response}, nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestExtract(t *testing.T) {
	chat := &fakeChatModel{response: `{"category": ["Pendant Light"], "material": ["brass", "glass"], "color": ["gold"], "context": [], "confidence": 82}`}
	extractor := NewExtractor(chat, testLogger())

	result := extractor.Extract(context.Background(), "https://img.example.com/a.jpg")
	require.True(t, result.OK)
	assert.Equal(t, models.AttributeSet{
		"category": {"pendant light"},
		"material": {"brass", "glass"},
		"color":    {"gold"},
	}, result.Attributes)
	assert.Equal(t, 82.0, result.Confidence)

	// The request must carry both the prompt and the image
	require.Len(t, chat.messages, 1)
	require.Len(t, chat.messages[0].MultiContent, 2)
	assert.Equal(t, schema.ChatMessagePartTypeImageURL, chat.messages[0].MultiContent[1].Type)
}

func TestExtractStripsCodeFences(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{
			name:     "fence with language marker",
			response: "```json\n{\"category\": [\"stool\"], \"material\": [], \"color\": [], \"context\": [], \"confidence\": 50}\n```",
		},
		{
			name:     "fence without language marker",
			response: "```\n{\"category\": [\"stool\"], \"material\": [], \"color\": [], \"context\": [], \"confidence\": 50}\n```",
		},
		{
			name:     "no fence",
			response: `{"category": ["stool"], "material": [], "color": [], "context": [], "confidence": 50}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := NewExtractor(&fakeChatModel{response: tt.response}, testLogger())
			result := extractor.Extract(context.Background(), "https://img.example.com/a.jpg")
			require.True(t, result.OK)
			assert.Equal(t, []string{"stool"}, result.Attributes["category"])
		})
	}
}

func TestExtractRejectsUnknownKeys(t *testing.T) {
	chat := &fakeChatModel{response: `{"category": [], "material": [], "color": [], "context": [], "confidence": 10, "notes": "extra"}`}
	extractor := NewExtractor(chat, testLogger())

	result := extractor.Extract(context.Background(), "https://img.example.com/a.jpg")
	assert.False(t, result.OK)
	assert.Empty(t, result.Attributes)
	assert.Zero(t, result.Confidence)
}

func TestExtractClampsConfidence(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected float64
	}{
		{name: "above range", raw: "150", expected: 100},
		{name: "below range", raw: "-3", expected: 0},
		{name: "in range", raw: "55", expected: 55},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &fakeChatModel{response: `{"category": [], "material": [], "color": [], "context": [], "confidence": ` + tt.raw + `}`}
			extractor := NewExtractor(chat, testLogger())

			result := extractor.Extract(context.Background(), "https://img.example.com/a.jpg")
			require.True(t, result.OK)
			assert.Equal(t, tt.expected, result.Confidence)
		})
	}
}

func TestExtractInferenceFailure(t *testing.T) {
	chat := &fakeChatModel{err: errors.New("model overloaded")}
	extractor := NewExtractor(chat, testLogger())

	result := extractor.Extract(context.Background(), "https://img.example.com/a.jpg")
	assert.False(t, result.OK)
	assert.Empty(t, result.Attributes)
	assert.Contains(t, result.Reason, "inference call failed")
}

func TestExtractNoModelConfigured(t *testing.T) {
	extractor := NewExtractor(nil, testLogger())

	result := extractor.Extract(context.Background(), "https://img.example.com/a.jpg")
	assert.False(t, result.OK)
	assert.Empty(t, result.Attributes)
}

func TestExtractEmptyURL(t *testing.T) {
	extractor := NewExtractor(&fakeChatModel{}, testLogger())

	result := extractor.Extract(context.Background(), "")
	assert.False(t, result.OK)
}

func TestExtractNormalizesTags(t *testing.T) {
	chat := &fakeChatModel{response: `{"category": ["  Pendant   Light ", "pendant light", ""], "material": [], "color": [], "context": [], "confidence": 70}`}
	extractor := NewExtractor(chat, testLogger())

	result := extractor.Extract(context.Background(), "https://img.example.com/a.jpg")
	require.True(t, result.OK)
	assert.Equal(t, []string{"pendant light"}, result.Attributes["category"], "tags must be normalized and deduplicated")
}
