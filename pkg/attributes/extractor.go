// Package attributes extracts categorical tags from listing images
package attributes

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ChatModel is the multimodal inference backend. Satisfied by the eino chat
// models; narrowed to Generate so tests can use a plain fake.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

const extractionPrompt = `Identify the product shown in this image. Respond with a single JSON object and nothing else, using exactly this shape:
{"category": ["..."], "material": ["..."], "color": ["..."], "context": ["..."], "confidence": 0}
Each array holds short lowercase tags and may be empty. "confidence" is an integer from 0 to 100 reflecting how certain you are about the tags overall. Do not add any other keys.`

// Result is the outcome of one extraction attempt. OK distinguishes a real
// extraction from a degraded empty one; Reason carries the failure cause.
type Result struct {
	OK         bool
	Attributes models.AttributeSet
	Confidence float64
	Reason     string
}

// Extractor pulls categorical tags out of images via a multimodal model.
// Best-effort: every failure degrades to empty attributes with confidence 0.
type Extractor struct {
	model  ChatModel
	logger ectologger.Logger
}

// NewExtractor creates a new attribute extractor. model may be nil when no
// provider credentials are configured; that is logged once here.
func NewExtractor(chatModel ChatModel, logger ectologger.Logger) *Extractor {
	if chatModel == nil {
		logger.Warn("No vision model configured, attribute extraction disabled")
	}
	return &Extractor{
		model:  chatModel,
		logger: logger,
	}
}

// Extract requests tags for one image. Never returns an error and never
// retries: a failed extraction contributes nothing to scoring, unlike
// embeddings which are load-bearing.
func (e *Extractor) Extract(ctx context.Context, imageURL string) Result {
	ctx, span := tracing.StartSpan(ctx, "attributes.Extractor.Extract")
	defer span.End()

	if e.model == nil {
		return failure("vision model not configured")
	}
	if strings.TrimSpace(imageURL) == "" {
		return failure("empty image url")
	}

	message := &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: extractionPrompt},
			{Type: schema.ChatMessagePartTypeImageURL, ImageURL: &schema.ChatMessageImageURL{URL: imageURL}},
		},
	}

	response, err := e.model.Generate(ctx, []*schema.Message{message})
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"image_url": imageURL}).Warn("Attribute extraction call failed")
		return failure("inference call failed: " + err.Error())
	}

	result, err := parseExtraction(response.Content)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"image_url": imageURL}).Warn("Attribute extraction returned unparseable response")
		return failure("unparseable response: " + err.Error())
	}

	return result
}

// rawExtraction is the strict response schema. Unknown keys are rejected
// rather than silently coerced.
type rawExtraction struct {
	Category   []string `json:"category"`
	Material   []string `json:"material"`
	Color      []string `json:"color"`
	Context    []string `json:"context"`
	Confidence float64  `json:"confidence"`
}

func parseExtraction(content string) (Result, error) {
	decoder := json.NewDecoder(strings.NewReader(stripCodeFences(content)))
	decoder.DisallowUnknownFields()

	var raw rawExtraction
	if err := decoder.Decode(&raw); err != nil {
		return Result{}, err
	}

	attrs := models.AttributeSet{}
	for kind, tags := range map[string][]string{
		"category": raw.Category,
		"material": raw.Material,
		"color":    raw.Color,
		"context":  raw.Context,
	} {
		normalized := normalizers.NormalizeTags(tags)
		if len(normalized) > 0 {
			attrs[kind] = normalized
		}
	}

	return Result{
		OK:         true,
		Attributes: attrs,
		Confidence: clampConfidence(raw.Confidence),
	}, nil
}

// stripCodeFences removes a surrounding markdown code fence, with or without
// a language marker, as some models wrap JSON responses in one.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if newline := strings.IndexByte(s, '\n'); newline >= 0 {
		firstLine := strings.TrimSpace(s[:newline])
		if firstLine == "" || !strings.ContainsAny(firstLine, "{}[]") {
			s = s[newline+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

func failure(reason string) Result {
	return Result{
		OK:         false,
		Attributes: models.AttributeSet{},
		Confidence: 0,
		Reason:     reason,
	}
}
