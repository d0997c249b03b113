// Package pipeline turns raw listing images into stored scoring signals
package pipeline

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/attributes"
	"github.com/Ramsey-B/fern/pkg/embeddings"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SignalWriter persists processed image signals
type SignalWriter interface {
	Upsert(ctx context.Context, signal *models.ImageSignal) error
}

// EventEmitter notifies downstream consumers of processed images. May be nil.
type EventEmitter interface {
	EmitImageProcessed(ctx context.Context, signal *models.ImageSignal)
}

// Processor runs the per-image pipeline: embed, extract attributes, store one
// ImageSignal. Provider failures degrade the signal, they never abort it.
type Processor struct {
	provider  *embeddings.Provider
	extractor *attributes.Extractor
	signals   SignalWriter
	emitter   EventEmitter
	logger    ectologger.Logger
}

// NewProcessor creates a new image processor. emitter may be nil.
func NewProcessor(
	provider *embeddings.Provider,
	extractor *attributes.Extractor,
	signals SignalWriter,
	emitter EventEmitter,
	logger ectologger.Logger,
) *Processor {
	return &Processor{
		provider:  provider,
		extractor: extractor,
		signals:   signals,
		emitter:   emitter,
		logger:    logger,
	}
}

// ProcessImage computes and stores the signal for one image. Only a store
// write failure is returned as an error; a degraded embedding or extraction
// still produces a (weaker) stored signal.
func (p *Processor) ProcessImage(ctx context.Context, imageID string, source models.ImageSource, imageURL, altText string) error {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Processor.ProcessImage")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"image_id": imageID,
		"source":   source,
	})

	if imageID == "" {
		return fmt.Errorf("image id is required")
	}
	if source != models.ImageSourceProject && source != models.ImageSourceProduct {
		return fmt.Errorf("invalid image source %q", source)
	}

	vector, embedErr := p.provider.EmbedImage(ctx, imageURL, altText)
	if embedErr != nil {
		log.WithError(embedErr).Warn("Embedding degraded to zero vector")
	}

	extraction := p.extractor.Extract(ctx, imageURL)
	if !extraction.OK {
		log.WithFields(map[string]any{"reason": extraction.Reason}).Debug("Attribute extraction degraded to empty set")
	}

	signal := &models.ImageSignal{
		ImageID:    imageID,
		Source:     source,
		Embedding:  vector,
		Attributes: extraction.Attributes,
		Confidence: extraction.Confidence,
	}

	if err := p.signals.Upsert(ctx, signal); err != nil {
		return err
	}

	if p.emitter != nil {
		p.emitter.EmitImageProcessed(ctx, signal)
	}

	log.Debug("Processed image")
	return nil
}

// HandleImageMessage is the Kafka consumer entry point for image upload
// notifications from the listing store.
func (p *Processor) HandleImageMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Processor.HandleImageMessage")
	defer span.End()

	event, err := msg.ParseImageUploadEvent()
	if err != nil {
		// Malformed payloads are logged and committed; retrying cannot fix them.
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"topic":  msg.Topic,
			"offset": msg.Offset,
		}).Error("Dropping unparseable image event")
		return nil
	}

	return p.ProcessImage(ctx, event.ImageID, models.ImageSource(event.Source), event.URL, event.AltText)
}
