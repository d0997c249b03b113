// Package events handles event emission for match and signal lifecycle changes
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Emitter publishes match and signal lifecycle events. Emission is
// best-effort: failures are logged and never fail the calling operation.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitMatchUpserted emits a match.upserted event after a successful upsert
func (e *Emitter) EmitMatchUpserted(ctx context.Context, record *models.MatchRecord) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMatchUpserted")
	defer span.End()

	event := &kafka.MatchEvent{
		EventType: "match.upserted",
		ProjectID: record.ProjectID,
		ProductID: record.ProductID,
		Score:     record.Score,
		Tier:      string(record.Tier),
	}

	if err := e.producer.PublishMatchEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit match.upserted event")
	}
}

// EmitImageProcessed emits an image.processed event after a signal upsert
func (e *Emitter) EmitImageProcessed(ctx context.Context, signal *models.ImageSignal) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitImageProcessed")
	defer span.End()

	event := &kafka.SignalEvent{
		EventType:  "image.processed",
		ImageID:    signal.ImageID,
		Source:     string(signal.Source),
		Confidence: signal.Confidence,
	}

	if err := e.producer.PublishSignalEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit image.processed event")
	}
}
