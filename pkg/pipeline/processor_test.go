package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/attributes"
	"github.com/Ramsey-B/fern/pkg/embeddings"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeSignalWriter struct {
	stored []*models.ImageSignal
	err    error
}

func (f *fakeSignalWriter) Upsert(_ context.Context, signal *models.ImageSignal) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, signal)
	return nil
}

type fakeEmitter struct {
	emitted []*models.ImageSignal
}

func (f *fakeEmitter) EmitImageProcessed(_ context.Context, signal *models.ImageSignal) {
	f.emitted = append(f.emitted, signal)
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// newTestProcessor wires a processor with no live inference backends, so
// embeddings take the deterministic fallback path and extraction degrades.
func newTestProcessor(writer *fakeSignalWriter, emitter EventEmitter) *Processor {
	provider := embeddings.NewProvider(nil, testLogger(), embeddings.ProviderConfig{
		Dimensions:     16,
		MaxRetries:     1,
		RetryBaseDelay: time.Millisecond,
		RatePerSecond:  1000,
		Burst:          10,
	})
	extractor := attributes.NewExtractor(nil, testLogger())
	return NewProcessor(provider, extractor, writer, emitter, testLogger())
}

func TestProcessImage(t *testing.T) {
	writer := &fakeSignalWriter{}
	emitter := &fakeEmitter{}
	processor := newTestProcessor(writer, emitter)

	err := processor.ProcessImage(context.Background(), "img-1", models.ImageSourceProject, "https://img.example.com/a.jpg", "")
	require.NoError(t, err)

	require.Len(t, writer.stored, 1)
	signal := writer.stored[0]
	assert.Equal(t, "img-1", signal.ImageID)
	assert.Equal(t, models.ImageSourceProject, signal.Source)
	assert.Equal(t, embeddings.PseudoEmbedding("https://img.example.com/a.jpg", 16), signal.Embedding)
	assert.Empty(t, signal.Attributes, "no vision model means degraded empty attributes")
	assert.Zero(t, signal.Confidence)

	require.Len(t, emitter.emitted, 1)
	assert.Equal(t, "img-1", emitter.emitted[0].ImageID)
}

func TestProcessImageValidation(t *testing.T) {
	processor := newTestProcessor(&fakeSignalWriter{}, nil)

	assert.Error(t, processor.ProcessImage(context.Background(), "", models.ImageSourceProject, "https://img.example.com/a.jpg", ""))
	assert.Error(t, processor.ProcessImage(context.Background(), "img-1", "warehouse", "https://img.example.com/a.jpg", ""))
}

func TestProcessImageStoreFailure(t *testing.T) {
	writer := &fakeSignalWriter{err: errors.New("db down")}
	emitter := &fakeEmitter{}
	processor := newTestProcessor(writer, emitter)

	err := processor.ProcessImage(context.Background(), "img-1", models.ImageSourceProduct, "https://img.example.com/a.jpg", "")
	require.Error(t, err)
	assert.Empty(t, emitter.emitted, "no event on a failed store")
}

func TestProcessImageIdempotent(t *testing.T) {
	writer := &fakeSignalWriter{}
	processor := newTestProcessor(writer, nil)

	require.NoError(t, processor.ProcessImage(context.Background(), "img-1", models.ImageSourceProject, "https://img.example.com/a.jpg", ""))
	require.NoError(t, processor.ProcessImage(context.Background(), "img-1", models.ImageSourceProject, "https://img.example.com/a.jpg", ""))

	require.Len(t, writer.stored, 2)
	assert.Equal(t, writer.stored[0].Embedding, writer.stored[1].Embedding, "reprocessing the same image must produce the identical signal")
}

func TestHandleImageMessage(t *testing.T) {
	writer := &fakeSignalWriter{}
	processor := newTestProcessor(writer, nil)

	msg := &kafka.IncomingMessage{
		Value: []byte(`{"event_type": "image.uploaded", "image_id": "img-9", "source": "product", "url": "https://img.example.com/b.jpg"}`),
	}

	require.NoError(t, processor.HandleImageMessage(context.Background(), msg))
	require.Len(t, writer.stored, 1)
	assert.Equal(t, "img-9", writer.stored[0].ImageID)
	assert.Equal(t, models.ImageSourceProduct, writer.stored[0].Source)
}

func TestHandleImageMessageMalformed(t *testing.T) {
	writer := &fakeSignalWriter{}
	processor := newTestProcessor(writer, nil)

	msg := &kafka.IncomingMessage{Value: []byte(`not json`)}

	// Malformed payloads are dropped, not retried
	require.NoError(t, processor.HandleImageMessage(context.Background(), msg))
	assert.Empty(t, writer.stored)
}

func TestHandleImageMessageMissingFields(t *testing.T) {
	writer := &fakeSignalWriter{}
	processor := newTestProcessor(writer, nil)

	msg := &kafka.IncomingMessage{Value: []byte(`{"event_type": "image.uploaded", "source": "project"}`)}

	require.NoError(t, processor.HandleImageMessage(context.Background(), msg))
	assert.Empty(t, writer.stored)
}
