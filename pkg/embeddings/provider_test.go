package embeddings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	calls    int
	failures int
	vector   []float64
}

func (f *fakeEmbedder) EmbedText(_ context.Context, _ string) ([]float64, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("provider unavailable")
	}
	return f.vector, nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func testConfig() ProviderConfig {
	return ProviderConfig{
		Dimensions:     8,
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
		RatePerSecond:  1000,
		Burst:          10,
	}
}

func TestEmbedTextSuccess(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float64{3, 4}}
	provider := NewProvider(embedder, testLogger(), testConfig())

	v, err := provider.EmbedText(context.Background(), "brushed nickel pendant light")
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls)
	assert.Len(t, v, 8, "vector must be fitted to the configured dimension")
	assert.InDelta(t, 0.6, v[0], 1e-9, "vector must be normalized after fitting")
}

func TestEmbedTextEmptyInput(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float64{1}}
	provider := NewProvider(embedder, testLogger(), testConfig())

	v, err := provider.EmbedText(context.Background(), "   ")
	require.NoError(t, err)
	assert.True(t, IsZero(v))
	assert.Equal(t, 0, embedder.calls, "empty text must not reach the provider")
}

func TestEmbedTextRetriesThenSucceeds(t *testing.T) {
	embedder := &fakeEmbedder{failures: 2, vector: []float64{1, 0}}
	provider := NewProvider(embedder, testLogger(), testConfig())

	v, err := provider.EmbedText(context.Background(), "oak dining table")
	require.NoError(t, err)
	assert.Equal(t, 3, embedder.calls, "two failures then one success")
	assert.False(t, IsZero(v))
}

func TestEmbedTextExhaustsRetries(t *testing.T) {
	embedder := &fakeEmbedder{failures: 10}
	provider := NewProvider(embedder, testLogger(), testConfig())

	v, err := provider.EmbedText(context.Background(), "oak dining table")
	require.Error(t, err)
	assert.Equal(t, 3, embedder.calls, "initial attempt plus MaxRetries")
	assert.True(t, IsZero(v), "exhaustion must return the zero vector, not nil")
	assert.Len(t, v, 8)
}

func TestEmbedTextNoProvider(t *testing.T) {
	provider := NewProvider(nil, testLogger(), testConfig())

	v, err := provider.EmbedText(context.Background(), "oak dining table")
	require.Error(t, err)
	assert.True(t, IsZero(v))
}

func TestEmbedImagePrefersAltText(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float64{1, 0}}
	provider := NewProvider(embedder, testLogger(), testConfig())

	_, err := provider.EmbedImage(context.Background(), "https://img.example.com/a.jpg", "a pendant light")
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls)
}

func TestEmbedImageFallsBackWithoutAltText(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float64{1, 0}}
	provider := NewProvider(embedder, testLogger(), testConfig())

	v, err := provider.EmbedImage(context.Background(), "https://img.example.com/a.jpg", "")
	require.NoError(t, err)
	assert.Equal(t, 0, embedder.calls, "no alt text means no provider call")
	assert.Equal(t, PseudoEmbedding("https://img.example.com/a.jpg", 8), v)
}

func TestEmbedImageFallsBackWithoutProvider(t *testing.T) {
	provider := NewProvider(nil, testLogger(), testConfig())

	v, err := provider.EmbedImage(context.Background(), "https://img.example.com/a.jpg", "a pendant light")
	require.NoError(t, err)
	assert.Equal(t, PseudoEmbedding("https://img.example.com/a.jpg", 8), v)
}
