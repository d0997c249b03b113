// Package embeddings turns images and captions into fixed-length, L2-normalized vectors
package embeddings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"golang.org/x/time/rate"

	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Embedder is the live text embedding backend. A nil Embedder on the Provider
// means no credentials were configured and every call takes the fallback path.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float64, error)
}

// ProviderConfig contains configuration for the embedding provider
type ProviderConfig struct {
	Dimensions     int           // Fixed vector length D; short vectors are padded, long ones truncated
	MaxRetries     int           // Retries after the first attempt (embed text only)
	RetryBaseDelay time.Duration // First backoff delay, doubled each retry
	RatePerSecond  float64       // Client-side provider rate limit
	Burst          int
}

// DefaultProviderConfig returns default provider configuration
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Dimensions:     1536,
		MaxRetries:     2,
		RetryBaseDelay: 500 * time.Millisecond,
		RatePerSecond:  5,
		Burst:          5,
	}
}

// Provider produces image and text embeddings, degrading to deterministic
// fallbacks instead of failing. Callers treat a returned error as "skip this
// signal," never as a pipeline abort.
type Provider struct {
	embedder Embedder
	limiter  *rate.Limiter
	logger   ectologger.Logger
	config   ProviderConfig
}

// NewProvider creates a new embedding provider. embedder may be nil when no
// provider credentials are configured; that is logged once here, not per call.
func NewProvider(embedder Embedder, logger ectologger.Logger, config ProviderConfig) *Provider {
	if config.Dimensions <= 0 {
		config.Dimensions = DefaultProviderConfig().Dimensions
	}
	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = DefaultProviderConfig().RetryBaseDelay
	}
	if config.RatePerSecond <= 0 {
		config.RatePerSecond = DefaultProviderConfig().RatePerSecond
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}

	if embedder == nil {
		logger.Warn("No embedding provider configured, using deterministic fallback vectors")
	}

	return &Provider{
		embedder: embedder,
		limiter:  rate.NewLimiter(rate.Limit(config.RatePerSecond), config.Burst),
		logger:   logger,
		config:   config,
	}
}

// Dimensions returns the fixed vector length D
func (p *Provider) Dimensions() int {
	return p.config.Dimensions
}

// EmbedText embeds a text with a bounded retry loop (doubling backoff).
// Empty or whitespace-only text returns the zero vector immediately with no
// provider call. After exhausting retries the zero vector is returned along
// with the error so the caller can skip the signal.
func (p *Provider) EmbedText(ctx context.Context, text string) ([]float64, error) {
	ctx, span := tracing.StartSpan(ctx, "embeddings.Provider.EmbedText")
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return ZeroVector(p.config.Dimensions), nil
	}

	if p.embedder == nil {
		return ZeroVector(p.config.Dimensions), fmt.Errorf("embedding provider not configured")
	}

	var lastErr error
	delay := p.config.RetryBaseDelay

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ZeroVector(p.config.Dimensions), ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return ZeroVector(p.config.Dimensions), err
		}

		vector, err := p.embedder.EmbedText(ctx, text)
		if err != nil {
			lastErr = err
			p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"attempt": attempt + 1,
			}).Warn("Embedding call failed")
			continue
		}

		return Normalize(FitDimension(vector, p.config.Dimensions)), nil
	}

	p.logger.WithContext(ctx).WithError(lastErr).Error("Embedding provider exhausted retries")
	return ZeroVector(p.config.Dimensions), fmt.Errorf("embedding failed after %d attempts: %w", p.config.MaxRetries+1, lastErr)
}

// EmbedImage embeds one image. Alt text is preferred when present (text
// embeddings are cheaper and more stable than raw image embeddings here);
// without alt text or without a live provider, the deterministic
// pseudo-embedding of the URL is used.
func (p *Provider) EmbedImage(ctx context.Context, url, altText string) ([]float64, error) {
	ctx, span := tracing.StartSpan(ctx, "embeddings.Provider.EmbedImage")
	defer span.End()

	if strings.TrimSpace(altText) != "" && p.embedder != nil {
		return p.EmbedText(ctx, altText)
	}

	return PseudoEmbedding(url, p.config.Dimensions), nil
}
