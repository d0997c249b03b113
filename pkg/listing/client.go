package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ErrNotFound is returned when the listing store does not know the id at all
var ErrNotFound = fmt.Errorf("listing not found")

// Config holds listing client configuration
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	MaxResponseBytes int64
}

// DefaultConfig returns default listing client configuration
func DefaultConfig() Config {
	return Config{
		Timeout:          10 * time.Second,
		MaxResponseBytes: 1024 * 1024, // 1MB
	}
}

// Client implements Store against the host application's internal HTTP API
type Client struct {
	client  *http.Client
	baseURL string
	maxBody int64
	logger  ectologger.Logger
}

// NewClient creates a new listing store client
func NewClient(config Config, logger ectologger.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.MaxResponseBytes <= 0 {
		config.MaxResponseBytes = DefaultConfig().MaxResponseBytes
	}

	return &Client{
		client:  &http.Client{Timeout: config.Timeout},
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		maxBody: config.MaxResponseBytes,
		logger:  logger,
	}
}

// ListProjectImages returns all images attached to a project
func (c *Client) ListProjectImages(ctx context.Context, projectID string) ([]Image, error) {
	ctx, span := tracing.StartSpan(ctx, "listing.Client.ListProjectImages")
	defer span.End()

	var payload struct {
		Data []Image `json:"data"`
	}
	path := fmt.Sprintf("/internal/projects/%s/images", url.PathEscape(projectID))
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// ListProductImages returns all images attached to a product
func (c *Client) ListProductImages(ctx context.Context, productID string) ([]Image, error) {
	ctx, span := tracing.StartSpan(ctx, "listing.Client.ListProductImages")
	defer span.End()

	var payload struct {
		Data []Image `json:"data"`
	}
	path := fmt.Sprintf("/internal/products/%s/images", url.PathEscape(productID))
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// GetTaxonomyFields returns the classification of a listing
func (c *Client) GetTaxonomyFields(ctx context.Context, listingType Type, id string) (models.TaxonomyFields, error) {
	ctx, span := tracing.StartSpan(ctx, "listing.Client.GetTaxonomyFields")
	defer span.End()

	var payload struct {
		Data models.TaxonomyFields `json:"data"`
	}
	path := fmt.Sprintf("/internal/%ss/%s/taxonomy", listingType, url.PathEscape(id))
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return models.TaxonomyFields{}, err
	}
	return payload.Data, nil
}

// Exists reports, per id, whether each listing is still live
func (c *Client) Exists(ctx context.Context, listingType Type, ids []string) (map[string]bool, error) {
	ctx, span := tracing.StartSpan(ctx, "listing.Client.Exists")
	defer span.End()

	if len(ids) == 0 {
		return map[string]bool{}, nil
	}

	var payload struct {
		Data map[string]bool `json:"data"`
	}
	path := fmt.Sprintf("/internal/listings/exists?type=%s&ids=%s", listingType, url.QueryEscape(strings.Join(ids, ",")))
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// HasManualLink reports whether a human-curated project/product link exists
func (c *Client) HasManualLink(ctx context.Context, projectID, productID string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "listing.Client.HasManualLink")
	defer span.End()

	var payload struct {
		Data struct {
			Linked bool `json:"linked"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/internal/links?project_id=%s&product_id=%s", url.QueryEscape(projectID), url.QueryEscape(productID))
	if err := c.getJSON(ctx, path, &payload); err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return payload.Data.Linked, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"path": path}).Error("Listing store request failed")
		return fmt.Errorf("listing store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WithContext(ctx).WithFields(map[string]any{"path": path, "status": resp.StatusCode}).Error("Listing store returned error status")
		return fmt.Errorf("listing store returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return fmt.Errorf("failed to read listing response: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return fmt.Errorf("listing response too large: %d bytes (max %d)", len(body), c.maxBody)
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("invalid listing response: %w", err)
	}
	return nil
}
