// Package query serves read access to stored match records
package query

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/listing"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// MatchReader is the persistence contract the query service reads from
type MatchReader interface {
	ListByProject(ctx context.Context, projectID string, tiers []models.MatchTier, minScore float64, limit, offset int) ([]models.MatchRecord, int, error)
	ListByProduct(ctx context.Context, productID string, tiers []models.MatchTier, minScore float64, limit, offset int) ([]models.MatchRecord, int, error)
	ListByEvidenceImage(ctx context.Context, imageID string, tiers []models.MatchTier, minScore float64, limit int) ([]models.MatchRecord, error)
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Config holds query service settings
type Config struct {
	// MinScore is the display floor; stored records below it are never returned
	MinScore float64
}

// DefaultConfig returns the default query configuration
func DefaultConfig() Config {
	return Config{
		MinScore: 40,
	}
}

// Service answers match queries: tier filtering, pagination, and filtering
// out matches whose counterpart listing has since been deleted.
type Service struct {
	matches  MatchReader
	listings listing.Store
	logger   ectologger.Logger
	config   Config
}

// NewService creates a new query service
func NewService(matches MatchReader, listings listing.Store, logger ectologger.Logger, config Config) *Service {
	return &Service{
		matches:  matches,
		listings: listings,
		logger:   logger,
		config:   config,
	}
}

// Page is one page of match results. Total counts stored rows matching the
// filter before pagination and existence filtering, so it can exceed
// len(Matches) when deleted counterparts were dropped from the page.
type Page struct {
	Matches []models.MatchRecord `json:"matches"`
	Total   int                  `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
}

// GetProjectMatches returns a page of a project's matched products, best
// score first
func (s *Service) GetProjectMatches(ctx context.Context, projectID, tierFilter string, limit, offset int) (*Page, error) {
	ctx, span := tracing.StartSpan(ctx, "query.Service.GetProjectMatches")
	defer span.End()

	tiers, err := tiersForFilter(tierFilter)
	if err != nil {
		return nil, err
	}
	limit, offset = clampPaging(limit, offset)

	records, total, err := s.matches.ListByProject(ctx, projectID, tiers, s.config.MinScore, limit, offset)
	if err != nil {
		return nil, err
	}

	records, err = s.filterExisting(ctx, records, listing.TypeProduct, func(m models.MatchRecord) string { return m.ProductID })
	if err != nil {
		return nil, err
	}

	return &Page{Matches: records, Total: total, Limit: limit, Offset: offset}, nil
}

// GetProductMatchedProjects returns a page of projects matched to a product,
// best score first
func (s *Service) GetProductMatchedProjects(ctx context.Context, productID, tierFilter string, limit, offset int) (*Page, error) {
	ctx, span := tracing.StartSpan(ctx, "query.Service.GetProductMatchedProjects")
	defer span.End()

	tiers, err := tiersForFilter(tierFilter)
	if err != nil {
		return nil, err
	}
	limit, offset = clampPaging(limit, offset)

	records, total, err := s.matches.ListByProduct(ctx, productID, tiers, s.config.MinScore, limit, offset)
	if err != nil {
		return nil, err
	}

	records, err = s.filterExisting(ctx, records, listing.TypeProject, func(m models.MatchRecord) string { return m.ProjectID })
	if err != nil {
		return nil, err
	}

	return &Page{Matches: records, Total: total, Limit: limit, Offset: offset}, nil
}

// GetImageMatches returns matches that cite the image as evidence, best score
// first. Both sides of each match are existence-checked.
func (s *Service) GetImageMatches(ctx context.Context, imageID, tierFilter string, limit int) ([]models.MatchRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "query.Service.GetImageMatches")
	defer span.End()

	tiers, err := tiersForFilter(tierFilter)
	if err != nil {
		return nil, err
	}
	limit, _ = clampPaging(limit, 0)

	records, err := s.matches.ListByEvidenceImage(ctx, imageID, tiers, s.config.MinScore, limit)
	if err != nil {
		return nil, err
	}

	records, err = s.filterExisting(ctx, records, listing.TypeProject, func(m models.MatchRecord) string { return m.ProjectID })
	if err != nil {
		return nil, err
	}
	return s.filterExisting(ctx, records, listing.TypeProduct, func(m models.MatchRecord) string { return m.ProductID })
}

// filterExisting drops matches whose counterpart listing no longer exists.
// Runs after pagination, so a page may come back short; totals are not
// adjusted. The alternative (filtering before paging) would need an existence
// check per stored row, which this read path cannot afford.
func (s *Service) filterExisting(ctx context.Context, records []models.MatchRecord, listingType listing.Type, idOf func(models.MatchRecord) string) ([]models.MatchRecord, error) {
	if len(records) == 0 {
		return records, nil
	}

	seen := make(map[string]bool, len(records))
	ids := make([]string, 0, len(records))
	for _, record := range records {
		id := idOf(record)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	exists, err := s.listings.Exists(ctx, listingType, ids)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to check listing existence")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to check listing existence")
	}

	filtered := records[:0]
	for _, record := range records {
		if exists[idOf(record)] {
			filtered = append(filtered, record)
		}
	}
	return filtered, nil
}

// tiersForFilter maps a tier filter onto stored tiers. "verified" means
// everything a buyer should act on (verified, strong, likely); "possible"
// means the long tail; "all" or empty means no tier restriction.
func tiersForFilter(filter string) ([]models.MatchTier, error) {
	switch filter {
	case "", models.TierFilterAll:
		return nil, nil
	case models.TierFilterVerified:
		return []models.MatchTier{models.MatchTierVerified, models.MatchTierStrong, models.MatchTierLikely}, nil
	case models.TierFilterPossible:
		return []models.MatchTier{models.MatchTierPossible}, nil
	default:
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid tier filter %q", filter))
	}
}

func clampPaging(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
