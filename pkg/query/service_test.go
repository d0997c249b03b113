package query

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/listing"
	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeMatchReader struct {
	records     []models.MatchRecord
	total       int
	gotTiers    []models.MatchTier
	gotMinScore float64
	gotLimit    int
	gotOffset   int
}

func (f *fakeMatchReader) ListByProject(_ context.Context, _ string, tiers []models.MatchTier, minScore float64, limit, offset int) ([]models.MatchRecord, int, error) {
	f.gotTiers, f.gotMinScore, f.gotLimit, f.gotOffset = tiers, minScore, limit, offset
	return f.records, f.total, nil
}

func (f *fakeMatchReader) ListByProduct(_ context.Context, _ string, tiers []models.MatchTier, minScore float64, limit, offset int) ([]models.MatchRecord, int, error) {
	f.gotTiers, f.gotMinScore, f.gotLimit, f.gotOffset = tiers, minScore, limit, offset
	return f.records, f.total, nil
}

func (f *fakeMatchReader) ListByEvidenceImage(_ context.Context, _ string, tiers []models.MatchTier, minScore float64, limit int) ([]models.MatchRecord, error) {
	f.gotTiers, f.gotMinScore, f.gotLimit = tiers, minScore, limit
	return f.records, nil
}

// fakeExistence reports the listed ids as deleted and everything else as live
type fakeExistence struct {
	deleted map[string]bool
}

func (f *fakeExistence) ListProjectImages(_ context.Context, _ string) ([]listing.Image, error) {
	return nil, nil
}

func (f *fakeExistence) ListProductImages(_ context.Context, _ string) ([]listing.Image, error) {
	return nil, nil
}

func (f *fakeExistence) GetTaxonomyFields(_ context.Context, _ listing.Type, _ string) (models.TaxonomyFields, error) {
	return models.TaxonomyFields{}, nil
}

func (f *fakeExistence) Exists(_ context.Context, _ listing.Type, ids []string) (map[string]bool, error) {
	exists := make(map[string]bool, len(ids))
	for _, id := range ids {
		exists[id] = !f.deleted[id]
	}
	return exists, nil
}

func (f *fakeExistence) HasManualLink(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func record(projectID, productID string, score float64, tier models.MatchTier) models.MatchRecord {
	return models.MatchRecord{ProjectID: projectID, ProductID: productID, Score: score, Tier: tier}
}

func TestGetProjectMatches(t *testing.T) {
	reader := &fakeMatchReader{
		records: []models.MatchRecord{
			record("proj-1", "prod-1", 90, models.MatchTierStrong),
			record("proj-1", "prod-2", 60, models.MatchTierLikely),
		},
		total: 2,
	}
	svc := NewService(reader, &fakeExistence{}, testLogger(), DefaultConfig())

	page, err := svc.GetProjectMatches(context.Background(), "proj-1", "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, page.Matches, 2)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, defaultLimit, page.Limit)
	assert.Equal(t, 40.0, reader.gotMinScore, "display floor must be pushed into the store query")
	assert.Nil(t, reader.gotTiers, "no tier filter means no tier restriction")
}

func TestGetProjectMatchesTierFilters(t *testing.T) {
	tests := []struct {
		name     string
		filter   string
		expected []models.MatchTier
		wantErr  bool
	}{
		{
			name:     "verified covers actionable tiers",
			filter:   "verified",
			expected: []models.MatchTier{models.MatchTierVerified, models.MatchTierStrong, models.MatchTierLikely},
		},
		{
			name:     "possible is the long tail",
			filter:   "possible",
			expected: []models.MatchTier{models.MatchTierPossible},
		},
		{
			name:     "all means unrestricted",
			filter:   "all",
			expected: nil,
		},
		{
			name:    "unknown filter rejected",
			filter:  "bogus",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &fakeMatchReader{}
			svc := NewService(reader, &fakeExistence{}, testLogger(), DefaultConfig())

			_, err := svc.GetProjectMatches(context.Background(), "proj-1", tt.filter, 0, 0)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, reader.gotTiers)
		})
	}
}

func TestGetProjectMatchesDropsDeletedProducts(t *testing.T) {
	reader := &fakeMatchReader{
		records: []models.MatchRecord{
			record("proj-1", "prod-live", 90, models.MatchTierStrong),
			record("proj-1", "prod-gone", 80, models.MatchTierStrong),
		},
		total: 2,
	}
	svc := NewService(reader, &fakeExistence{deleted: map[string]bool{"prod-gone": true}}, testLogger(), DefaultConfig())

	page, err := svc.GetProjectMatches(context.Background(), "proj-1", "", 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Matches, 1)
	assert.Equal(t, "prod-live", page.Matches[0].ProductID)
	assert.Equal(t, 2, page.Total, "total reflects stored rows, not the filtered page")
}

func TestGetProductMatchedProjectsDropsDeletedProjects(t *testing.T) {
	reader := &fakeMatchReader{
		records: []models.MatchRecord{
			record("proj-live", "prod-1", 90, models.MatchTierStrong),
			record("proj-gone", "prod-1", 80, models.MatchTierStrong),
		},
		total: 2,
	}
	svc := NewService(reader, &fakeExistence{deleted: map[string]bool{"proj-gone": true}}, testLogger(), DefaultConfig())

	page, err := svc.GetProductMatchedProjects(context.Background(), "prod-1", "", 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Matches, 1)
	assert.Equal(t, "proj-live", page.Matches[0].ProjectID)
}

func TestGetImageMatchesChecksBothSides(t *testing.T) {
	reader := &fakeMatchReader{
		records: []models.MatchRecord{
			record("proj-1", "prod-1", 90, models.MatchTierStrong),
			record("proj-1", "prod-gone", 85, models.MatchTierStrong),
			record("proj-gone", "prod-2", 80, models.MatchTierStrong),
		},
	}
	svc := NewService(reader, &fakeExistence{deleted: map[string]bool{"prod-gone": true, "proj-gone": true}}, testLogger(), DefaultConfig())

	records, err := svc.GetImageMatches(context.Background(), "img-1", "", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "prod-1", records[0].ProductID)
}

func TestEmptyResultIsNotAnError(t *testing.T) {
	svc := NewService(&fakeMatchReader{}, &fakeExistence{}, testLogger(), DefaultConfig())

	page, err := svc.GetProjectMatches(context.Background(), "proj-unknown", "", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Matches)
	assert.Zero(t, page.Total)
}

func TestPagingClamped(t *testing.T) {
	tests := []struct {
		name          string
		limit, offset int
		wantLimit     int
		wantOffset    int
	}{
		{name: "defaults", limit: 0, offset: 0, wantLimit: defaultLimit, wantOffset: 0},
		{name: "negative offset clamped", limit: 10, offset: -5, wantLimit: 10, wantOffset: 0},
		{name: "oversized limit capped", limit: 5000, offset: 40, wantLimit: maxLimit, wantOffset: 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &fakeMatchReader{}
			svc := NewService(reader, &fakeExistence{}, testLogger(), DefaultConfig())

			_, err := svc.GetProjectMatches(context.Background(), "proj-1", "", tt.limit, tt.offset)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, reader.gotLimit)
			assert.Equal(t, tt.wantOffset, reader.gotOffset)
		})
	}
}
