package match

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Repository handles match record persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new match repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type matchRow struct {
	ID               string                               `db:"id"`
	ProjectID        string                               `db:"project_id"`
	ProductID        string                               `db:"product_id"`
	Score            float64                              `db:"score"`
	Tier             string                               `db:"tier"`
	Reasons          database.JSONB[[]models.MatchReason] `db:"reasons"`
	EvidenceImageIDs database.JSONB[[]string]             `db:"evidence_image_ids"`
	CreatedAt        time.Time                            `db:"created_at"`
	UpdatedAt        time.Time                            `db:"updated_at"`
}

func (r matchRow) toModel() models.MatchRecord {
	return models.MatchRecord{
		ID:               r.ID,
		ProjectID:        r.ProjectID,
		ProductID:        r.ProductID,
		Score:            r.Score,
		Tier:             models.MatchTier(r.Tier),
		Reasons:          r.Reasons.GetValue(),
		EvidenceImageIDs: r.EvidenceImageIDs.GetValue(),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

const matchColumns = "id, project_id, product_id, score, tier, reasons, evidence_image_ids, created_at, updated_at"

// Upsert writes one match record. Unique per (project_id, product_id):
// recomputation overwrites the score, tier, reasons, and evidence while
// keeping created_at. Last upsert wins under concurrent recomputation.
func (r *Repository) Upsert(ctx context.Context, record *models.MatchRecord) error {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.Upsert")
	defer span.End()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	sb := database.NewInsertBuilder()
	sb.InsertInto("matches")
	sb.Cols("id", "project_id", "product_id", "score", "tier", "reasons", "evidence_image_ids", "created_at", "updated_at")
	sb.Values(
		record.ID,
		record.ProjectID,
		record.ProductID,
		record.Score,
		string(record.Tier),
		database.JSONB[[]models.MatchReason]{Data: record.Reasons},
		database.JSONB[[]string]{Data: record.EvidenceImageIDs},
		record.CreatedAt,
		record.UpdatedAt,
	)

	query, args := sb.Build()
	query += " ON CONFLICT (project_id, product_id) DO UPDATE SET score = EXCLUDED.score, tier = EXCLUDED.tier, reasons = EXCLUDED.reasons, evidence_image_ids = EXCLUDED.evidence_image_ids, updated_at = EXCLUDED.updated_at"

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"project_id": record.ProjectID,
			"product_id": record.ProductID,
		}).Error("Failed to upsert match")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert match")
	}

	return nil
}

// GetByPair retrieves the match for one (project, product) pair, or nil
func (r *Repository) GetByPair(ctx context.Context, projectID, productID string) (*models.MatchRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.GetByPair")
	defer span.End()

	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE project_id = $1 AND product_id = $2
	`

	var row matchRow
	if err := r.db.GetContext(ctx, &row, query, projectID, productID); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get match by pair")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get match")
	}

	record := row.toModel()
	return &record, nil
}

// ListByProject returns one page of a project's matches ordered by score
// descending, ties broken by updated_at descending, plus the total row count
// matching the filter before paging.
func (r *Repository) ListByProject(ctx context.Context, projectID string, tiers []models.MatchTier, minScore float64, limit, offset int) ([]models.MatchRecord, int, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.ListByProject")
	defer span.End()

	return r.list(ctx, "project_id", projectID, tiers, minScore, limit, offset)
}

// ListByProduct returns one page of a product's matched projects, same
// ordering and total semantics as ListByProject.
func (r *Repository) ListByProduct(ctx context.Context, productID string, tiers []models.MatchTier, minScore float64, limit, offset int) ([]models.MatchRecord, int, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.ListByProduct")
	defer span.End()

	return r.list(ctx, "product_id", productID, tiers, minScore, limit, offset)
}

func (r *Repository) list(ctx context.Context, column, id string, tiers []models.MatchTier, minScore float64, limit, offset int) ([]models.MatchRecord, int, error) {
	countBuilder := database.NewSelectBuilder()
	countBuilder.Select("COUNT(*)")
	countBuilder.From("matches")
	countBuilder.Where(r.listConditions(countBuilder, column, id, tiers, minScore)...)

	query, args := countBuilder.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count matches")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list matches")
	}

	sb := database.NewSelectBuilder()
	sb.Select("id", "project_id", "product_id", "score", "tier", "reasons", "evidence_image_ids", "created_at", "updated_at")
	sb.From("matches")
	sb.Where(r.listConditions(sb, column, id, tiers, minScore)...)
	sb.OrderBy("score DESC", "updated_at DESC")
	sb.Limit(limit)
	sb.Offset(offset)

	query, args = sb.Build()
	var rows []matchRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list matches")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list matches")
	}

	records := make([]models.MatchRecord, len(rows))
	for i, row := range rows {
		records[i] = row.toModel()
	}
	return records, total, nil
}

func (r *Repository) listConditions(sb *sqlbuilder.SelectBuilder, column, id string, tiers []models.MatchTier, minScore float64) []string {
	conditions := []string{
		sb.Equal(column, id),
		sb.GreaterEqualThan("score", minScore),
	}
	if len(tiers) > 0 {
		conditions = append(conditions, sb.In("tier", tiersToAny(tiers)...))
	}
	return conditions
}

// ListByEvidenceImage returns matches whose evidence contains the image,
// ordered by score descending, ties broken by updated_at descending.
func (r *Repository) ListByEvidenceImage(ctx context.Context, imageID string, tiers []models.MatchTier, minScore float64, limit int) ([]models.MatchRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.ListByEvidenceImage")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "project_id", "product_id", "score", "tier", "reasons", "evidence_image_ids", "created_at", "updated_at")
	sb.From("matches")
	conditions := []string{
		"evidence_image_ids @> " + sb.Var(database.JSONB[[]string]{Data: []string{imageID}}),
		sb.GreaterEqualThan("score", minScore),
	}
	if len(tiers) > 0 {
		conditions = append(conditions, sb.In("tier", tiersToAny(tiers)...))
	}
	sb.Where(conditions...)
	sb.OrderBy("score DESC", "updated_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var rows []matchRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list matches by evidence image")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list matches")
	}

	records := make([]models.MatchRecord, len(rows))
	for i, row := range rows {
		records[i] = row.toModel()
	}
	return records, nil
}

func tiersToAny(tiers []models.MatchTier) []any {
	result := make([]any, len(tiers))
	for i, tier := range tiers {
		result[i] = string(tier)
	}
	return result
}
