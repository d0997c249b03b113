package imagesignal

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Repository handles image signal persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new image signal repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type signalRow struct {
	ImageID    string                              `db:"image_id"`
	Source     string                              `db:"source"`
	Embedding  database.JSONB[[]float64]           `db:"embedding"`
	Attrs      database.JSONB[models.AttributeSet] `db:"attrs"`
	Confidence float64                             `db:"confidence"`
	UpdatedAt  time.Time                           `db:"updated_at"`
}

func (r signalRow) toModel() models.ImageSignal {
	return models.ImageSignal{
		ImageID:    r.ImageID,
		Source:     models.ImageSource(r.Source),
		Embedding:  r.Embedding.GetValue(),
		Attributes: r.Attrs.GetValue(),
		Confidence: r.Confidence,
		UpdatedAt:  r.UpdatedAt,
	}
}

// Upsert writes one signal. Idempotent per image_id, last write wins.
func (r *Repository) Upsert(ctx context.Context, signal *models.ImageSignal) error {
	ctx, span := tracing.StartSpan(ctx, "imagesignal.Repository.Upsert")
	defer span.End()

	signal.UpdatedAt = time.Now().UTC()

	sb := database.NewInsertBuilder()
	sb.InsertInto("image_signals")
	sb.Cols("image_id", "source", "embedding", "attrs", "confidence", "updated_at")
	sb.Values(
		signal.ImageID,
		string(signal.Source),
		database.JSONB[[]float64]{Data: signal.Embedding},
		database.JSONB[models.AttributeSet]{Data: signal.Attributes},
		signal.Confidence,
		signal.UpdatedAt,
	)

	query, args := sb.Build()
	query += " ON CONFLICT (image_id) DO UPDATE SET source = EXCLUDED.source, embedding = EXCLUDED.embedding, attrs = EXCLUDED.attrs, confidence = EXCLUDED.confidence, updated_at = EXCLUDED.updated_at"

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"image_id": signal.ImageID}).Error("Failed to upsert image signal")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert image signal")
	}

	return nil
}

// Get retrieves one signal, or nil when the image has not been processed yet
func (r *Repository) Get(ctx context.Context, imageID string) (*models.ImageSignal, error) {
	ctx, span := tracing.StartSpan(ctx, "imagesignal.Repository.Get")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("image_id", "source", "embedding", "attrs", "confidence", "updated_at")
	sb.From("image_signals")
	sb.Where(sb.Equal("image_id", imageID))

	query, args := sb.Build()
	var row signalRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get image signal")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get image signal")
	}

	signal := row.toModel()
	return &signal, nil
}

// GetByImageIDs retrieves signals for the given ids. Unprocessed images are
// simply absent from the result; the caller scores with what exists.
func (r *Repository) GetByImageIDs(ctx context.Context, imageIDs []string) ([]models.ImageSignal, error) {
	ctx, span := tracing.StartSpan(ctx, "imagesignal.Repository.GetByImageIDs")
	defer span.End()

	if len(imageIDs) == 0 {
		return nil, nil
	}

	sb := database.NewSelectBuilder()
	sb.Select("image_id", "source", "embedding", "attrs", "confidence", "updated_at")
	sb.From("image_signals")
	sb.Where(sb.In("image_id", idsToAny(imageIDs)...))

	query, args := sb.Build()
	var rows []signalRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get image signals")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get image signals")
	}

	signals := make([]models.ImageSignal, len(rows))
	for i, row := range rows {
		signals[i] = row.toModel()
	}
	return signals, nil
}

func idsToAny(ids []string) []any {
	result := make([]any, len(ids))
	for i, id := range ids {
		result[i] = id
	}
	return result
}
