// Package matching combines image signals into scored project/product matches
package matching

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/embeddings"
	"github.com/Ramsey-B/fern/pkg/listing"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/taxonomy"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SignalReader is the image signal store read path used by scoring. Scoring
// never calls the embedding provider or attribute extractor directly.
type SignalReader interface {
	GetByImageIDs(ctx context.Context, imageIDs []string) ([]models.ImageSignal, error)
}

// MatchWriter persists scored matches
type MatchWriter interface {
	Upsert(ctx context.Context, record *models.MatchRecord) error
}

// EventEmitter notifies downstream consumers of upserted matches. May be nil.
type EventEmitter interface {
	EmitMatchUpserted(ctx context.Context, record *models.MatchRecord)
}

// EngineConfig contains configuration for the match engine. The weights and
// thresholds are tunable parameters, not discovered constants; the tier
// ordering invariants are what matters.
type EngineConfig struct {
	MinScore        float64 // Display floor; lower scores are stored for audit but hidden (default: 40)
	StrongThreshold float64 // Score at or above which a match is "strong" (default: 70)
	LikelyThreshold float64 // Score at or above which a match is "likely" (default: 55)
	ManualLinkFloor float64 // Minimum score for a manually linked pair (default: 85)
	EmbeddingWeight float64 // default: 0.5
	AttributeWeight float64 // default: 0.3
	TaxonomyWeight  float64 // default: 0.2
	EvidenceLimit   int     // Maximum evidence image ids per match (default: 5)
	WorkerCount     int     // Bounded concurrency across candidate products (default: 4)
}

// DefaultConfig returns default engine configuration
func DefaultConfig() EngineConfig {
	return EngineConfig{
		MinScore:        40,
		StrongThreshold: 70,
		LikelyThreshold: 55,
		ManualLinkFloor: 85,
		EmbeddingWeight: 0.5,
		AttributeWeight: 0.3,
		TaxonomyWeight:  0.2,
		EvidenceLimit:   5,
		WorkerCount:     4,
	}
}

// Engine scores (project, product) pairs from stored image signals, taxonomy
// fields, and manual links, and upserts one MatchRecord per pair.
type Engine struct {
	logger   ectologger.Logger
	listings listing.Store
	signals  SignalReader
	matches  MatchWriter
	emitter  EventEmitter
	config   EngineConfig
}

// NewEngine creates a new match engine. emitter may be nil.
func NewEngine(
	logger ectologger.Logger,
	listings listing.Store,
	signals SignalReader,
	matches MatchWriter,
	emitter EventEmitter,
	config EngineConfig,
) *Engine {
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	if config.EvidenceLimit < 1 {
		config.EvidenceLimit = DefaultConfig().EvidenceLimit
	}
	return &Engine{
		logger:   logger,
		listings: listings,
		signals:  signals,
		matches:  matches,
		emitter:  emitter,
		config:   config,
	}
}

// projectContext is the per-project state shared by all candidate workers.
// Read-only once built, so safe for concurrent use.
type projectContext struct {
	projectID string
	signals   []models.ImageSignal
	taxonomy  models.TaxonomyFields
}

// ComputeAndUpsertMatches scores every candidate product against the project
// and upserts one match record per pair. Candidates run on a bounded worker
// pool; a failing candidate is reported in Errors and never aborts the rest.
// Context cancellation stops scoring and reports the remaining candidates as
// not processed.
func (e *Engine) ComputeAndUpsertMatches(ctx context.Context, projectID string, productIDs []string) (*models.MatchComputeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.ComputeAndUpsertMatches")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"project_id":      projectID,
		"candidate_count": len(productIDs),
	})

	project, err := e.loadProjectContext(ctx, projectID)
	if err != nil {
		log.WithError(err).Error("Failed to load project for matching")
		return nil, err
	}

	log.Debug("Computing matches")

	jobs := make(chan string, len(productIDs))
	for _, id := range productIDs {
		jobs <- id
	}
	close(jobs)

	type outcome struct {
		productID string
		err       error
	}
	outcomes := make(chan outcome, len(productIDs))

	var wg sync.WaitGroup
	for i := 0; i < e.config.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for productID := range jobs {
				if ctx.Err() != nil {
					outcomes <- outcome{productID: productID, err: fmt.Errorf("not processed: %w", ctx.Err())}
					continue
				}
				outcomes <- outcome{productID: productID, err: e.scoreCandidate(ctx, project, productID)}
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	errsByProduct := make(map[string]error, len(productIDs))
	for o := range outcomes {
		errsByProduct[o.productID] = o.err
	}

	result := &models.MatchComputeResult{Errors: []string{}}
	for _, productID := range productIDs {
		if err, ok := errsByProduct[productID]; ok && err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("product %s: %v", productID, err))
		} else {
			result.Upserted++
		}
	}

	log.WithFields(map[string]any{
		"upserted": result.Upserted,
		"errors":   len(result.Errors),
	}).Info("Computed matches")

	return result, nil
}

func (e *Engine) loadProjectContext(ctx context.Context, projectID string) (*projectContext, error) {
	images, err := e.listings.ListProjectImages(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project images: %w", err)
	}

	imageIDs := make([]string, len(images))
	for i, img := range images {
		imageIDs[i] = img.ImageID
	}

	signals, err := e.signals.GetByImageIDs(ctx, imageIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load project signals: %w", err)
	}

	// Projects without a classification simply contribute no taxonomy signal.
	fields, err := e.listings.GetTaxonomyFields(ctx, listing.TypeProject, projectID)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"project_id": projectID}).Warn("Failed to load project taxonomy, scoring without it")
		fields = models.TaxonomyFields{}
	}

	return &projectContext{
		projectID: projectID,
		signals:   signals,
		taxonomy:  fields,
	}, nil
}

// scoreCandidate runs the full per-candidate pipeline: load signals, build
// reasons, combine, tier, select evidence, upsert.
func (e *Engine) scoreCandidate(ctx context.Context, project *projectContext, productID string) error {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.scoreCandidate")
	defer span.End()

	images, err := e.listings.ListProductImages(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to list product images: %w", err)
	}

	imageIDs := make([]string, len(images))
	for i, img := range images {
		imageIDs[i] = img.ImageID
	}

	productSignals, err := e.signals.GetByImageIDs(ctx, imageIDs)
	if err != nil {
		return fmt.Errorf("failed to load product signals: %w", err)
	}

	productTaxonomy, err := e.listings.GetTaxonomyFields(ctx, listing.TypeProduct, productID)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"product_id": productID}).Warn("Failed to load product taxonomy, scoring without it")
		productTaxonomy = models.TaxonomyFields{}
	}

	manualLink, err := e.listings.HasManualLink(ctx, project.projectID, productID)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"product_id": productID}).Warn("Failed to check manual link, assuming none")
		manualLink = false
	}

	record := e.buildRecord(project, productSignals, productTaxonomy, manualLink, productID)

	if err := e.matches.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to store match: %w", err)
	}

	if e.emitter != nil {
		e.emitter.EmitMatchUpserted(ctx, record)
	}

	return nil
}

// buildRecord is the deterministic scoring core: identical inputs always
// produce the identical score, tier, reasons, and evidence set.
func (e *Engine) buildRecord(project *projectContext, productSignals []models.ImageSignal, productTaxonomy models.TaxonomyFields, manualLink bool, productID string) *models.MatchRecord {
	pairs := rankedPairs(project.signals, productSignals)

	var reasons []models.MatchReason
	var weightedSum, weightTotal float64

	if len(pairs) > 0 {
		best := pairs[0]
		embeddingScore := math.Round(math.Max(0, best.cosine) * 100)
		reasons = append(reasons, models.MatchReason{
			Type:    models.ReasonTypeEmbedding,
			Score:   embeddingScore,
			Matches: []string{best.projectImageID, best.productImageID},
		})
		weightedSum += embeddingScore * e.config.EmbeddingWeight
		weightTotal += e.config.EmbeddingWeight

		attrScore, shared, compared := attributeOverlap(best.projectAttrs, best.productAttrs)
		if compared {
			reasons = append(reasons, models.MatchReason{
				Type:    models.ReasonTypeAttribute,
				Score:   attrScore,
				Matches: shared,
			})
			weightedSum += attrScore * e.config.AttributeWeight
			weightTotal += e.config.AttributeWeight
		}
	}

	if !project.taxonomy.IsEmpty() && !productTaxonomy.IsEmpty() {
		taxScore := float64(taxonomy.Score(project.taxonomy, productTaxonomy))
		reasons = append(reasons, models.MatchReason{
			Type:    models.ReasonTypeTaxonomy,
			Score:   taxScore,
			Matches: taxonomy.MatchedFields(project.taxonomy, productTaxonomy),
		})
		weightedSum += taxScore * e.config.TaxonomyWeight
		weightTotal += e.config.TaxonomyWeight
	}

	// Missing signals redistribute their weight instead of dragging the
	// score toward zero.
	var score float64
	if weightTotal > 0 {
		score = weightedSum / weightTotal
	}

	// A human-confirmed link is ground truth: it floors the score and pins
	// the tier regardless of signal strength.
	tier := e.tierForScore(score)
	if manualLink {
		if score < e.config.ManualLinkFloor {
			score = e.config.ManualLinkFloor
		}
		tier = models.MatchTierVerified
		reasons = append(reasons, models.MatchReason{
			Type:    models.ReasonTypeFrequency,
			Score:   100,
			Matches: []string{"manual_link"},
		})
	}

	return &models.MatchRecord{
		ProjectID:        project.projectID,
		ProductID:        productID,
		Score:            math.Round(score),
		Tier:             tier,
		Reasons:          reasons,
		EvidenceImageIDs: evidenceImages(pairs, e.config.EvidenceLimit),
	}
}

func (e *Engine) tierForScore(score float64) models.MatchTier {
	switch {
	case score >= e.config.StrongThreshold:
		return models.MatchTierStrong
	case score >= e.config.LikelyThreshold:
		return models.MatchTierLikely
	default:
		return models.MatchTierPossible
	}
}

// imagePair is one (project image, product image) comparison
type imagePair struct {
	projectImageID string
	productImageID string
	cosine         float64
	projectAttrs   models.AttributeSet
	productAttrs   models.AttributeSet
}

// rankedPairs computes cosine similarity for every cross pair with two
// non-zero embeddings, sorted best first. Ties break on image ids so the
// evidence set is reproducible.
func rankedPairs(projectSignals, productSignals []models.ImageSignal) []imagePair {
	var pairs []imagePair
	for i := range projectSignals {
		ps := &projectSignals[i]
		if !ps.HasEmbedding() {
			continue
		}
		for j := range productSignals {
			qs := &productSignals[j]
			if !qs.HasEmbedding() {
				continue
			}
			pairs = append(pairs, imagePair{
				projectImageID: ps.ImageID,
				productImageID: qs.ImageID,
				cosine:         embeddings.Cosine(ps.Embedding, qs.Embedding),
				projectAttrs:   ps.Attributes,
				productAttrs:   qs.Attributes,
			})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].cosine != pairs[j].cosine {
			return pairs[i].cosine > pairs[j].cosine
		}
		if pairs[i].projectImageID != pairs[j].projectImageID {
			return pairs[i].projectImageID < pairs[j].projectImageID
		}
		return pairs[i].productImageID < pairs[j].productImageID
	})

	return pairs
}

// attributeOverlap computes the Jaccard similarity per attribute kind present
// on both sides, averaged, scaled to 0-100. compared is false when the two
// sets share no kinds (the attribute signal is then absent, not zero).
func attributeOverlap(a, b models.AttributeSet) (score float64, shared []string, compared bool) {
	kinds := make([]string, 0, len(a))
	for kind := range a {
		if _, ok := b[kind]; ok {
			kinds = append(kinds, kind)
		}
	}
	if len(kinds) == 0 {
		return 0, nil, false
	}
	sort.Strings(kinds)

	var sum float64
	for _, kind := range kinds {
		jaccard, common := jaccardOverlap(a[kind], b[kind])
		sum += jaccard
		for _, tag := range common {
			shared = append(shared, kind+":"+tag)
		}
	}

	return math.Round(sum / float64(len(kinds)) * 100), shared, true
}

func jaccardOverlap(a, b []string) (float64, []string) {
	setA := make(map[string]bool, len(a))
	for _, tag := range a {
		setA[tag] = true
	}
	setB := make(map[string]bool, len(b))
	for _, tag := range b {
		setB[tag] = true
	}

	var common []string
	for tag := range setA {
		if setB[tag] {
			common = append(common, tag)
		}
	}

	unionSize := len(setA) + len(setB) - len(common)
	if unionSize == 0 {
		return 0, nil
	}
	sort.Strings(common)
	return float64(len(common)) / float64(unionSize), common
}

// evidenceImages selects the images behind the strongest pairwise signals,
// deduplicated, capped at limit.
func evidenceImages(pairs []imagePair, limit int) []string {
	seen := make(map[string]bool)
	evidence := []string{}
	for _, pair := range pairs {
		if pair.cosine <= 0 {
			break
		}
		for _, id := range []string{pair.projectImageID, pair.productImageID} {
			if len(evidence) >= limit {
				return evidence
			}
			if !seen[id] {
				seen[id] = true
				evidence = append(evidence, id)
			}
		}
	}
	return evidence
}
