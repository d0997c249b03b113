package models

import "time"

// MatchTier is the discrete confidence bucket of a match, ordered from most
// to least confident. The "verified" filter value on the query side means
// the union {verified, strong, likely}.
type MatchTier string

const (
	MatchTierVerified MatchTier = "verified"
	MatchTierStrong   MatchTier = "strong"
	MatchTierLikely   MatchTier = "likely"
	MatchTierPossible MatchTier = "possible"
)

// ReasonType identifies which signal produced a match reason
type ReasonType string

const (
	ReasonTypeEmbedding ReasonType = "embedding"
	ReasonTypeAttribute ReasonType = "attribute"
	ReasonTypeTaxonomy  ReasonType = "taxonomy"
	ReasonTypeFrequency ReasonType = "frequency"
)

// MatchReason explains one signal's contribution to a match score
type MatchReason struct {
	Type    ReasonType `json:"type"`
	Score   float64    `json:"score"`
	Matches []string   `json:"matches,omitempty"`
}

// MatchRecord is one scored (project, product) pair. Unique per pair;
// recomputation overwrites, never duplicates.
type MatchRecord struct {
	ID               string        `json:"id"`
	ProjectID        string        `json:"project_id"`
	ProductID        string        `json:"product_id"`
	Score            float64       `json:"score"`
	Tier             MatchTier     `json:"tier"`
	Reasons          []MatchReason `json:"reasons"`
	EvidenceImageIDs []string      `json:"evidence_image_ids"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// MatchComputeResult is the outcome of a compute-and-upsert run over a
// candidate list. Errors are per-candidate and never abort the run.
type MatchComputeResult struct {
	Upserted int      `json:"upserted"`
	Errors   []string `json:"errors"`
}

// TierFilter values accepted by the query layer
const (
	TierFilterAll      = "all"
	TierFilterVerified = "verified"
	TierFilterPossible = "possible"
)
