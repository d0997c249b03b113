// Package taxonomy scores structural similarity between listing classifications
package taxonomy

import (
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

// FallbackSubcategory is the catch-all sentinel used by the listing store when
// no specific subcategory applies. Matching on it is weak evidence.
const FallbackSubcategory = "Other / Not specified"

const (
	typePoints                = 20
	categoryPoints            = 35
	subcategoryPoints         = 45
	fallbackSubcategoryPoints = 10
	maxScore                  = 100
)

// Score compares two classifications into a 0-100 structural similarity score.
// Only trimmed string equality counts; empty fields never match. A subcategory
// match where either side is the fallback sentinel earns a reduced bonus.
// Pure and symmetric: Score(a, b) == Score(b, a).
func Score(a, b models.TaxonomyFields) int {
	score := 0

	if fieldsEqual(a.Type, b.Type) {
		score += typePoints
	}
	if fieldsEqual(a.Category, b.Category) {
		score += categoryPoints
	}
	if fieldsEqual(a.Subcategory, b.Subcategory) {
		if isFallback(a.Subcategory) || isFallback(b.Subcategory) {
			score += fallbackSubcategoryPoints
		} else {
			score += subcategoryPoints
		}
	}

	if score > maxScore {
		score = maxScore
	}
	return score
}

// MatchedFields lists which classification fields matched, in fixed order,
// for use as human-readable match evidence.
func MatchedFields(a, b models.TaxonomyFields) []string {
	var matched []string
	if fieldsEqual(a.Type, b.Type) {
		matched = append(matched, "type:"+strings.TrimSpace(a.Type))
	}
	if fieldsEqual(a.Category, b.Category) {
		matched = append(matched, "category:"+strings.TrimSpace(a.Category))
	}
	if fieldsEqual(a.Subcategory, b.Subcategory) {
		matched = append(matched, "subcategory:"+strings.TrimSpace(a.Subcategory))
	}
	return matched
}

func fieldsEqual(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	return a != "" && a == b
}

func isFallback(s string) bool {
	return strings.TrimSpace(s) == FallbackSubcategory
}
