package rerank

import (
	"regexp"
	"sort"
	"strings"

	"github.com/xxxsen/kbase/internal/model"
)

// Boost factors. Tunable weights, not a derived model; chosen so that
// structured listings outrank prose when the query asks for rankings or
// exhaustive lists.
const (
	boostPriceTableSorted = 3.0
	boostPriceTable       = 2.0
	boostTableOrList      = 1.5
	boostSortedMarker     = 1.8
	boostListMarker       = 1.6
	boostNumericData      = 1.4
	boostRankingPotential = 1.3
	boostPerMatchingTerm  = 0.15
	boostCalculation      = 1.25

	maxPerDocument = 2
	thresholdFloor = 0.5
)

var (
	numberRegex = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	// markers that a chunk carries an already-sorted price listing
	sortedPriceMarkers = []string{
		"precios ordenados", "ordenado por precio", "ordenados por precio",
		"sorted by price", "price ranking",
	}
	completeListMarkers = []string{
		"lista completa", "listado completo", "complete list", "full list",
		"todos los precios", "all prices",
	}
)

// Reranker reorders retrieval candidates with intent-aware boosts and a
// per-document diversification pass. Deterministic for identical inputs.
type Reranker struct{}

func New() *Reranker {
	return &Reranker{}
}

func (r *Reranker) Rerank(results []model.ScoredChunk, query string, u *model.QueryUnderstanding) []model.ScoredChunk {
	if len(results) == 0 {
		return results
	}
	scored := make([]model.ScoredChunk, len(results))
	copy(scored, results)
	for i := range scored {
		scored[i].AdjustedScore = r.score(&scored[i], u)
	}
	// stable keeps the incoming (weight-merged) order for equal scores
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].AdjustedScore > scored[j].AdjustedScore
	})
	return diversify(scored)
}

func (r *Reranker) score(chunk *model.ScoredChunk, u *model.QueryUnderstanding) float64 {
	score := chunk.BaseSimilarity
	content := strings.ToLower(chunk.Content)

	if u.IsListLike() {
		strongMetadata := false
		switch {
		case chunk.Metadata["blockType"] == "price_table_sorted":
			score *= boostPriceTableSorted
			strongMetadata = true
		case chunk.Metadata["isPriceTable"] == "true":
			score *= boostPriceTable
			strongMetadata = true
		case chunk.Metadata["blockType"] == "table" || chunk.Metadata["blockType"] == "list":
			score *= boostTableOrList
		}
		if !strongMetadata && containsAny(content, sortedPriceMarkers) {
			score *= boostSortedMarker
		} else if containsAny(content, completeListMarkers) {
			score *= boostListMarker
		}
	}

	if u.IsSuperlative() && content != "" {
		hasNumbers := hasNumericData(content)
		if hasNumbers {
			score *= boostNumericData
		}
		if hasNumbers && hasRankingPotential(chunk.Content) {
			score *= boostRankingPotential
		}
		if n := matchingTermCount(content, u); n > 0 {
			score *= 1 + boostPerMatchingTerm*float64(n)
		}
	}

	if u.RequiresCalculation && hasNumericData(content) {
		score *= boostCalculation
	}
	return score
}

// diversify keeps at most two chunks per document in the leading pass
// and appends the rest in their sorted order, trading a little precision
// at the tail for source variety at the head.
func diversify(sorted []model.ScoredChunk) []model.ScoredChunk {
	perDoc := make(map[string]int, len(sorted))
	kept := make([]model.ScoredChunk, 0, len(sorted))
	var excluded []model.ScoredChunk
	for _, chunk := range sorted {
		if perDoc[chunk.DocumentID] < maxPerDocument {
			perDoc[chunk.DocumentID]++
			kept = append(kept, chunk)
			continue
		}
		excluded = append(excluded, chunk)
	}
	return append(kept, excluded...)
}

// EffectiveThreshold adapts the requested score threshold to the query:
// complex queries and calculations tolerate weaker matches, but never
// below the floor.
func EffectiveThreshold(base float64, u *model.QueryUnderstanding) float64 {
	effective := base
	if u.Complexity == model.ComplexityComplex {
		effective *= 0.9
	}
	if u.RequiresCalculation {
		effective *= 0.85
	}
	if effective < thresholdFloor {
		effective = thresholdFloor
	}
	return effective
}

func hasNumericData(content string) bool {
	return numberRegex.MatchString(content)
}

// hasRankingPotential detects repeated structurally-similar lines by
// replacing digits and words with generic tokens and counting duplicate
// shapes. Three lines sharing a shape usually means a table or listing.
func hasRankingPotential(content string) bool {
	lines := strings.Split(content, "\n")
	shapes := make(map[string]int, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		shape := normalizeLine(line)
		shapes[shape]++
		if shapes[shape] >= 3 {
			return true
		}
	}
	return false
}

var (
	digitRunRegex = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	wordRunRegex  = regexp.MustCompile(`[\p{L}]+`)
	spacesRegex   = regexp.MustCompile(`\s+`)
)

func normalizeLine(line string) string {
	line = digitRunRegex.ReplaceAllString(line, "N")
	line = wordRunRegex.ReplaceAllString(line, "W")
	return spacesRegex.ReplaceAllString(line, " ")
}

func matchingTermCount(lowerContent string, u *model.QueryUnderstanding) int {
	seen := map[string]struct{}{}
	count := 0
	for _, term := range append(append([]string{}, u.Entities...), u.Modifiers...) {
		t := strings.ToLower(strings.TrimSpace(term))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if strings.Contains(lowerContent, t) {
			count++
		}
	}
	return count
}

func containsAny(content string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(content, m) {
			return true
		}
	}
	return false
}
