package query

import (
	"context"
	"strings"

	"github.com/xxxsen/kbase/internal/model"
)

// heuristicConfidence is deliberately below typical LLM confidences so
// downstream consumers can tell the fallback path apart.
const heuristicConfidence = 0.6

var rankingTerms = []string{
	"más barato", "mas barato", "más caro", "mas caro", "el más", "el mas",
	"la más", "la mas", "mejor", "peor", "cheapest", "most expensive",
	"best", "worst", "highest", "lowest", "top ",
}

var comparisonTerms = []string{
	"compara", "comparar", "comparación", "diferencia entre", "versus",
	" vs ", "compare", "difference between", "better than", "mejor que",
}

var calculationTerms = []string{
	"total", "suma", "sumar", "cuánto cuesta", "cuanto cuesta", "promedio",
	"how much", "calculate", "calcular", "average", "sum of", "cost of",
}

var listTerms = []string{
	"lista", "listado", "todos los", "todas las", "list all", "all the",
	"enumerate", "enumera", "muestra todos",
}

// HeuristicClassifier is the deterministic fallback analyzer. It never
// fails.
type HeuristicClassifier struct{}

func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{}
}

func (c *HeuristicClassifier) Name() string {
	return "heuristic"
}

func (c *HeuristicClassifier) Classify(ctx context.Context, query string) (*model.QueryUnderstanding, error) {
	_ = ctx
	lower := strings.ToLower(query)

	hasRanking := containsAny(lower, rankingTerms)
	hasComparison := containsAny(lower, comparisonTerms)
	hasCalculation := containsAny(lower, calculationTerms)
	hasList := containsAny(lower, listTerms)

	u := &model.QueryUnderstanding{
		Language:            DetectLanguage(query),
		Entities:            ExtractEntities(query),
		Modifiers:           matchedTerms(lower, rankingTerms, comparisonTerms, calculationTerms, listTerms),
		RequiresCalculation: hasCalculation,
		Confidence:          heuristicConfidence,
		SearchType:          model.SearchTypeSimple,
	}
	if hasRanking {
		u.AddIntent(model.IntentSuperlative)
	}
	if hasComparison {
		u.AddIntent(model.IntentComparative)
	}
	if hasCalculation {
		u.AddIntent(model.IntentAggregation)
	}
	if hasList {
		u.AddIntent(model.IntentListAll)
	}

	switch {
	case hasRanking:
		u.SearchType = model.SearchTypeSuperlative
	case hasList:
		u.SearchType = model.SearchTypeListAll
	case hasComparison:
		u.SearchType = model.SearchTypeComparative
	case hasCalculation:
		u.SearchType = model.SearchTypeAnalytical
	}

	u.Complexity = model.ComplexitySimple
	if len(u.Intents) >= 2 || hasCalculation {
		u.Complexity = model.ComplexityComplex
	}
	return u, nil
}

func containsAny(lower string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func matchedTerms(lower string, termLists ...[]string) []string {
	var matched []string
	for _, terms := range termLists {
		for _, term := range terms {
			if strings.Contains(lower, term) {
				matched = append(matched, strings.TrimSpace(term))
			}
		}
	}
	return matched
}
