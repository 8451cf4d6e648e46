package rerank

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/kbase/internal/model"
)

func listUnderstanding() *model.QueryUnderstanding {
	return &model.QueryUnderstanding{
		SearchType: model.SearchTypeListAll,
		Intents:    []string{model.IntentListAll},
		Complexity: model.ComplexitySimple,
	}
}

func TestRerankPriceTableBoost(t *testing.T) {
	r := New()
	results := []model.ScoredChunk{
		{ChunkID: "a", DocumentID: "d1", Content: "prose about plans", BaseSimilarity: 0.85},
		{ChunkID: "b", DocumentID: "d2", Content: "plan basico 10", BaseSimilarity: 0.8,
			Metadata: map[string]string{"isPriceTable": "true"}},
	}
	ranked := r.Rerank(results, "lista de precios", listUnderstanding())
	require.Equal(t, "b", ranked[0].ChunkID)
	require.InDelta(t, 1.6, ranked[0].AdjustedScore, 1e-9)
	require.InDelta(t, 0.85, ranked[1].AdjustedScore, 1e-9)
}

func TestRerankBoostPriority(t *testing.T) {
	r := New()
	results := []model.ScoredChunk{
		{ChunkID: "sorted", DocumentID: "d1", Content: "x", BaseSimilarity: 0.5,
			Metadata: map[string]string{"blockType": "price_table_sorted", "isPriceTable": "true"}},
		{ChunkID: "table", DocumentID: "d2", Content: "x", BaseSimilarity: 0.5,
			Metadata: map[string]string{"blockType": "table"}},
	}
	ranked := r.Rerank(results, "lista", listUnderstanding())
	require.Equal(t, "sorted", ranked[0].ChunkID)
	require.InDelta(t, 0.5*3.0, ranked[0].AdjustedScore, 1e-9)
	require.InDelta(t, 0.5*1.5, ranked[1].AdjustedScore, 1e-9)
}

func TestRerankContentMarkers(t *testing.T) {
	r := New()
	u := listUnderstanding()
	results := []model.ScoredChunk{
		// strong metadata already applied: the sorted marker must not stack
		{ChunkID: "meta", DocumentID: "d1", BaseSimilarity: 0.5,
			Content:  "precios ordenados de menor a mayor",
			Metadata: map[string]string{"isPriceTable": "true"}},
		{ChunkID: "marker", DocumentID: "d2", BaseSimilarity: 0.5,
			Content: "precios ordenados de menor a mayor"},
		{ChunkID: "complete", DocumentID: "d3", BaseSimilarity: 0.5,
			Content: "lista completa de planes"},
	}
	ranked := r.Rerank(results, "lista", u)
	byID := map[string]float64{}
	for _, c := range ranked {
		byID[c.ChunkID] = c.AdjustedScore
	}
	require.InDelta(t, 0.5*2.0, byID["meta"], 1e-9)
	require.InDelta(t, 0.5*1.8, byID["marker"], 1e-9)
	require.InDelta(t, 0.5*1.6, byID["complete"], 1e-9)
}

func TestRerankSuperlativeBoosts(t *testing.T) {
	r := New()
	u := &model.QueryUnderstanding{
		SearchType: model.SearchTypeSuperlative,
		Intents:    []string{model.IntentSuperlative},
		Entities:   []string{"Plan Hogar"},
		Modifiers:  []string{"barato"},
		Complexity: model.ComplexitySimple,
	}
	table := "plan hogar 100: $20\nplan pro 300: $35\nplan max 500: $50"
	results := []model.ScoredChunk{
		{ChunkID: "rich", DocumentID: "d1", Content: table + "\nel plan hogar es el mas barato", BaseSimilarity: 0.5},
		{ChunkID: "plain", DocumentID: "d2", Content: "sin datos numericos aqui", BaseSimilarity: 0.5},
	}
	ranked := r.Rerank(results, "cuál es el más barato", u)
	require.Equal(t, "rich", ranked[0].ChunkID)
	// numeric ×1.4, ranking potential ×1.3, both terms present ×1.3
	require.InDelta(t, 0.5*1.4*1.3*(1+0.15*2), ranked[0].AdjustedScore, 1e-9)
	require.InDelta(t, 0.5, ranked[1].AdjustedScore, 1e-9)
}

func TestRerankCalculationBoost(t *testing.T) {
	r := New()
	u := &model.QueryUnderstanding{
		SearchType:          model.SearchTypeAnalytical,
		RequiresCalculation: true,
		Complexity:          model.ComplexityComplex,
	}
	results := []model.ScoredChunk{
		{ChunkID: "numbers", DocumentID: "d1", Content: "total: 42", BaseSimilarity: 0.6},
		{ChunkID: "words", DocumentID: "d2", Content: "sin cifras", BaseSimilarity: 0.6},
	}
	ranked := r.Rerank(results, "cuánto cuesta en total", u)
	require.Equal(t, "numbers", ranked[0].ChunkID)
	require.InDelta(t, 0.6*1.25, ranked[0].AdjustedScore, 1e-9)
}

func TestDiversifyKeepsTwoPerDocument(t *testing.T) {
	sorted := []model.ScoredChunk{
		{ChunkID: "a1", DocumentID: "a"},
		{ChunkID: "a2", DocumentID: "a"},
		{ChunkID: "a3", DocumentID: "a"},
		{ChunkID: "b1", DocumentID: "b"},
		{ChunkID: "a4", DocumentID: "a"},
		{ChunkID: "c1", DocumentID: "c"},
	}
	got := diversify(sorted)
	ids := make([]string, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.ChunkID)
	}
	// excluded chunks keep their relative order at the tail
	require.Equal(t, []string{"a1", "a2", "b1", "c1", "a3", "a4"}, ids)
	require.Len(t, got, len(sorted))
}

func TestEffectiveThreshold(t *testing.T) {
	simple := &model.QueryUnderstanding{Complexity: model.ComplexitySimple}
	complexU := &model.QueryUnderstanding{Complexity: model.ComplexityComplex}
	calcU := &model.QueryUnderstanding{Complexity: model.ComplexityComplex, RequiresCalculation: true}

	require.InDelta(t, 0.7, EffectiveThreshold(0.7, simple), 1e-9)
	require.InDelta(t, 0.7*0.9, EffectiveThreshold(0.7, complexU), 1e-9)
	require.InDelta(t, 0.7*0.9*0.85, EffectiveThreshold(0.7, calcU), 1e-9)
	// the floor clamps from below, even for permissive requests
	require.InDelta(t, 0.5, EffectiveThreshold(0.4, simple), 1e-9)
	require.InDelta(t, 0.5, EffectiveThreshold(0.55, calcU), 1e-9)
}

func TestHasRankingPotential(t *testing.T) {
	require.True(t, hasRankingPotential("plan a: $10\nplan b: $20\nplan c: $30"))
	require.False(t, hasRankingPotential("one line only"))
	require.False(t, hasRankingPotential("alpha\n42\nmixed shapes here entirely"))
}
