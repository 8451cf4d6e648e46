package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/kbase/internal/ai"
	"github.com/xxxsen/kbase/internal/model"
	appErr "github.com/xxxsen/kbase/internal/pkg/errors"
	"github.com/xxxsen/kbase/internal/rerank"
	"github.com/xxxsen/kbase/internal/vectorindex"
)

// ErrSearchFailed is returned when every fan-out sub-query failed; a
// partial failure degrades silently instead.
var ErrSearchFailed = fmt.Errorf("%w: all search sub-queries failed", appErr.ErrInternal)

// Synthetic query vocabularies for superlative intents. Combined with
// the top extracted entities they steer recall toward structured blocks
// that plain semantic similarity tends to miss.
var (
	structuredDataTerms  = "tabla precios lista valores"
	multipleOptionsTerms = "opciones planes alternativas disponibles"
	comparativeTerms     = "comparación diferencias entre opciones"
	rangeTerms           = "desde hasta rango precios mínimo máximo"
	comparisonSuffix     = "comparación versus diferencias"
)

const maxSuggestedQueries = 2

// SearchService orchestrates query understanding, weighted fan-out
// retrieval and re-ranking.
type SearchService struct {
	kbs          KnowledgeBaseStore
	understander QueryUnderstander
	embedder     ai.Embedder
	index        vectorindex.Index
	reranker     *rerank.Reranker

	defaultLimit     int
	defaultThreshold float64
}

func NewSearchService(kbs KnowledgeBaseStore, understander QueryUnderstander, embedder ai.Embedder,
	index vectorindex.Index, reranker *rerank.Reranker, defaultLimit int, defaultThreshold float64) *SearchService {
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	if defaultThreshold <= 0 {
		defaultThreshold = 0.7
	}
	return &SearchService{
		kbs:              kbs,
		understander:     understander,
		embedder:         embedder,
		index:            index,
		reranker:         reranker,
		defaultLimit:     defaultLimit,
		defaultThreshold: defaultThreshold,
	}
}

func (s *SearchService) Search(ctx context.Context, agentID, kbID, queryText string, limit int, threshold float64) (*model.RankedResults, error) {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return nil, fmt.Errorf("%w: query is required", appErr.ErrInvalid)
	}
	if _, err := s.kbs.GetByID(ctx, agentID, kbID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if threshold <= 0 {
		threshold = s.defaultThreshold
	}

	u := s.understander.Understand(ctx, queryText)
	queries := BuildFanOut(queryText, u)
	dynamicLimit := limit
	if u.IsSuperlative() || u.IsListLike() {
		dynamicLimit = maxInt(limit*2, 10)
	}

	merged, err := s.fanOut(ctx, agentID, kbID, queries, dynamicLimit)
	if err != nil {
		return nil, err
	}

	ranked := s.reranker.Rerank(merged, queryText, u)
	effective := rerank.EffectiveThreshold(threshold, u)
	filtered := make([]model.ScoredChunk, 0, len(ranked))
	for _, chunk := range ranked {
		if chunk.AdjustedScore >= effective {
			filtered = append(filtered, chunk)
		}
	}

	finalLimit := limit
	switch {
	case u.IsSuperlative():
		finalLimit = maxInt(limit, 8)
	case u.IsListLike():
		finalLimit = maxInt(limit, 5)
	}
	if len(filtered) > finalLimit {
		filtered = filtered[:finalLimit]
	}
	return &model.RankedResults{
		Query:         queryText,
		SearchType:    u.SearchType,
		FanOutQueries: len(queries),
		Results:       filtered,
	}, nil
}

// fanOut issues every weighted query in parallel and merges candidates,
// deduplicating by chunk id with higher-weighted queries winning.
func (s *SearchService) fanOut(ctx context.Context, agentID, kbID string, queries []model.WeightedQuery, dynamicLimit int) ([]model.ScoredChunk, error) {
	filter := vectorindex.Filter{AgentID: agentID, KnowledgeBaseID: kbID}
	searchWidth := maxInt(dynamicLimit*3, 30)

	perQuery := make([][]vectorindex.Match, len(queries))
	var mu sync.Mutex
	failures := 0

	grp, grpCtx := errgroup.WithContext(ctx)
	for i, wq := range queries {
		i, wq := i, wq
		grp.Go(func() error {
			topK := int(math.Ceil(float64(dynamicLimit) * wq.Weight * 2))
			matches, err := s.searchOne(grpCtx, wq, filter, topK, searchWidth)
			if err != nil {
				logutil.GetLogger(grpCtx).Error("sub-query failed",
					zap.String("tag", wq.Tag), zap.Error(err))
				mu.Lock()
				failures++
				mu.Unlock()
				return nil
			}
			perQuery[i] = matches
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	if failures == len(queries) {
		return nil, ErrSearchFailed
	}

	// merge in descending weight order so the first occurrence of a
	// chunk comes from the strongest query
	order := make([]int, len(queries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return queries[order[a]].Weight > queries[order[b]].Weight
	})

	seen := make(map[string]struct{})
	var merged []model.ScoredChunk
	for _, qi := range order {
		for _, match := range perQuery[qi] {
			if _, ok := seen[match.ChunkID]; ok {
				continue
			}
			seen[match.ChunkID] = struct{}{}
			merged = append(merged, model.ScoredChunk{
				ChunkID:        match.ChunkID,
				DocumentID:     match.DocumentID,
				Content:        match.Content,
				BaseSimilarity: match.Score,
				Metadata:       withQueryTag(match.Metadata, queries[qi].Tag),
			})
		}
	}
	return merged, nil
}

func (s *SearchService) searchOne(ctx context.Context, wq model.WeightedQuery, filter vectorindex.Filter, topK, searchWidth int) ([]vectorindex.Match, error) {
	vector, err := s.embedder.Embed(ctx, wq.Text)
	if err != nil {
		return nil, err
	}
	return s.index.Search(ctx, vector, filter, topK, searchWidth)
}

// BuildFanOut expands one query into its weighted fan-out set.
func BuildFanOut(queryText string, u *model.QueryUnderstanding) []model.WeightedQuery {
	queries := []model.WeightedQuery{{Text: queryText, Weight: 1.0, Tag: "original"}}

	suggestedWeights := [maxSuggestedQueries]float64{0.8, 0.7}
	taken := 0
	for _, suggested := range u.SuggestedQueries {
		if taken >= maxSuggestedQueries {
			break
		}
		suggested = strings.TrimSpace(suggested)
		if suggested == "" || strings.EqualFold(suggested, queryText) {
			continue
		}
		queries = append(queries, model.WeightedQuery{
			Text:   suggested,
			Weight: suggestedWeights[taken],
			Tag:    fmt.Sprintf("suggested_%d", taken+1),
		})
		taken++
	}

	if u.IsSuperlative() {
		subject := topEntities(u, 2)
		if subject == "" {
			subject = queryText
		}
		synthetics := []struct {
			terms  string
			weight float64
			tag    string
		}{
			{structuredDataTerms, 1.2, "superlative_structured"},
			{multipleOptionsTerms, 1.1, "superlative_options"},
			{comparativeTerms, 1.0, "superlative_comparative"},
			{rangeTerms, 0.9, "superlative_range"},
		}
		for _, syn := range synthetics {
			queries = append(queries, model.WeightedQuery{
				Text:   subject + " " + syn.terms,
				Weight: syn.weight,
				Tag:    syn.tag,
			})
		}
	}
	if u.IsComparative() {
		queries = append(queries, model.WeightedQuery{
			Text:   queryText + " " + comparisonSuffix,
			Weight: 0.7,
			Tag:    "comparative",
		})
	}
	return queries
}

func topEntities(u *model.QueryUnderstanding, n int) string {
	if len(u.Entities) == 0 {
		return ""
	}
	if len(u.Entities) < n {
		n = len(u.Entities)
	}
	return strings.Join(u.Entities[:n], " ")
}

func withQueryTag(meta map[string]string, tag string) map[string]string {
	out := make(map[string]string, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	out["queryTag"] = tag
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
