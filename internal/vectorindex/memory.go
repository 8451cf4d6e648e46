package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is a map-backed Index used by tests and local development.
type MemoryIndex struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{records: map[string]Record{}}
}

func (idx *MemoryIndex) Upsert(ctx context.Context, records []Record) error {
	_ = ctx
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, rec := range records {
		idx.records[rec.ChunkID] = rec
	}
	return nil
}

func (idx *MemoryIndex) Search(ctx context.Context, vector []float32, filter Filter, topK int, searchWidth int) ([]Match, error) {
	_ = ctx
	_ = searchWidth
	if topK <= 0 {
		return nil, nil
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var matches []Match
	for _, rec := range idx.records {
		if !matchesFilter(rec, filter) {
			continue
		}
		matches = append(matches, Match{
			ChunkID:    rec.ChunkID,
			DocumentID: rec.DocumentID,
			Content:    rec.Content,
			Score:      clampScore(cosineSimilarity(vector, rec.Vector)),
			Metadata:   rec.Metadata,
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (idx *MemoryIndex) Count(ctx context.Context, filter Filter) (int, error) {
	_ = ctx
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	count := 0
	for _, rec := range idx.records {
		if matchesFilter(rec, filter) {
			count++
		}
	}
	return count, nil
}

func (idx *MemoryIndex) Delete(ctx context.Context, filter Filter) error {
	_ = ctx
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for id, rec := range idx.records {
		if matchesFilter(rec, filter) {
			delete(idx.records, id)
		}
	}
	return nil
}

func matchesFilter(rec Record, filter Filter) bool {
	if filter.AgentID != "" && rec.AgentID != filter.AgentID {
		return false
	}
	if filter.KnowledgeBaseID != "" && rec.KnowledgeBaseID != filter.KnowledgeBaseID {
		return false
	}
	if filter.DocumentID != "" && rec.DocumentID != filter.DocumentID {
		return false
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
