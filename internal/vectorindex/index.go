package vectorindex

import (
	"context"
)

// Record is one embedded chunk as stored in the index.
type Record struct {
	ChunkID         string
	DocumentID      string
	KnowledgeBaseID string
	AgentID         string
	Content         string
	Vector          []float32
	Metadata        map[string]string
}

// Filter scopes index operations to a tenant and knowledge base.
// DocumentID further narrows Count/Delete to one document.
type Filter struct {
	AgentID         string
	KnowledgeBaseID string
	DocumentID      string
}

// Match is one search hit. Score is a similarity in [0, 1], higher is
// closer.
type Match struct {
	ChunkID    string
	DocumentID string
	Content    string
	Score      float64
	Metadata   map[string]string
}

// Index stores chunk embeddings and serves similarity search. Upsert is
// idempotent on chunk id so an ingestion retry never duplicates rows.
type Index interface {
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float32, filter Filter, topK int, searchWidth int) ([]Match, error)
	Count(ctx context.Context, filter Filter) (int, error)
	Delete(ctx context.Context, filter Filter) error
}
