package service

import (
	"context"

	"github.com/xxxsen/kbase/internal/model"
)

// DocumentStore is the slice of the document repository the services
// consume.
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, agentID, docID string) (*model.Document, error)
	ListByKB(ctx context.Context, agentID, kbID string, limit, offset uint) ([]model.Document, error)
	SetChunkCount(ctx context.Context, agentID, docID string, chunkCount int, mtime int64) error
	TransitionStatus(ctx context.Context, agentID, docID string, from []model.ProcessingStatus, to model.ProcessingStatus, errMsg string, mtime int64) (bool, error)
	Delete(ctx context.Context, agentID, docID string) error
	DeleteByKB(ctx context.Context, agentID, kbID string) error
}

// KnowledgeBaseStore is the slice of the knowledge base repository the
// services consume.
type KnowledgeBaseStore interface {
	Create(ctx context.Context, kb *model.KnowledgeBase) error
	GetByID(ctx context.Context, agentID, kbID string) (*model.KnowledgeBase, error)
	List(ctx context.Context, agentID string) ([]model.KnowledgeBase, error)
	Update(ctx context.Context, kb *model.KnowledgeBase) error
	Delete(ctx context.Context, agentID, kbID string) error
}

// QueryUnderstander resolves a raw query into its analysis. Implemented
// by query.Understander.
type QueryUnderstander interface {
	Understand(ctx context.Context, query string) *model.QueryUnderstanding
}
