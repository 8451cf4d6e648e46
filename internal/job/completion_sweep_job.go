package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/model"
	"github.com/xxxsen/kbase/internal/service"
)

const sweepBatchSize = 100

type stuckDocumentLister interface {
	ListByStatusOlderThan(ctx context.Context, status model.ProcessingStatus, beforeMtime int64, limit uint) ([]model.Document, error)
}

// CompletionSweepJob re-runs the completion check for documents that
// stayed in processed: their chunks may all be indexed already, with the
// final chunk-completion trigger lost to a crash or redelivery drop.
type CompletionSweepJob struct {
	docs   stuckDocumentLister
	index  *service.IndexService
	minAge time.Duration
}

func NewCompletionSweepJob(docs stuckDocumentLister, index *service.IndexService, minAge time.Duration) *CompletionSweepJob {
	if minAge <= 0 {
		minAge = 15 * time.Minute
	}
	return &CompletionSweepJob{docs: docs, index: index, minAge: minAge}
}

func (j *CompletionSweepJob) Name() string {
	return "completion_sweep"
}

func (j *CompletionSweepJob) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-j.minAge).UnixMilli()
	docs, err := j.docs.ListByStatusOlderThan(ctx, model.StatusProcessed, cutoff, sweepBatchSize)
	if err != nil {
		return err
	}
	logger := logutil.GetLogger(ctx)
	for _, doc := range docs {
		if err := j.index.CheckCompletion(ctx, doc.AgentID, doc.KnowledgeBaseID, doc.ID); err != nil {
			logger.Error("completion sweep check failed",
				zap.String("document_id", doc.ID), zap.Error(err))
		}
	}
	return nil
}
