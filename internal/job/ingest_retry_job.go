package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/model"
	"github.com/xxxsen/kbase/internal/service"
)

// IngestRetryJob requeues documents stuck in pending or processing,
// typically after a crash between the status update and the queue
// publish. Requeueing is safe: the whole pipeline is idempotent.
type IngestRetryJob struct {
	docs   stuckDocumentLister
	ingest *service.IngestService
	minAge time.Duration
}

func NewIngestRetryJob(docs stuckDocumentLister, ingest *service.IngestService, minAge time.Duration) *IngestRetryJob {
	if minAge <= 0 {
		minAge = 15 * time.Minute
	}
	return &IngestRetryJob{docs: docs, ingest: ingest, minAge: minAge}
}

func (j *IngestRetryJob) Name() string {
	return "ingest_retry"
}

func (j *IngestRetryJob) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-j.minAge).UnixMilli()
	logger := logutil.GetLogger(ctx)
	for _, status := range []model.ProcessingStatus{model.StatusPending, model.StatusProcessing} {
		docs, err := j.docs.ListByStatusOlderThan(ctx, status, cutoff, sweepBatchSize)
		if err != nil {
			return err
		}
		for i := range docs {
			doc := docs[i]
			if err := j.ingest.Requeue(ctx, &doc); err != nil {
				logger.Error("requeue stuck document failed",
					zap.String("document_id", doc.ID), zap.Error(err))
				continue
			}
			logger.Info("stuck document requeued",
				zap.String("document_id", doc.ID), zap.String("status", string(status)))
		}
	}
	return nil
}
