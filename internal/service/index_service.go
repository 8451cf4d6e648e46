package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/ai"
	"github.com/xxxsen/kbase/internal/filestore"
	"github.com/xxxsen/kbase/internal/model"
	appErr "github.com/xxxsen/kbase/internal/pkg/errors"
	"github.com/xxxsen/kbase/internal/queue"
	"github.com/xxxsen/kbase/internal/vectorindex"
)

// IndexService embeds chunk blobs into the vector index and settles the
// document status once every chunk is visible.
type IndexService struct {
	docs     DocumentStore
	blobs    filestore.Store
	embedder ai.Embedder
	index    vectorindex.Index

	completionAttempts int
	completionDelay    time.Duration
	now                func() int64
	sleep              func(ctx context.Context, d time.Duration) error
}

func NewIndexService(docs DocumentStore, blobs filestore.Store, embedder ai.Embedder,
	index vectorindex.Index, completionAttempts int, completionDelay time.Duration) *IndexService {
	if completionAttempts <= 0 {
		completionAttempts = 3
	}
	return &IndexService{
		docs:               docs,
		blobs:              blobs,
		embedder:           embedder,
		index:              index,
		completionAttempts: completionAttempts,
		completionDelay:    completionDelay,
		now:                func() int64 { return time.Now().UnixMilli() },
		sleep:              sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleEmbedMessage is the embed queue handler. Errors propagate so the
// queue redelivers; the whole path is idempotent on chunk id.
func (s *IndexService) HandleEmbedMessage(ctx context.Context, msg *queue.Message) error {
	var task embedTask
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		logutil.GetLogger(ctx).Error("drop malformed embed task", zap.Error(err))
		return nil
	}
	if err := s.EmbedAndIndex(ctx, task.AgentID, task.KnowledgeBaseID, task.DocumentID, task.ChunkID); err != nil {
		if ai.IsRateLimited(err) {
			// expected under provider pressure; redelivery will retry
			logutil.GetLogger(ctx).Warn("embedding rate limited",
				zap.String("chunk_id", task.ChunkID))
		}
		return err
	}
	return s.CheckCompletion(ctx, task.AgentID, task.KnowledgeBaseID, task.DocumentID)
}

// EmbedAndIndex loads one chunk blob, embeds it and upserts the vector.
func (s *IndexService) EmbedAndIndex(ctx context.Context, agentID, kbID, docID, chunkID string) error {
	content, err := filestore.ReadBytes(ctx, s.blobs,
		model.ChunkBlobKey(agentID, kbID, docID, chunkID))
	if err != nil {
		return fmt.Errorf("read chunk blob: %w", err)
	}
	vector, err := s.embedder.Embed(ctx, string(content))
	if err != nil {
		return fmt.Errorf("embed chunk %s: %w", chunkID, err)
	}
	meta, err := s.readMetadata(ctx, agentID, kbID, docID)
	var tags map[string]string
	if err == nil {
		for _, ref := range meta.Chunks {
			if ref.ID == chunkID {
				tags = ref.Tags
				break
			}
		}
	}
	return s.index.Upsert(ctx, []vectorindex.Record{{
		ChunkID:         chunkID,
		DocumentID:      docID,
		KnowledgeBaseID: kbID,
		AgentID:         agentID,
		Content:         string(content),
		Vector:          vector,
		Metadata:        tags,
	}})
}

func (s *IndexService) readMetadata(ctx context.Context, agentID, kbID, docID string) (*model.IngestionMetadata, error) {
	raw, err := filestore.ReadBytes(ctx, s.blobs, model.MetadataBlobKey(agentID, kbID, docID))
	if err != nil {
		return nil, err
	}
	var meta model.IngestionMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// CheckCompletion settles a document to vectorized once the index holds
// as many vectors as the ingestion metadata promises. The index is
// eventually consistent, so the count is polled a bounded number of
// times; if it never converges the status is left untouched and a later
// trigger (another chunk, the sweep job) tries again.
//
// Safe under concurrent invocation: the status update is guarded and the
// target state is idempotent.
func (s *IndexService) CheckCompletion(ctx context.Context, agentID, kbID, docID string) error {
	logger := logutil.GetLogger(ctx).With(zap.String("document_id", docID))
	doc, err := s.docs.GetByID(ctx, agentID, docID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil
		}
		return err
	}
	if doc.Status.Terminal() {
		return nil
	}

	meta, err := s.readMetadata(ctx, agentID, kbID, docID)
	if err != nil || meta.ChunkCount == 0 {
		msg := "ingestion metadata missing or empty"
		if err != nil {
			msg = fmt.Sprintf("ingestion metadata unreadable: %v", err)
		}
		if len(msg) > maxErrorLen {
			msg = msg[:maxErrorLen]
		}
		if _, terr := s.docs.TransitionStatus(ctx, agentID, docID,
			[]model.ProcessingStatus{model.StatusPending, model.StatusProcessing, model.StatusProcessed},
			model.StatusFailed, msg, s.now()); terr != nil {
			return terr
		}
		logger.Error("completion check failed document", zap.String("reason", msg))
		return nil
	}

	filter := vectorindex.Filter{AgentID: agentID, KnowledgeBaseID: kbID, DocumentID: docID}
	for attempt := 0; attempt < s.completionAttempts; attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, s.completionDelay); err != nil {
				return err
			}
		}
		count, err := s.index.Count(ctx, filter)
		if err != nil {
			return err
		}
		if count >= meta.ChunkCount {
			ok, err := s.docs.TransitionStatus(ctx, agentID, docID,
				[]model.ProcessingStatus{model.StatusProcessing, model.StatusProcessed},
				model.StatusVectorized, "", s.now())
			if err != nil {
				return err
			}
			if ok {
				logger.Info("document vectorized", zap.Int("chunks", count))
			}
			return nil
		}
	}
	// not an error: remaining chunks are still in flight
	logger.Info("completion deferred", zap.Int("expected", meta.ChunkCount))
	return nil
}
