package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/chunker"
	"github.com/xxxsen/kbase/internal/extract"
	"github.com/xxxsen/kbase/internal/filestore"
	"github.com/xxxsen/kbase/internal/model"
	appErr "github.com/xxxsen/kbase/internal/pkg/errors"
	"github.com/xxxsen/kbase/internal/queue"
	"github.com/xxxsen/kbase/internal/vectorindex"
)

const maxErrorLen = 1024

// ingestTask asks a worker to chunk one uploaded document.
type ingestTask struct {
	AgentID         string `json:"agent_id"`
	KnowledgeBaseID string `json:"knowledge_base_id"`
	DocumentID      string `json:"document_id"`
}

// embedTask asks a worker to embed and index one chunk.
type embedTask struct {
	AgentID         string `json:"agent_id"`
	KnowledgeBaseID string `json:"knowledge_base_id"`
	DocumentID      string `json:"document_id"`
	ChunkID         string `json:"chunk_id"`
	Position        int    `json:"position"`
}

// IngestService owns the document lifecycle up to the point where every
// chunk is queued for embedding: upload, extraction, chunking, blob
// layout and status bookkeeping.
type IngestService struct {
	docs    DocumentStore
	kbs     KnowledgeBaseStore
	blobs   filestore.Store
	index   vectorindex.Index
	ingestQ queue.Queue
	embedQ  queue.Queue
	chunker *chunker.Chunker
	now     func() int64
}

func NewIngestService(docs DocumentStore, kbs KnowledgeBaseStore, blobs filestore.Store,
	index vectorindex.Index, ingestQ, embedQ queue.Queue, ck *chunker.Chunker) *IngestService {
	return &IngestService{
		docs:    docs,
		kbs:     kbs,
		blobs:   blobs,
		index:   index,
		ingestQ: ingestQ,
		embedQ:  embedQ,
		chunker: ck,
		now:     func() int64 { return time.Now().UnixMilli() },
	}
}

// Upload registers a document, stores the raw payload and queues the
// chunking work. The returned document is in pending state.
func (s *IngestService) Upload(ctx context.Context, agentID, kbID, filename, contentType string, data []byte) (*model.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document payload", appErr.ErrInvalid)
	}
	if _, err := s.kbs.GetByID(ctx, agentID, kbID); err != nil {
		return nil, err
	}
	// reject unsupported formats before persisting anything
	if _, err := extract.Get(contentType, filename); err != nil {
		return nil, fmt.Errorf("%w: %s", appErr.ErrInvalid, err.Error())
	}
	now := s.now()
	doc := &model.Document{
		ID:              uuid.NewString(),
		KnowledgeBaseID: kbID,
		AgentID:         agentID,
		Filename:        filename,
		ContentType:     contentType,
		Status:          model.StatusPending,
		Ctime:           now,
		Mtime:           now,
	}
	key := model.SourceBlobKey(agentID, kbID, doc.ID)
	if err := s.blobs.Save(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, fmt.Errorf("store source blob: %w", err)
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.publishIngest(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *IngestService) publishIngest(ctx context.Context, doc *model.Document) error {
	body, err := json.Marshal(ingestTask{
		AgentID:         doc.AgentID,
		KnowledgeBaseID: doc.KnowledgeBaseID,
		DocumentID:      doc.ID,
	})
	if err != nil {
		return err
	}
	return s.ingestQ.Publish(ctx, body)
}

// HandleIngestMessage is the ingest queue handler.
func (s *IngestService) HandleIngestMessage(ctx context.Context, msg *queue.Message) error {
	var task ingestTask
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		// malformed payloads can never succeed, drop instead of retrying
		logutil.GetLogger(ctx).Error("drop malformed ingest task", zap.Error(err))
		return nil
	}
	return s.Process(ctx, task.AgentID, task.KnowledgeBaseID, task.DocumentID)
}

// Process runs extraction and chunking for one document. Safe to re-run:
// chunk ids are deterministic and blob writes overwrite.
func (s *IngestService) Process(ctx context.Context, agentID, kbID, docID string) error {
	logger := logutil.GetLogger(ctx).With(zap.String("document_id", docID))
	doc, err := s.docs.GetByID(ctx, agentID, docID)
	if err != nil {
		if appErr.IsNotFound(err) {
			logger.Error("ingest task for missing document, drop")
			return nil
		}
		return err
	}
	if doc.Status.Terminal() {
		logger.Info("document already settled, skip", zap.String("status", string(doc.Status)))
		return nil
	}
	if _, err := s.docs.TransitionStatus(ctx, agentID, docID,
		[]model.ProcessingStatus{model.StatusPending, model.StatusProcessing},
		model.StatusProcessing, "", s.now()); err != nil {
		return err
	}

	chunks, err := s.processContent(ctx, agentID, kbID, doc)
	if err != nil {
		s.fail(ctx, agentID, docID, err)
		// extraction and chunking errors are deterministic, retrying the
		// message would fail identically
		logger.Error("ingestion failed", zap.Error(err))
		return nil
	}

	if _, err := s.docs.TransitionStatus(ctx, agentID, docID,
		[]model.ProcessingStatus{model.StatusProcessing},
		model.StatusProcessed, "", s.now()); err != nil {
		return err
	}
	for _, chunk := range chunks {
		body, err := json.Marshal(embedTask{
			AgentID:         agentID,
			KnowledgeBaseID: kbID,
			DocumentID:      docID,
			ChunkID:         chunk.ID,
			Position:        chunk.Position,
		})
		if err != nil {
			return err
		}
		if err := s.embedQ.Publish(ctx, body); err != nil {
			return err
		}
	}
	logger.Info("document chunked", zap.Int("chunks", len(chunks)))
	return nil
}

func (s *IngestService) processContent(ctx context.Context, agentID, kbID string, doc *model.Document) ([]model.DocumentChunk, error) {
	raw, err := filestore.ReadBytes(ctx, s.blobs, model.SourceBlobKey(agentID, kbID, doc.ID))
	if err != nil {
		return nil, fmt.Errorf("read source blob: %w", err)
	}
	extractor, err := extract.Get(doc.ContentType, doc.Filename)
	if err != nil {
		return nil, err
	}
	text, err := extractor.Extract(ctx, raw)
	if err != nil {
		return nil, err
	}
	chunks, err := s.chunker.Chunk(text, doc.ID, kbID)
	if err != nil {
		return nil, err
	}

	meta := model.IngestionMetadata{
		DocumentID:      doc.ID,
		KnowledgeBaseID: kbID,
		AgentID:         agentID,
		ChunkCount:      len(chunks),
		ChunkSize:       s.chunker.ChunkSize(),
		ChunkOverlap:    s.chunker.ChunkOverlap(),
		Chunks:          make([]model.ChunkRef, 0, len(chunks)),
	}
	for _, chunk := range chunks {
		key := model.ChunkBlobKey(agentID, kbID, doc.ID, chunk.ID)
		if err := filestore.SaveBytes(ctx, s.blobs, key, []byte(chunk.Content)); err != nil {
			return nil, fmt.Errorf("store chunk blob: %w", err)
		}
		meta.Chunks = append(meta.Chunks, model.ChunkRef{
			ID:         chunk.ID,
			Position:   chunk.Position,
			TokenCount: chunk.TokenCount,
			Tags:       TagChunkContent(chunk.Content),
		})
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	if err := filestore.SaveBytes(ctx, s.blobs, model.MetadataBlobKey(agentID, kbID, doc.ID), metaBytes); err != nil {
		return nil, fmt.Errorf("store ingestion metadata: %w", err)
	}
	if err := s.docs.SetChunkCount(ctx, agentID, doc.ID, len(chunks), s.now()); err != nil {
		return nil, err
	}
	return chunks, nil
}

func (s *IngestService) fail(ctx context.Context, agentID, docID string, cause error) {
	msg := cause.Error()
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	if _, err := s.docs.TransitionStatus(ctx, agentID, docID,
		[]model.ProcessingStatus{model.StatusPending, model.StatusProcessing, model.StatusProcessed},
		model.StatusFailed, msg, s.now()); err != nil {
		logutil.GetLogger(ctx).Error("mark document failed",
			zap.String("document_id", docID), zap.Error(err))
	}
}

// Reingest wipes a document's vectors and restarts its pipeline from the
// stored source blob.
func (s *IngestService) Reingest(ctx context.Context, agentID, docID string) (*model.Document, error) {
	doc, err := s.docs.GetByID(ctx, agentID, docID)
	if err != nil {
		return nil, err
	}
	if err := s.index.Delete(ctx, vectorindex.Filter{
		AgentID:         agentID,
		KnowledgeBaseID: doc.KnowledgeBaseID,
		DocumentID:      docID,
	}); err != nil {
		return nil, err
	}
	if _, err := s.docs.TransitionStatus(ctx, agentID, docID,
		[]model.ProcessingStatus{model.StatusPending, model.StatusProcessing,
			model.StatusProcessed, model.StatusVectorized, model.StatusFailed},
		model.StatusPending, "", s.now()); err != nil {
		return nil, err
	}
	doc.Status = model.StatusPending
	doc.Error = ""
	if err := s.publishIngest(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes a document's vectors and its database row. Blobs are
// left behind and reclaimed out of band.
func (s *IngestService) Delete(ctx context.Context, agentID, docID string) error {
	doc, err := s.docs.GetByID(ctx, agentID, docID)
	if err != nil {
		return err
	}
	if err := s.index.Delete(ctx, vectorindex.Filter{
		AgentID:         agentID,
		KnowledgeBaseID: doc.KnowledgeBaseID,
		DocumentID:      docID,
	}); err != nil {
		return err
	}
	return s.docs.Delete(ctx, agentID, docID)
}

// DeleteKnowledgeBase removes a knowledge base with its vectors and
// document rows. Blobs are left behind and reclaimed out of band.
func (s *IngestService) DeleteKnowledgeBase(ctx context.Context, agentID, kbID string) error {
	if _, err := s.kbs.GetByID(ctx, agentID, kbID); err != nil {
		return err
	}
	if err := s.index.Delete(ctx, vectorindex.Filter{
		AgentID:         agentID,
		KnowledgeBaseID: kbID,
	}); err != nil {
		return err
	}
	if err := s.docs.DeleteByKB(ctx, agentID, kbID); err != nil {
		return err
	}
	return s.kbs.Delete(ctx, agentID, kbID)
}

// Requeue republishes the ingest task for a stuck document. Used by the
// retry job.
func (s *IngestService) Requeue(ctx context.Context, doc *model.Document) error {
	return s.publishIngest(ctx, doc)
}
