package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/kbase/internal/ai"
	"github.com/xxxsen/kbase/internal/model"
	"github.com/xxxsen/kbase/internal/queue"
	"github.com/xxxsen/kbase/internal/vectorindex"
)

func newIndexFixture(t *testing.T, f *ingestFixture, attempts int) *IndexService {
	t.Helper()
	embedder := &fakeEmbedder{def: []float32{0.5, 0.5, 0}}
	svc := NewIndexService(f.docs, f.blobs, embedder, f.index, attempts, time.Millisecond)
	svc.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return svc
}

func ingestDocument(t *testing.T, f *ingestFixture) (*model.Document, []embedTask) {
	t.Helper()
	ctx := context.Background()
	doc, err := f.svc.Upload(ctx, testAgent, testKB, "manual.txt", "text/plain", sampleDocument())
	require.NoError(t, err)
	require.NoError(t, f.svc.Process(ctx, testAgent, testKB, doc.ID))
	var tasks []embedTask
	for _, body := range f.embedQ.drain() {
		var task embedTask
		require.NoError(t, json.Unmarshal(body, &task))
		tasks = append(tasks, task)
	}
	require.NotEmpty(t, tasks)
	return doc, tasks
}

func TestEmbedAllChunksVectorizesDocument(t *testing.T) {
	f := newIngestFixture(t)
	idx := newIndexFixture(t, f, 3)
	ctx := context.Background()

	doc, tasks := ingestDocument(t, f)
	for _, task := range tasks {
		body, err := json.Marshal(task)
		require.NoError(t, err)
		require.NoError(t, idx.HandleEmbedMessage(ctx, &queue.Message{ID: task.ChunkID, Body: body}))
	}

	got, err := f.docs.GetByID(ctx, testAgent, doc.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusVectorized, got.Status)

	count, err := f.index.Count(ctx, vectorindex.Filter{
		AgentID: testAgent, KnowledgeBaseID: testKB, DocumentID: doc.ID})
	require.NoError(t, err)
	require.Equal(t, got.ChunkCount, count)
}

func TestEmbedRedeliveryDoesNotDuplicate(t *testing.T) {
	f := newIngestFixture(t)
	idx := newIndexFixture(t, f, 3)
	ctx := context.Background()

	doc, tasks := ingestDocument(t, f)
	for _, task := range tasks {
		require.NoError(t, idx.EmbedAndIndex(ctx, task.AgentID, task.KnowledgeBaseID, task.DocumentID, task.ChunkID))
		require.NoError(t, idx.EmbedAndIndex(ctx, task.AgentID, task.KnowledgeBaseID, task.DocumentID, task.ChunkID))
	}
	count, err := f.index.Count(ctx, vectorindex.Filter{
		AgentID: testAgent, KnowledgeBaseID: testKB, DocumentID: doc.ID})
	require.NoError(t, err)
	require.Equal(t, len(tasks), count)
}

func TestCheckCompletionDefersWhileChunksInFlight(t *testing.T) {
	f := newIngestFixture(t)
	idx := newIndexFixture(t, f, 2)
	ctx := context.Background()

	doc, tasks := ingestDocument(t, f)
	// index only the first chunk
	require.NoError(t, idx.EmbedAndIndex(ctx, tasks[0].AgentID, tasks[0].KnowledgeBaseID, tasks[0].DocumentID, tasks[0].ChunkID))
	require.NoError(t, idx.CheckCompletion(ctx, testAgent, testKB, doc.ID))

	got, err := f.docs.GetByID(ctx, testAgent, doc.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusProcessed, got.Status)
}

func TestCheckCompletionShortCircuitsTerminalStates(t *testing.T) {
	f := newIngestFixture(t)
	idx := newIndexFixture(t, f, 3)
	ctx := context.Background()

	doc, _ := ingestDocument(t, f)
	ok, err := f.docs.TransitionStatus(ctx, testAgent, doc.ID,
		[]model.ProcessingStatus{model.StatusProcessed}, model.StatusVectorized, "", time.Now().UnixMilli())
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, idx.CheckCompletion(ctx, testAgent, testKB, doc.ID))
	got, err := f.docs.GetByID(ctx, testAgent, doc.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusVectorized, got.Status)
}

func TestCheckCompletionFailsWithoutMetadata(t *testing.T) {
	f := newIngestFixture(t)
	idx := newIndexFixture(t, f, 3)
	ctx := context.Background()

	// document row exists but chunking never wrote metadata.json
	doc := &model.Document{
		ID: "doc-x", KnowledgeBaseID: testKB, AgentID: testAgent,
		Filename: "a.txt", ContentType: "text/plain", Status: model.StatusProcessed,
	}
	require.NoError(t, f.docs.Create(ctx, doc))

	require.NoError(t, idx.CheckCompletion(ctx, testAgent, testKB, doc.ID))
	got, err := f.docs.GetByID(ctx, testAgent, doc.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusFailed, got.Status)
	require.NotEmpty(t, got.Error)
}

func TestHandleEmbedMessageSurfacesRateLimitForRedelivery(t *testing.T) {
	f := newIngestFixture(t)
	idx := newIndexFixture(t, f, 3)
	ctx := context.Background()

	doc, tasks := ingestDocument(t, f)
	embedder := &fakeEmbedder{err: fmt.Errorf("embed: %w", ai.ErrRateLimited)}
	idx.embedder = embedder

	body, err := json.Marshal(tasks[0])
	require.NoError(t, err)
	err = idx.HandleEmbedMessage(ctx, &queue.Message{ID: tasks[0].ChunkID, Body: body})
	require.Error(t, err)
	require.True(t, ai.IsRateLimited(err))

	// nothing settled: the document waits for redelivery
	got, err := f.docs.GetByID(ctx, testAgent, doc.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusProcessed, got.Status)
}

func TestHandleEmbedMessageDropsMalformed(t *testing.T) {
	f := newIngestFixture(t)
	idx := newIndexFixture(t, f, 3)
	require.NoError(t, idx.HandleEmbedMessage(context.Background(),
		&queue.Message{ID: "m", Body: []byte("{broken")}))
}
