package service

import (
	"context"
	"sync"

	"github.com/xxxsen/kbase/internal/model"
	appErr "github.com/xxxsen/kbase/internal/pkg/errors"
	"github.com/xxxsen/kbase/internal/queue"
)

type fakeDocStore struct {
	mu   sync.Mutex
	docs map[string]*model.Document
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: map[string]*model.Document{}}
}

func (f *fakeDocStore) Create(ctx context.Context, doc *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[doc.ID]; ok {
		return appErr.ErrConflict
	}
	cp := *doc
	f.docs[doc.ID] = &cp
	return nil
}

func (f *fakeDocStore) GetByID(ctx context.Context, agentID, docID string) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[docID]
	if !ok || doc.AgentID != agentID {
		return nil, appErr.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (f *fakeDocStore) ListByKB(ctx context.Context, agentID, kbID string, limit, offset uint) ([]model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Document
	for _, doc := range f.docs {
		if doc.AgentID == agentID && doc.KnowledgeBaseID == kbID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *fakeDocStore) SetChunkCount(ctx context.Context, agentID, docID string, chunkCount int, mtime int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[docID]
	if !ok || doc.AgentID != agentID {
		return appErr.ErrNotFound
	}
	doc.ChunkCount = chunkCount
	doc.Mtime = mtime
	return nil
}

func (f *fakeDocStore) TransitionStatus(ctx context.Context, agentID, docID string, from []model.ProcessingStatus, to model.ProcessingStatus, errMsg string, mtime int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[docID]
	if !ok || doc.AgentID != agentID {
		return false, nil
	}
	for _, s := range from {
		if doc.Status == s {
			doc.Status = to
			doc.Error = errMsg
			doc.Mtime = mtime
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDocStore) Delete(ctx context.Context, agentID, docID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[docID]
	if !ok || doc.AgentID != agentID {
		return appErr.ErrNotFound
	}
	delete(f.docs, docID)
	return nil
}

func (f *fakeDocStore) DeleteByKB(ctx context.Context, agentID, kbID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, doc := range f.docs {
		if doc.AgentID == agentID && doc.KnowledgeBaseID == kbID {
			delete(f.docs, id)
		}
	}
	return nil
}

type fakeKBStore struct {
	mu  sync.Mutex
	kbs map[string]*model.KnowledgeBase
}

func newFakeKBStore(seed ...*model.KnowledgeBase) *fakeKBStore {
	f := &fakeKBStore{kbs: map[string]*model.KnowledgeBase{}}
	for _, kb := range seed {
		f.kbs[kb.ID] = kb
	}
	return f
}

func (f *fakeKBStore) Create(ctx context.Context, kb *model.KnowledgeBase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.kbs[kb.ID]; ok {
		return appErr.ErrConflict
	}
	cp := *kb
	f.kbs[kb.ID] = &cp
	return nil
}

func (f *fakeKBStore) GetByID(ctx context.Context, agentID, kbID string) (*model.KnowledgeBase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kb, ok := f.kbs[kbID]
	if !ok || kb.AgentID != agentID {
		return nil, appErr.ErrNotFound
	}
	cp := *kb
	return &cp, nil
}

func (f *fakeKBStore) List(ctx context.Context, agentID string) ([]model.KnowledgeBase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.KnowledgeBase
	for _, kb := range f.kbs {
		if kb.AgentID == agentID {
			out = append(out, *kb)
		}
	}
	return out, nil
}

func (f *fakeKBStore) Update(ctx context.Context, kb *model.KnowledgeBase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.kbs[kb.ID]
	if !ok || existing.AgentID != kb.AgentID {
		return appErr.ErrNotFound
	}
	cp := *kb
	f.kbs[kb.ID] = &cp
	return nil
}

func (f *fakeKBStore) Delete(ctx context.Context, agentID, kbID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kb, ok := f.kbs[kbID]
	if !ok || kb.AgentID != agentID {
		return appErr.ErrNotFound
	}
	delete(f.kbs, kbID)
	return nil
}

// captureQueue records published bodies for synchronous draining in
// tests.
type captureQueue struct {
	mu     sync.Mutex
	bodies [][]byte
}

func (q *captureQueue) Publish(ctx context.Context, body []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.bodies = append(q.bodies, body)
	return nil
}

func (q *captureQueue) Start(ctx context.Context, handler queue.Handler) {}

func (q *captureQueue) Stop() {}

func (q *captureQueue) drain() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.bodies
	q.bodies = nil
	return out
}

// fakeEmbedder returns canned vectors by exact text, or a fixed default.
type fakeEmbedder struct {
	vectors map[string][]float32
	def     []float32
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return f.def, nil
}

type fakeUnderstander struct {
	result *model.QueryUnderstanding
}

func (f *fakeUnderstander) Understand(ctx context.Context, query string) *model.QueryUnderstanding {
	return f.result
}
