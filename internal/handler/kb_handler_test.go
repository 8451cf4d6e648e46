package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/kbase/internal/middleware"
	"github.com/xxxsen/kbase/internal/model"
	appErr "github.com/xxxsen/kbase/internal/pkg/errors"
)

type stubKBStore struct {
	kb *model.KnowledgeBase
}

func (s *stubKBStore) Create(ctx context.Context, kb *model.KnowledgeBase) error { return nil }

func (s *stubKBStore) GetByID(ctx context.Context, agentID, kbID string) (*model.KnowledgeBase, error) {
	if s.kb != nil && s.kb.ID == kbID && s.kb.AgentID == agentID {
		cp := *s.kb
		return &cp, nil
	}
	return nil, appErr.ErrNotFound
}

func (s *stubKBStore) List(ctx context.Context, agentID string) ([]model.KnowledgeBase, error) {
	return nil, nil
}

func (s *stubKBStore) Update(ctx context.Context, kb *model.KnowledgeBase) error { return nil }

func (s *stubKBStore) Delete(ctx context.Context, agentID, kbID string) error { return nil }

type stubDocCounter struct {
	count int
}

func (s *stubDocCounter) CountByKB(ctx context.Context, agentID, kbID string) (int, error) {
	return s.count, nil
}

func TestKnowledgeBaseGetIncludesDocumentCount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewKnowledgeBaseHandler(
		&stubKBStore{kb: &model.KnowledgeBase{ID: "kb-1", AgentID: "agent-1", Name: "docs"}},
		&stubDocCounter{count: 3},
		nil,
	)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/knowledge-bases/kb-1", nil)
	c.Params = gin.Params{{Key: "kbid", Value: "kb-1"}}
	c.Set(middleware.ContextAgentIDKey, "agent-1")

	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"document_count":3`)
	require.Contains(t, w.Body.String(), `"name":"docs"`)
}

func TestKnowledgeBaseGetUnknownID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewKnowledgeBaseHandler(&stubKBStore{}, &stubDocCounter{}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/knowledge-bases/missing", nil)
	c.Params = gin.Params{{Key: "kbid", Value: "missing"}}
	c.Set(middleware.ContextAgentIDKey, "agent-1")

	h.Get(c)
	require.NotContains(t, w.Body.String(), `"document_count"`)
}
