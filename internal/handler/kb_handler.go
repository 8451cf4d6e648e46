package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xxxsen/kbase/internal/model"
	"github.com/xxxsen/kbase/internal/pkg/errcode"
	"github.com/xxxsen/kbase/internal/pkg/response"
	"github.com/xxxsen/kbase/internal/service"
)

// KnowledgeBaseDeleter cascades a knowledge base delete through the
// vector index and document rows. Implemented by service.IngestService.
type KnowledgeBaseDeleter interface {
	DeleteKnowledgeBase(ctx context.Context, agentID, kbID string) error
}

// DocumentCounter reports how many documents a knowledge base holds.
// Implemented by repo.DocumentRepo.
type DocumentCounter interface {
	CountByKB(ctx context.Context, agentID, kbID string) (int, error)
}

type KnowledgeBaseHandler struct {
	kbs     service.KnowledgeBaseStore
	docs    DocumentCounter
	deleter KnowledgeBaseDeleter
}

func NewKnowledgeBaseHandler(kbs service.KnowledgeBaseStore, docs DocumentCounter, deleter KnowledgeBaseDeleter) *KnowledgeBaseHandler {
	return &KnowledgeBaseHandler{kbs: kbs, docs: docs, deleter: deleter}
}

type kbRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *KnowledgeBaseHandler) Create(c *gin.Context) {
	var req kbRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.Name == "" {
		response.Error(c, errcode.ErrInvalid, "name required")
		return
	}
	now := time.Now().UnixMilli()
	kb := &model.KnowledgeBase{
		ID:          uuid.NewString(),
		AgentID:     getAgentID(c),
		Name:        req.Name,
		Description: req.Description,
		Ctime:       now,
		Mtime:       now,
	}
	if err := h.kbs.Create(c.Request.Context(), kb); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, kb)
}

func (h *KnowledgeBaseHandler) List(c *gin.Context) {
	kbs, err := h.kbs.List(c.Request.Context(), getAgentID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, kbs)
}

// kbDetail is the Get response: the knowledge base plus its document
// count.
type kbDetail struct {
	*model.KnowledgeBase
	DocumentCount int `json:"document_count"`
}

func (h *KnowledgeBaseHandler) Get(c *gin.Context) {
	agentID := getAgentID(c)
	kbID := c.Param("kbid")
	kb, err := h.kbs.GetByID(c.Request.Context(), agentID, kbID)
	if err != nil {
		handleError(c, err)
		return
	}
	count, err := h.docs.CountByKB(c.Request.Context(), agentID, kbID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, kbDetail{KnowledgeBase: kb, DocumentCount: count})
}

func (h *KnowledgeBaseHandler) Update(c *gin.Context) {
	var req kbRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.Name == "" {
		response.Error(c, errcode.ErrInvalid, "name required")
		return
	}
	agentID := getAgentID(c)
	kb, err := h.kbs.GetByID(c.Request.Context(), agentID, c.Param("kbid"))
	if err != nil {
		handleError(c, err)
		return
	}
	kb.Name = req.Name
	kb.Description = req.Description
	kb.Mtime = time.Now().UnixMilli()
	if err := h.kbs.Update(c.Request.Context(), kb); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, kb)
}

func (h *KnowledgeBaseHandler) Delete(c *gin.Context) {
	if err := h.deleter.DeleteKnowledgeBase(c.Request.Context(), getAgentID(c), c.Param("kbid")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
