package handler

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/kbase/internal/pkg/errcode"
	"github.com/xxxsen/kbase/internal/pkg/response"
	"github.com/xxxsen/kbase/internal/service"
)

const maxUploadBytes = 32 << 20

type DocumentHandler struct {
	ingest *service.IngestService
	docs   service.DocumentStore
}

func NewDocumentHandler(ingest *service.IngestService, docs service.DocumentStore) *DocumentHandler {
	return &DocumentHandler{ingest: ingest, docs: docs}
}

// Upload accepts a multipart file and queues it for ingestion. The
// response carries the document in pending state; progress is polled
// via Get.
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file field required")
		return
	}
	if fileHeader.Size > maxUploadBytes {
		response.Error(c, errcode.ErrInvalidFile, "file too large")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "cannot read upload")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "cannot read upload")
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	doc, err := h.ingest.Upload(c.Request.Context(), getAgentID(c), c.Param("kbid"),
		fileHeader.Filename, contentType, data)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	limit := uint(0)
	offset := uint(0)
	if value := c.Query("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = uint(parsed)
		}
	}
	if value := c.Query("offset"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			offset = uint(parsed)
		}
	}
	docs, err := h.docs.ListByKB(c.Request.Context(), getAgentID(c), c.Param("kbid"), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.docs.GetByID(c.Request.Context(), getAgentID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.ingest.Delete(c.Request.Context(), getAgentID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// Reingest restarts the pipeline for a document from its stored source.
func (h *DocumentHandler) Reingest(c *gin.Context) {
	doc, err := h.ingest.Reingest(c.Request.Context(), getAgentID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}
