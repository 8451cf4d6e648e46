package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/kbase/internal/pkg/errcode"
	"github.com/xxxsen/kbase/internal/pkg/response"
	"github.com/xxxsen/kbase/internal/service"
)

type SearchHandler struct {
	search *service.SearchService
}

func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

type searchRequest struct {
	Query     string  `json:"query"`
	Limit     int     `json:"limit"`
	Threshold float64 `json:"threshold"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	results, err := h.search.Search(c.Request.Context(), getAgentID(c), c.Param("kbid"),
		req.Query, req.Limit, req.Threshold)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, results)
}
