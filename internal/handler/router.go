package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/kbase/internal/middleware"
)

type RouterDeps struct {
	KnowledgeBases *KnowledgeBaseHandler
	Documents      *DocumentHandler
	Search         *SearchHandler
	JWTSecret      []byte
	SearchWindow   time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.Use(middleware.RequestID())

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.POST("/knowledge-bases", deps.KnowledgeBases.Create)
	authGroup.GET("/knowledge-bases", deps.KnowledgeBases.List)
	authGroup.GET("/knowledge-bases/:kbid", deps.KnowledgeBases.Get)
	authGroup.PUT("/knowledge-bases/:kbid", deps.KnowledgeBases.Update)
	authGroup.DELETE("/knowledge-bases/:kbid", deps.KnowledgeBases.Delete)

	authGroup.POST("/knowledge-bases/:kbid/documents", deps.Documents.Upload)
	authGroup.GET("/knowledge-bases/:kbid/documents", deps.Documents.List)
	authGroup.GET("/documents/:id", deps.Documents.Get)
	authGroup.DELETE("/documents/:id", deps.Documents.Delete)
	authGroup.POST("/documents/:id/reingest", deps.Documents.Reingest)

	searchGroup := authGroup.Group("")
	if deps.SearchWindow > 0 {
		searchGroup.Use(middleware.RateLimit(deps.SearchWindow))
	}
	searchGroup.POST("/knowledge-bases/:kbid/search", deps.Search.Search)
}
