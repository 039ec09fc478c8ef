// Package httpapi exposes indexing and question answering over HTTP.
package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RouterConfig holds the cross-cutting settings of the router.
type RouterConfig struct {
	AllowedOrigins []string
	RateRequests   int
	RateWindow     time.Duration
}

// NewRouter builds the engine with every route under /api.
func NewRouter(h *Handler, cfg RouterConfig, log *logrus.Entry) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(log), RequestLogger(log))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(CORS(cfg.AllowedOrigins))
	}

	api := r.Group("/api")
	if cfg.RateRequests > 0 && cfg.RateWindow > 0 {
		api.Use(NewRateLimiter(cfg.RateRequests, cfg.RateWindow).Middleware())
	}
	{
		docs := api.Group("/documents")
		docs.POST("/index", h.IndexDocument)
		docs.POST("/upload", h.UploadDocument)
		docs.PUT("/:id", h.UpdateDocument)
		docs.DELETE("/:id", h.DeleteDocument)
		docs.GET("/health", h.DocumentsHealth)

		rag := api.Group("/rag")
		rag.POST("/query", h.Query)
		rag.POST("/validate", h.Validate)

		api.GET("/health", h.Health)
		api.GET("/ready", h.Ready)
	}
	return r
}
