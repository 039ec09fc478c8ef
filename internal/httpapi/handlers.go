package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/loader"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/service"
)

// DocumentIndexer is the indexing side of the service.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, doc domain.Document) error
	UpdateDocument(ctx context.Context, doc domain.Document) error
	DeleteDocument(ctx context.Context, documentID string) error
}

// Answerer is the retrieval side of the service.
type Answerer interface {
	Query(ctx context.Context, q domain.Query) (*domain.Answer, error)
	Validate(query, response, contextText string) bool
}

// HealthProber reports dependency health.
type HealthProber interface {
	Check(ctx context.Context) service.HealthReport
}

// QueryDefaults fill query fields a request leaves out.
type QueryDefaults struct {
	TopK        int
	Temperature float64
	MaxTokens   int
}

// Handler serves the document and RAG endpoints.
type Handler struct {
	indexer        DocumentIndexer
	answerer       Answerer
	health         HealthProber
	defaults       QueryDefaults
	maxUploadBytes int64
	log            *logrus.Entry
}

// NewHandler wires the endpoints to the service.
func NewHandler(indexer DocumentIndexer, answerer Answerer, health HealthProber, defaults QueryDefaults, maxUploadBytes int64, log *logrus.Entry) *Handler {
	if defaults.TopK == 0 {
		defaults = QueryDefaults{TopK: domain.DefaultTopK, Temperature: domain.DefaultTemperature, MaxTokens: domain.DefaultMaxTokens}
	}
	return &Handler{
		indexer:        indexer,
		answerer:       answerer,
		health:         health,
		defaults:       defaults,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

type documentRequest struct {
	Title   string   `form:"title" json:"title" binding:"required"`
	Content string   `form:"content" json:"content" binding:"required"`
	Source  string   `form:"source" json:"source"`
	Module  string   `form:"module" json:"module" binding:"required"`
	Week    int      `form:"week" json:"week" binding:"gte=0"`
	Tags    []string `form:"tags" json:"tags"`
}

func (r documentRequest) document() domain.Document {
	source := r.Source
	if source == "" {
		source = "api"
	}
	return service.NewDocument(r.Title, r.Content, source, r.Module, r.Week, r.Tags)
}

type queryRequest struct {
	Query        string   `json:"query" binding:"required"`
	TopK         *int     `json:"top_k"`
	ModuleFilter string   `json:"module_filter"`
	WeekFilter   int      `json:"week_filter"`
	SelectedText string   `json:"selected_text"`
	Temperature  *float64 `json:"temperature"`
	MaxTokens    *int     `json:"max_tokens"`
}

func (r queryRequest) query(d QueryDefaults) domain.Query {
	q := domain.Query{
		Text:         r.Query,
		TopK:         d.TopK,
		ModuleFilter: r.ModuleFilter,
		WeekFilter:   r.WeekFilter,
		SelectedText: r.SelectedText,
		Temperature:  d.Temperature,
		MaxTokens:    d.MaxTokens,
	}
	if r.TopK != nil {
		q.TopK = *r.TopK
	}
	if r.Temperature != nil {
		q.Temperature = *r.Temperature
	}
	if r.MaxTokens != nil {
		q.MaxTokens = *r.MaxTokens
	}
	return q
}

type validateRequest struct {
	Query    string `form:"query" json:"query" binding:"required"`
	Response string `form:"response" json:"response" binding:"required"`
	Context  string `form:"context" json:"context"`
}

// IndexDocument handles POST /api/documents/index.
func (h *Handler) IndexDocument(c *gin.Context) {
	var req documentRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}
	doc := req.document()
	if err := h.indexer.IndexDocument(c.Request.Context(), doc); err != nil {
		h.fail(c, "failed to index document", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document indexed successfully", "success": true, "document_id": doc.ID})
}

// UploadDocument handles POST /api/documents/upload.
func (h *Handler) UploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	var form struct {
		Module string `form:"module" binding:"required"`
		Week   int    `form:"week" binding:"gte=0"`
	}
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds upload limit"})
			return
		}
		badRequest(c, err)
		return
	}
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, err)
		return
	}
	f, err := file.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		badRequest(c, err)
		return
	}
	content, err := loader.Decode(file.Filename, data)
	if err != nil {
		h.fail(c, "failed to read upload", err)
		return
	}

	doc := service.NewDocument(file.Filename, content, file.Filename, form.Module, form.Week, nil)
	if err := h.indexer.IndexDocument(c.Request.Context(), doc); err != nil {
		h.fail(c, "failed to index upload", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "File uploaded and indexed successfully", "success": true, "document_id": doc.ID})
}

// UpdateDocument handles PUT /api/documents/:id.
func (h *Handler) UpdateDocument(c *gin.Context) {
	var req documentRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}
	doc := req.document()
	doc.ID = c.Param("id")
	if err := h.indexer.UpdateDocument(c.Request.Context(), doc); err != nil {
		h.fail(c, "failed to update document", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document updated successfully", "success": true, "document_id": doc.ID})
}

// DeleteDocument handles DELETE /api/documents/:id.
func (h *Handler) DeleteDocument(c *gin.Context) {
	id := c.Param("id")
	if err := h.indexer.DeleteDocument(c.Request.Context(), id); err != nil {
		h.fail(c, "failed to delete document", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document deleted successfully", "success": true, "document_id": id})
}

// DocumentsHealth handles GET /api/documents/health.
func (h *Handler) DocumentsHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": service.StatusHealthy, "service": "documents"})
}

// Query handles POST /api/rag/query.
func (h *Handler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	answer, err := h.answerer.Query(c.Request.Context(), req.query(h.defaults))
	if err != nil {
		h.fail(c, "failed to answer query", err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

// Validate handles POST /api/rag/validate. Fields come from the query
// string, a form body or a JSON body.
func (h *Handler) Validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_valid": h.answerer.Validate(req.Query, req.Response, req.Context)})
}

// Health handles GET /api/health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.health.Check(c.Request.Context()))
}

// Ready handles GET /api/ready.
func (h *Handler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready", "timestamp": time.Now().UTC()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// fail maps service errors to a status. Input problems are 400, anything
// else is logged and reported as 500.
func (h *Handler) fail(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery),
		errors.Is(err, domain.ErrInvalidDocument),
		errors.Is(err, domain.ErrEmptyDocument),
		errors.Is(err, domain.ErrUnsupportedSource):
		badRequest(c, err)
	default:
		h.log.WithError(err).WithField("path", c.FullPath()).Error(msg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg + ": " + err.Error()})
	}
}
