package domain

import (
	"strings"
	"time"
)

// Document is a unit of course material submitted for indexing.
type Document struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	Source    string            `json:"source"`
	Module    string            `json:"module"`
	Week      int               `json:"week"`
	Tags      []string          `json:"tags,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Embedding []float32         `json:"-"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// MaxDocumentIDLength bounds document identifiers in bytes. Every
// backend stores the identifier in a column of this width.
const MaxDocumentIDLength = 64

// ValidateDocumentID rejects blank or overlong identifiers.
func ValidateDocumentID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return NewValidationError(ErrInvalidDocument, "document id is required")
	case len(id) > MaxDocumentIDLength:
		return NewValidationError(ErrInvalidDocument, "document id must be at most %d bytes, got %d", MaxDocumentIDLength, len(id))
	}
	return nil
}

// ChunkMetadata is copied from the parent document when a chunk is created
// so that stored points describe themselves.
type ChunkMetadata struct {
	Title  string   `json:"title"`
	Source string   `json:"source"`
	Module string   `json:"module"`
	Week   int      `json:"week"`
	Tags   []string `json:"tags,omitempty"`
}

// MetadataOf derives chunk metadata from a document.
func MetadataOf(doc Document) ChunkMetadata {
	return ChunkMetadata{
		Title:  doc.Title,
		Source: doc.Source,
		Module: doc.Module,
		Week:   doc.Week,
		Tags:   doc.Tags,
	}
}

// DocumentChunk is a contiguous slice of a document's content.
type DocumentChunk struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"document_id"`
	Content    string        `json:"content"`
	Position   int           `json:"chunk_index"`
	Embedding  []float32     `json:"-"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// SearchFilters restricts a search by exact match on chunk metadata.
// Zero values impose no restriction.
type SearchFilters struct {
	Module string
	Week   int
}

// IsEmpty reports whether no filter is set.
func (f SearchFilters) IsEmpty() bool {
	return f.Module == "" && f.Week == 0
}

// Matches reports whether the metadata satisfies every set filter.
func (f SearchFilters) Matches(m ChunkMetadata) bool {
	if f.Module != "" && m.Module != f.Module {
		return false
	}
	if f.Week != 0 && m.Week != f.Week {
		return false
	}
	return true
}

// SearchResult is a stored chunk with its similarity to the query vector.
type SearchResult struct {
	Chunk DocumentChunk
	Score float64
}

// Query is a question to answer from the indexed corpus.
type Query struct {
	Text         string  `json:"query"`
	TopK         int     `json:"top_k"`
	ModuleFilter string  `json:"module_filter,omitempty"`
	WeekFilter   int     `json:"week_filter,omitempty"`
	SelectedText string  `json:"selected_text,omitempty"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

// Query defaults and bounds.
const (
	DefaultTopK        = 5
	MaxTopK            = 20
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 500
	MaxTokensLimit     = 2000
)

// NewQuery returns a query carrying the default bounds.
func NewQuery(text string) Query {
	return Query{
		Text:        text,
		TopK:        DefaultTopK,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
}

// Filters returns the search filters requested by the query.
func (q Query) Filters() SearchFilters {
	return SearchFilters{Module: q.ModuleFilter, Week: q.WeekFilter}
}

// Validate checks the query against its documented bounds.
func (q Query) Validate() error {
	switch {
	case strings.TrimSpace(q.Text) == "":
		return NewValidationError(ErrInvalidQuery, "query text is required")
	case q.TopK < 1 || q.TopK > MaxTopK:
		return NewValidationError(ErrInvalidQuery, "top_k must be between 1 and %d", MaxTopK)
	case q.Temperature < 0 || q.Temperature > 1:
		return NewValidationError(ErrInvalidQuery, "temperature must be between 0 and 1")
	case q.MaxTokens < 1 || q.MaxTokens > MaxTokensLimit:
		return NewValidationError(ErrInvalidQuery, "max_tokens must be between 1 and %d", MaxTokensLimit)
	case q.WeekFilter < 0:
		return NewValidationError(ErrInvalidQuery, "week_filter must not be negative")
	}
	return nil
}

// Source attributes part of an answer to a retrieved chunk.
type Source struct {
	Content  string        `json:"content"`
	Score    float64       `json:"score"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Answer is the result of a query.
type Answer struct {
	ID          string    `json:"response_id"`
	Query       string    `json:"query"`
	Response    string    `json:"response"`
	Sources     []Source  `json:"sources"`
	ContextUsed string    `json:"context_used"`
	Timestamp   time.Time `json:"timestamp"`
}

// GenerationRequest is a single completion call. User already embeds
// Context and Question; they are passed separately for generators that
// work on the raw passages.
type GenerationRequest struct {
	System      string
	User        string
	Question    string
	Context     string
	Temperature float64
	MaxTokens   int
}
