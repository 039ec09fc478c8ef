package domain

import "context"

// Splitter cuts document text into ordered, overlapping segments.
type Splitter interface {
	Split(text string) []string
}

// Embedder converts text into fixed-length vectors.
// EmbedBatch returns one vector per input, in input order.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex owns a single collection of chunk vectors.
type VectorIndex interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, chunks []DocumentChunk) error
	Search(ctx context.Context, vector []float32, k int, filters SearchFilters) ([]SearchResult, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// Generator produces a single completion for a system instruction and user turn.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// Validator decides whether a response is grounded in its context.
type Validator interface {
	Validate(query, response, contextText string) bool
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
