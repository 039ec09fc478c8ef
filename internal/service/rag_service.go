package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/generation"
)

// NotFoundResponse is the answer when retrieval finds nothing.
const NotFoundResponse = "I couldn't find relevant information in the course content to answer your question."

const (
	contextHeader  = "Context from course content:\n"
	selectedHeader = "\n\nSelected text for specific question:\n"
	snippetLength  = 200
)

// Timeouts bound each external call of a query. Zero means no bound
// beyond the caller's context.
type Timeouts struct {
	Embedding  time.Duration
	Search     time.Duration
	Generation time.Duration
}

// RAGService answers queries from the indexed corpus.
type RAGService struct {
	embedder     domain.Embedder
	index        domain.VectorIndex
	generator    domain.Generator
	validator    domain.Validator
	log          *logrus.Entry
	systemPrompt string
	timeouts     Timeouts
}

// RAGOption customizes a RAGService.
type RAGOption func(*RAGService)

// WithSystemPrompt replaces the default system instruction.
func WithSystemPrompt(p string) RAGOption {
	return func(s *RAGService) {
		if p != "" {
			s.systemPrompt = p
		}
	}
}

// WithTimeouts sets per-stage timeouts.
func WithTimeouts(t Timeouts) RAGOption {
	return func(s *RAGService) { s.timeouts = t }
}

// WithValidator replaces the heuristic groundedness check.
func WithValidator(v domain.Validator) RAGOption {
	return func(s *RAGService) {
		if v != nil {
			s.validator = v
		}
	}
}

// NewRAGService wires the retrieval and generation pipeline.
func NewRAGService(embedder domain.Embedder, index domain.VectorIndex, generator domain.Generator, log *logrus.Entry, opts ...RAGOption) *RAGService {
	s := &RAGService{
		embedder:     embedder,
		index:        index,
		generator:    generator,
		validator:    HeuristicValidator{},
		log:          log,
		systemPrompt: generation.DefaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query embeds the question, retrieves passages, and generates a grounded
// answer. Finding nothing is a normal answer. Embedding and generation
// failures are returned; search failures degrade to finding nothing.
func (s *RAGService) Query(ctx context.Context, q domain.Query) (*domain.Answer, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	ectx, cancel := withTimeout(ctx, s.timeouts.Embedding)
	vector, err := s.embedder.Embed(ectx, q.Text)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if dim := s.embedder.Dimension(); len(vector) != dim {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, want %d", domain.ErrDimensionMismatch, len(vector), dim)
	}

	results, err := s.search(ctx, vector, q)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return s.answer(q.Text, NotFoundResponse, []domain.Source{}, ""), nil
	}

	contextText := AssembleContext(results, q.SelectedText)
	gctx, cancel := withTimeout(ctx, s.timeouts.Generation)
	defer cancel()
	response, err := s.generator.Generate(gctx, domain.GenerationRequest{
		System:      s.systemPrompt,
		User:        generation.UserPrompt(contextText, q.Text),
		Question:    q.Text,
		Context:     contextText,
		Temperature: q.Temperature,
		MaxTokens:   q.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	sources := make([]domain.Source, len(results))
	for i, r := range results {
		sources[i] = domain.Source{
			Content:  Snippet(r.Chunk.Content),
			Score:    r.Score,
			Metadata: r.Chunk.Metadata,
		}
	}
	return s.answer(q.Text, response, sources, contextText), nil
}

// Validate reports whether response is grounded in contextText.
func (s *RAGService) Validate(query, response, contextText string) bool {
	return s.validator.Validate(query, response, contextText)
}

// search returns no results on provider errors, except a dimension mismatch
// which is a configuration fault.
func (s *RAGService) search(ctx context.Context, vector []float32, q domain.Query) ([]domain.SearchResult, error) {
	sctx, cancel := withTimeout(ctx, s.timeouts.Search)
	defer cancel()
	results, err := s.index.Search(sctx, vector, q.TopK, q.Filters())
	switch {
	case err == nil:
		return results, nil
	case errors.Is(err, domain.ErrDimensionMismatch):
		return nil, err
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		s.log.WithError(err).WithFields(logrus.Fields{
			"module": q.ModuleFilter,
			"week":   q.WeekFilter,
		}).Warn("search failed, answering without context")
		return nil, nil
	}
}

func (s *RAGService) answer(query, response string, sources []domain.Source, contextText string) *domain.Answer {
	return &domain.Answer{
		ID:          uuid.NewString(),
		Query:       query,
		Response:    response,
		Sources:     sources,
		ContextUsed: contextText,
		Timestamp:   time.Now().UTC(),
	}
}

// AssembleContext joins result contents in the given order with single
// spaces and appends the selected text as its own section.
func AssembleContext(results []domain.SearchResult, selectedText string) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Chunk.Content
	}
	out := contextHeader + strings.Join(parts, " ")
	if strings.TrimSpace(selectedText) != "" {
		out += selectedHeader + selectedText
	}
	return out
}

// Snippet caps content at 200 characters, marking truncation with "...".
func Snippet(content string) string {
	if utf8.RuneCountInString(content) <= snippetLength {
		return content
	}
	return string([]rune(content)[:snippetLength]) + "..."
}
