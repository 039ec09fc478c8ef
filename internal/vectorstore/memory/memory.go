// Package memory is an in-process vector index using brute-force cosine
// similarity. It backs offline runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/vectorstore"
)

// Storage keeps chunks keyed by point id.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	points    map[string]domain.DocumentChunk
}

// NewStorage creates an empty index for vectors of the given size.
func NewStorage(dimension int) (*Storage, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: vector size must be positive", domain.ErrInvalidConfig)
	}
	return &Storage{dimension: dimension, points: make(map[string]domain.DocumentChunk)}, nil
}

// EnsureCollection is a no-op; the collection exists from construction.
func (s *Storage) EnsureCollection(context.Context) error { return nil }

// Upsert stores chunks, replacing any with the same id.
func (s *Storage) Upsert(_ context.Context, chunks []domain.DocumentChunk) error {
	if err := vectorstore.CheckVectors(chunks, s.dimension); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		c.Embedding = append([]float32(nil), c.Embedding...)
		s.points[c.ID] = c
	}
	return nil
}

// Search ranks matching chunks by cosine similarity. Ties keep id order.
func (s *Storage) Search(ctx context.Context, vector []float32, k int, filters domain.SearchFilters) ([]domain.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchFailed, err)
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d", domain.ErrDimensionMismatch, len(vector), s.dimension)
	}
	if k <= 0 {
		k = domain.DefaultTopK
	}
	s.mu.RLock()
	results := make([]domain.SearchResult, 0, len(s.points))
	for _, c := range s.points {
		if !filters.Matches(c.Metadata) {
			continue
		}
		hit := c
		hit.Embedding = nil
		results = append(results, domain.SearchResult{Chunk: hit, Score: vectorstore.Cosine(vector, c.Embedding)})
	}
	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// DeleteByDocument removes every chunk of the document.
func (s *Storage) DeleteByDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.points {
		if c.DocumentID == documentID {
			delete(s.points, id)
		}
	}
	return nil
}

// Len returns the number of stored chunks.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}
