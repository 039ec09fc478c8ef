package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
)

var errProvider = errors.New("provider unavailable")

// fakeEmbedder returns vectors whose first component is the input index
// within the call. Texts containing failOn make the whole call fail.
type fakeEmbedder struct {
	mu     sync.Mutex
	dim    int
	failOn string
	err    error
	calls  int
	texts  []string
}

func (f *fakeEmbedder) Name() string   { return "fake" }
func (f *fakeEmbedder) Dimension() int { return f.dim }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.texts = append(f.texts, texts...)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.failOn != "" && strings.Contains(t, f.failOn) {
			return nil, errors.Join(domain.ErrEmbeddingFailed, errProvider)
		}
		v := make([]float32, f.dim)
		v[0] = float32(i + 1)
		out[i] = v
	}
	return out, nil
}

// fakeIndex records calls and returns canned results.
type fakeIndex struct {
	mu        sync.Mutex
	results   []domain.SearchResult
	searchErr error
	upsertErr error
	deleteErr error
	upserted  []domain.DocumentChunk
	deleted   []string
	lastK     int
	lastF     domain.SearchFilters
	deadlines []time.Duration // remaining time seen by each write, 0 when unbounded
}

func (f *fakeIndex) recordDeadline(ctx context.Context) {
	var left time.Duration
	if d, ok := ctx.Deadline(); ok {
		left = time.Until(d)
	}
	f.deadlines = append(f.deadlines, left)
}

func (f *fakeIndex) EnsureCollection(context.Context) error { return nil }

func (f *fakeIndex) Upsert(ctx context.Context, chunks []domain.DocumentChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordDeadline(ctx)
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, chunks...)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, k int, filters domain.SearchFilters) ([]domain.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastK, f.lastF = k, filters
	return f.results, f.searchErr
}

func (f *fakeIndex) DeleteByDocument(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordDeadline(ctx)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

// fakeGenerator returns a fixed response and records the request.
type fakeGenerator struct {
	response string
	err      error
	calls    int
	last     domain.GenerationRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req domain.GenerationRequest) (string, error) {
	f.calls++
	f.last = req
	return f.response, f.err
}

func testLogger() (*logrus.Entry, *test.Hook) {
	l, hook := test.NewNullLogger()
	return logrus.NewEntry(l), hook
}
