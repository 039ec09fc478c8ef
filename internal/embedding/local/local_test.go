package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
)

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func TestNewEmbedder_RejectsBadDimension(t *testing.T) {
	_, err := NewEmbedder(0)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestEmbed_DeterministicAndNormalized(t *testing.T) {
	e, err := NewEmbedder(64)
	require.NoError(t, err)

	a, err := e.Embed(t.Context(), "ROS 2 nodes publish messages on topics")
	require.NoError(t, err)
	b, err := e.Embed(t.Context(), "ROS 2 nodes publish messages on topics")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.InDelta(t, 1.0, dot(a, a), 1e-5)
}

func TestEmbed_SimilarTextsScoreHigher(t *testing.T) {
	e, err := NewEmbedder(256)
	require.NoError(t, err)

	q, _ := e.Embed(t.Context(), "How do ROS 2 topics work?")
	near, _ := e.Embed(t.Context(), "Topics in ROS 2 carry messages between nodes.")
	far, _ := e.Embed(t.Context(), "Bipedal balance relies on the zero moment point.")

	assert.Greater(t, dot(q, near), dot(q, far))
}

func TestEmbed_StopwordsOnlyIsZeroVector(t *testing.T) {
	e, err := NewEmbedder(16)
	require.NoError(t, err)

	v, err := e.Embed(t.Context(), "the and of")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), v)
}

func TestEmbedBatch_OrderAndCancel(t *testing.T) {
	e, err := NewEmbedder(32)
	require.NoError(t, err)

	texts := []string{"alpha", "beta", "gamma"}
	vecs, err := e.EmbedBatch(t.Context(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for i, text := range texts {
		single, _ := e.Embed(t.Context(), text)
		assert.Equal(t, single, vecs[i])
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = e.EmbedBatch(ctx, texts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, domain.ErrEmbeddingFailed)
}
