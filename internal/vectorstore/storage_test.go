package vectorstore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
)

func TestPointID(t *testing.T) {
	a := PointID("doc-1", 0)
	assert.Equal(t, a, PointID("doc-1", 0))
	assert.NotEqual(t, a, PointID("doc-1", 1))
	assert.NotEqual(t, a, PointID("doc-2", 0))

	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestCheckVectors(t *testing.T) {
	chunks := []domain.DocumentChunk{
		{ID: "a", Embedding: []float32{1, 0, 0}},
		{ID: "b", Embedding: []float32{0, 1}},
	}
	assert.NoError(t, CheckVectors(chunks[:1], 3))
	assert.ErrorIs(t, CheckVectors(chunks, 3), domain.ErrDimensionMismatch)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-3, 0}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
}
