// Package embedding holds helpers shared by the embedding providers.
package embedding

import (
	"fmt"
	"math"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
)

// Normalize scales v to unit length in place. Zero vectors are left as is.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}

// CheckBatch verifies that a provider returned exactly one vector of the
// expected dimension for each of n inputs.
func CheckBatch(n int, vectors [][]float32, dim int) error {
	if len(vectors) != n {
		return fmt.Errorf("%w: got %d vectors for %d inputs", domain.ErrEmbeddingFailed, len(vectors), n)
	}
	for i, v := range vectors {
		if v == nil {
			return fmt.Errorf("%w: no vector returned for input %d", domain.ErrEmbeddingFailed, i)
		}
		if dim > 0 && len(v) != dim {
			return fmt.Errorf("%w: input %d has %d dimensions, want %d", domain.ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return nil
}
