// Package vectorstore holds what the vector index backends share: point
// identity, payload field names and vector checks.
package vectorstore

import (
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
)

// Payload field names stored with every point.
const (
	FieldDocumentID = "document_id"
	FieldContent    = "content"
	FieldChunkIndex = "chunk_index"
	FieldMetadata   = "metadata"
	FieldModule     = "module"
	FieldWeek       = "week"
)

var pointNamespace = uuid.MustParse("6f1b7d8e-2c1a-4f4e-9a57-0d3c2e9b5a10")

// PointID is the stable identifier of the chunk at position within a
// document. Re-indexing a document overwrites its points instead of adding
// new ones.
func PointID(documentID string, position int) string {
	return uuid.NewSHA1(pointNamespace, []byte(documentID+":"+strconv.Itoa(position))).String()
}

// CheckVectors verifies that every chunk carries a vector of size dim.
func CheckVectors(chunks []domain.DocumentChunk, dim int) error {
	for _, c := range chunks {
		if len(c.Embedding) != dim {
			return fmt.Errorf("%w: chunk %s has %d dimensions, collection has %d",
				domain.ErrDimensionMismatch, c.ID, len(c.Embedding), dim)
		}
	}
	return nil
}

// Cosine returns the cosine similarity of a and b, or 0 if either is zero.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
