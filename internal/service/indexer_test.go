package service

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/chunker"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/embedding/local"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/vectorstore/memory"
)

// courseText repeats an 80 character sentence about robots and cuts it to n characters.
func courseText(n int) string {
	sentence := "Robots use sensors and actuators to perceive and act in the physical world now. "
	return strings.Repeat(sentence, n/len(sentence)+1)[:n]
}

func newSplitter(t *testing.T) domain.Splitter {
	t.Helper()
	s, err := chunker.NewTextSplitter(1000, 100)
	require.NoError(t, err)
	return s
}

func newMemoryStack(t *testing.T) (*local.Embedder, *memory.Storage) {
	t.Helper()
	emb, err := local.NewEmbedder(64)
	require.NoError(t, err)
	store, err := memory.NewStorage(64)
	require.NoError(t, err)
	return emb, store
}

func TestIndexDocument_StoresChunksWithMetadata(t *testing.T) {
	emb, store := newMemoryStack(t)
	log, _ := testLogger()
	ix := NewIndexer(newSplitter(t), emb, store, log)

	doc := NewDocument("Intro to ROS 2", courseText(2500), "ros2/intro.md", "ROS 2", 1, []string{"ros"})
	require.NoError(t, ix.IndexDocument(t.Context(), doc))
	require.Equal(t, 3, store.Len())

	results, err := store.Search(t.Context(), make([]float32, 64), 10, domain.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	positions := map[int]bool{}
	for _, r := range results {
		assert.Equal(t, doc.ID, r.Chunk.DocumentID)
		assert.Equal(t, "ROS 2", r.Chunk.Metadata.Module)
		assert.Equal(t, 1, r.Chunk.Metadata.Week)
		assert.Equal(t, "Intro to ROS 2", r.Chunk.Metadata.Title)
		assert.Equal(t, []string{"ros"}, r.Chunk.Metadata.Tags)
		assert.NotEmpty(t, r.Chunk.Content)
		positions[r.Chunk.Position] = true
	}
	assert.Equal(t, map[int]bool{0: true, 1: true, 2: true}, positions)
}

func TestIndexDocument_EmbedsInOneBatch(t *testing.T) {
	emb := &fakeEmbedder{dim: 4}
	idx := &fakeIndex{}
	log, _ := testLogger()
	ix := NewIndexer(newSplitter(t), emb, idx, log)

	require.NoError(t, ix.IndexDocument(t.Context(), NewDocument("t", courseText(2500), "", "", 0, nil)))
	assert.Equal(t, 1, emb.calls)
	require.Len(t, idx.upserted, 3)
	for i, c := range idx.upserted {
		assert.Equal(t, i, c.Position)
		assert.Equal(t, float32(i+1), c.Embedding[0], "vector %d must follow chunk order", i)
	}
}

func TestIndexDocument_ChunkIDsAreDeterministic(t *testing.T) {
	ix := NewIndexer(newSplitter(t), &fakeEmbedder{dim: 4}, &fakeIndex{}, logrus.NewEntry(logrus.New()))
	doc := NewDocument("t", courseText(2500), "", "", 0, nil)

	first := ix.Chunks(doc)
	second := ix.Chunks(doc)
	require.Len(t, first, 3)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
	assert.NotEqual(t, first[0].ID, first[1].ID)
}

func TestIndexDocument_Failures(t *testing.T) {
	cases := []struct {
		name    string
		content string
		emb     *fakeEmbedder
		idx     *fakeIndex
		stage   Stage
		want    error
	}{
		{
			name:    "empty content",
			content: "  \n\t ",
			emb:     &fakeEmbedder{dim: 4},
			idx:     &fakeIndex{},
			stage:   StageChunk,
			want:    domain.ErrEmptyDocument,
		},
		{
			name:    "embedding provider",
			content: "ROS 2 nodes talk over topics.",
			emb:     &fakeEmbedder{dim: 4, err: errors.Join(domain.ErrEmbeddingFailed, errProvider)},
			idx:     &fakeIndex{},
			stage:   StageEmbed,
			want:    domain.ErrEmbeddingFailed,
		},
		{
			name:    "store",
			content: "ROS 2 nodes talk over topics.",
			emb:     &fakeEmbedder{dim: 4},
			idx:     &fakeIndex{upsertErr: errors.Join(domain.ErrStoreFailed, errProvider)},
			stage:   StageStore,
			want:    domain.ErrStoreFailed,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			log, hook := testLogger()
			ix := NewIndexer(newSplitter(t), tc.emb, tc.idx, log)
			doc := NewDocument("Topics", tc.content, "", "ROS 2", 2, nil)

			err := ix.IndexDocument(t.Context(), doc)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)

			var ie *IndexError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tc.stage, ie.Stage)
			assert.Equal(t, doc.ID, ie.DocumentID)
			assert.Equal(t, "Topics", ie.Title)

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, logrus.ErrorLevel, entry.Level)
			assert.Equal(t, doc.ID, entry.Data["document_id"])
			assert.Equal(t, tc.stage, entry.Data["stage"])
			assert.Empty(t, tc.idx.upserted)
		})
	}
}

func TestIndexDocument_RejectsWrongDimension(t *testing.T) {
	emb := &fakeEmbedder{dim: 4}
	wrong := &wrongDimEmbedder{fakeEmbedder: emb}
	idx := &fakeIndex{}
	log, _ := testLogger()
	ix := NewIndexer(newSplitter(t), wrong, idx, log)

	err := ix.IndexDocument(t.Context(), NewDocument("t", "short text", "", "", 0, nil))
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Empty(t, idx.upserted)
}

// wrongDimEmbedder advertises one more dimension than it produces.
type wrongDimEmbedder struct{ *fakeEmbedder }

func (w *wrongDimEmbedder) Dimension() int { return w.fakeEmbedder.Dimension() + 1 }

func TestIndexDocuments_IsolatesFailures(t *testing.T) {
	emb := &fakeEmbedder{dim: 4, failOn: "BROKEN"}
	idx := &fakeIndex{}
	log, hook := testLogger()
	ix := NewIndexer(newSplitter(t), emb, idx, log, WithConcurrency(2))

	docs := []domain.Document{
		NewDocument("a", "Sensors measure the world.", "", "", 0, nil),
		NewDocument("b", "This one is BROKEN.", "", "", 0, nil),
		NewDocument("c", "Actuators move joints.", "", "", 0, nil),
		NewDocument("d", "", "", "", 0, nil),
	}
	assert.Equal(t, 2, ix.IndexDocuments(t.Context(), docs))
	assert.Len(t, idx.upserted, 2)

	failed := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			failed++
		}
	}
	assert.Equal(t, 2, failed)
}

func TestUpdateDocument_ReplacesAllChunks(t *testing.T) {
	emb, store := newMemoryStack(t)
	log, _ := testLogger()
	ix := NewIndexer(newSplitter(t), emb, store, log)

	doc := NewDocument("Kinematics", courseText(2500), "", "Kinematics", 3, nil)
	require.NoError(t, ix.IndexDocument(t.Context(), doc))
	require.Equal(t, 3, store.Len())

	doc.Content = "Forward kinematics maps joint angles to poses."
	require.NoError(t, ix.UpdateDocument(t.Context(), doc))
	require.Equal(t, 1, store.Len())

	results, err := store.Search(t.Context(), make([]float32, 64), 5, domain.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, doc.Content, results[0].Chunk.Content)
}

func TestUpdateDocument_DeleteFailureSkipsIndexing(t *testing.T) {
	emb := &fakeEmbedder{dim: 4}
	idx := &fakeIndex{deleteErr: errors.Join(domain.ErrStoreFailed, errProvider)}
	log, _ := testLogger()
	ix := NewIndexer(newSplitter(t), emb, idx, log)

	err := ix.UpdateDocument(t.Context(), NewDocument("t", "text", "", "", 0, nil))
	var ie *IndexError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, StageDelete, ie.Stage)
	assert.Zero(t, emb.calls)
	assert.Empty(t, idx.upserted)
}

func TestUpdateDocument_RejectsOverlongID(t *testing.T) {
	emb := &fakeEmbedder{dim: 4}
	idx := &fakeIndex{}
	log, _ := testLogger()
	ix := NewIndexer(newSplitter(t), emb, idx, log)

	doc := NewDocument("t", "text", "", "", 0, nil)
	doc.ID = strings.Repeat("x", domain.MaxDocumentIDLength+1)
	err := ix.UpdateDocument(t.Context(), doc)
	require.ErrorIs(t, err, domain.ErrInvalidDocument)
	assert.Empty(t, idx.deleted)
	assert.Zero(t, emb.calls)

	err = ix.IndexDocument(t.Context(), doc)
	require.ErrorIs(t, err, domain.ErrInvalidDocument)
	assert.Empty(t, idx.upserted)

	err = ix.DeleteDocument(t.Context(), doc.ID)
	require.ErrorIs(t, err, domain.ErrInvalidDocument)
	assert.Empty(t, idx.deleted)
}

func TestIndexer_StoreTimeoutBoundsWrites(t *testing.T) {
	idx := &fakeIndex{}
	log, _ := testLogger()
	ix := NewIndexer(newSplitter(t), &fakeEmbedder{dim: 4}, idx, log,
		WithIndexTimeouts(time.Hour, 5*time.Second))

	doc := NewDocument("t", "Actuators move joints.", "", "", 0, nil)
	require.NoError(t, ix.UpdateDocument(t.Context(), doc))
	require.Len(t, idx.deadlines, 2, "one delete and one upsert")
	for _, left := range idx.deadlines {
		assert.Greater(t, left, time.Duration(0))
		assert.LessOrEqual(t, left, 5*time.Second)
	}
}

func TestDeleteDocument(t *testing.T) {
	emb, store := newMemoryStack(t)
	log, _ := testLogger()
	ix := NewIndexer(newSplitter(t), emb, store, log)

	keep := NewDocument("keep", "Balance control for bipeds.", "", "", 0, nil)
	drop := NewDocument("drop", courseText(2500), "", "", 0, nil)
	require.NoError(t, ix.IndexDocument(t.Context(), keep))
	require.NoError(t, ix.IndexDocument(t.Context(), drop))
	require.Equal(t, 4, store.Len())

	require.NoError(t, ix.DeleteDocument(t.Context(), drop.ID))
	assert.Equal(t, 1, store.Len())
}

func TestIndexFromSource(t *testing.T) {
	emb := &fakeEmbedder{dim: 4}
	idx := &fakeIndex{}
	log, _ := testLogger()
	ix := NewIndexer(newSplitter(t), emb, idx, log)

	path := filepath.Join(t.TempDir(), "week1-intro.md")
	require.NoError(t, os.WriteFile(path, []byte("# Week 1\n\nPhysical AI joins perception and control."), 0o644))

	doc, err := ix.IndexFromSource(t.Context(), path, "Foundations", 1, []string{"intro"})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Contains(t, doc.Content, "perception and control")
	require.Len(t, idx.upserted, 1)
	c := idx.upserted[0]
	assert.Equal(t, doc.ID, c.DocumentID)
	assert.Equal(t, []string{"intro"}, c.Metadata.Tags)
	assert.Equal(t, "week1-intro.md", c.Metadata.Title)
	assert.Equal(t, path, c.Metadata.Source)
	assert.Equal(t, "Foundations", c.Metadata.Module)
	assert.Equal(t, 1, c.Metadata.Week)
}

func TestIndexFromSource_MissingFile(t *testing.T) {
	log, _ := testLogger()
	ix := NewIndexer(newSplitter(t), &fakeEmbedder{dim: 4}, &fakeIndex{}, log)

	_, err := ix.IndexFromSource(t.Context(), filepath.Join(t.TempDir(), "nope.txt"), "", 0, nil)
	var ie *IndexError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, StageLoad, ie.Stage)
}
