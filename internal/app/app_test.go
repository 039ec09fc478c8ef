package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/config"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/service"
)

func offlineConfig() *config.AppConfig {
	cfg := config.Default()
	cfg.Embedder.Type = "local"
	cfg.Embedder.Dimension = 128
	cfg.VectorStore.Type = "memory"
	cfg.Generator.Type = "extractive"
	return cfg
}

func TestNew_OfflinePipeline(t *testing.T) {
	a, err := New(t.Context(), offlineConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Equal(t, "local", a.Embedder.Name())
	assert.Equal(t, 128, a.Embedder.Dimension())

	doc := service.NewDocument("URDF", "URDF files describe robot links and joints. Each joint connects two links.", "urdf.md", "ROS 2", 3, nil)
	require.NoError(t, a.Indexer.IndexDocument(t.Context(), doc))

	q := a.NewQuery("What do URDF files describe?")
	q.WeekFilter = 3
	ans, err := a.RAG.Query(t.Context(), q)
	require.NoError(t, err)
	require.Len(t, ans.Sources, 1)
	assert.Contains(t, ans.Response, "URDF")

	q.WeekFilter = 4
	ans, err = a.RAG.Query(t.Context(), q)
	require.NoError(t, err)
	assert.Equal(t, service.NotFoundResponse, ans.Response)

	report := a.Health.Check(t.Context())
	assert.Equal(t, service.StatusHealthy, report.Status)
}

func TestNew_HeaderModeAndOverlapValidator(t *testing.T) {
	cfg := offlineConfig()
	cfg.Chunker.Mode = "headers"
	cfg.Validator = config.ValidatorConfig{Type: "overlap", Threshold: 0.9}
	a, err := New(t.Context(), cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"Intro text.", "Body text."}, a.Splitter.Split("Intro text.\n## Setup\nBody text."))
	assert.False(t, a.RAG.Validate("q", "links", "links joints frames"))
}

func TestNew_Rejections(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		cfg := offlineConfig()
		cfg.Chunker.ChunkOverlap = cfg.Chunker.ChunkSize
		_, err := New(t.Context(), cfg)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})
	t.Run("missing credential", func(t *testing.T) {
		t.Setenv("COURSE_RAG_TEST_KEY", "")
		cfg := offlineConfig()
		cfg.Embedder.Type = "openai"
		cfg.Embedder.APIKeyEnv = "COURSE_RAG_TEST_KEY"
		_, err := New(t.Context(), cfg)
		assert.ErrorIs(t, err, domain.ErrMissingCredential)
	})
}

func TestRouter(t *testing.T) {
	a, err := New(t.Context(), offlineConfig())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
