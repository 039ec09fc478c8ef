package openai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestGenerate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Nodes publish to topics.  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	t.Setenv("COURSE_RAG_TEST_KEY", "k")
	c, err := NewClient(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "COURSE_RAG_TEST_KEY"})
	require.NoError(t, err)

	out, err := c.Generate(t.Context(), domain.GenerationRequest{System: "sys", User: "usr", Temperature: 0.7, MaxTokens: 500})
	require.NoError(t, err)
	assert.Equal(t, "Nodes publish to topics.", out)

	assert.Equal(t, DefaultModel, got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 1e-6)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "sys", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`},
		{"no choices", http.StatusOK, `{"id":"x","choices":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			t.Setenv("COURSE_RAG_TEST_KEY", "k")
			c, err := NewClient(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "COURSE_RAG_TEST_KEY"})
			require.NoError(t, err)

			_, err = c.Generate(t.Context(), domain.GenerationRequest{System: "s", User: "u", MaxTokens: 10})
			assert.ErrorIs(t, err, domain.ErrGenerationFailed)
		})
	}
}

func TestNewClient_MissingCredential(t *testing.T) {
	t.Setenv("COURSE_RAG_TEST_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "COURSE_RAG_TEST_KEY"})
	assert.ErrorIs(t, err, domain.ErrMissingCredential)
}
