// Package app builds every component from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/chunker"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/config"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/embedding/local"
	embedopenai "github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/embedding/openai"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/generation/extractive"
	genopenai "github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/generation/openai"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/httpapi"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/logger"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/service"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/summarizer"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/vectorstore/memory"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/vectorstore/milvus"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/vectorstore/qdrant"
)

// App holds the assembled components.
type App struct {
	Config     *config.AppConfig
	Splitter   domain.Splitter
	Embedder   domain.Embedder
	Index      domain.VectorIndex
	Generator  domain.Generator
	Summarizer *summarizer.FrequencySummarizer
	Indexer    *service.Indexer
	RAG        *service.RAGService
	Health     *service.HealthChecker

	closers []func() error
}

// New validates cfg, builds the pipeline and makes sure the collection exists.
func New(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Summarizer: summarizer.NewFrequencySummarizer()}

	var err error
	if a.Splitter, err = chunker.New(chunker.Mode(cfg.Chunker.Mode), cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap); err != nil {
		return nil, err
	}
	if a.Embedder, err = newEmbedder(cfg); err != nil {
		return nil, err
	}
	if a.Generator, err = a.newGenerator(cfg); err != nil {
		return nil, err
	}
	if a.Index, err = a.newIndex(ctx, cfg); err != nil {
		return nil, err
	}
	if err := a.Index.EnsureCollection(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	validator, err := service.NewValidator(cfg.Validator.Type, cfg.Validator.Threshold)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	t := cfg.Timeouts
	a.Indexer = service.NewIndexer(a.Splitter, a.Embedder, a.Index, logger.New("indexer"),
		service.WithConcurrency(cfg.Indexing.Concurrency),
		service.WithIndexTimeouts(t.Embedding(), t.Store()),
	)
	a.RAG = service.NewRAGService(a.Embedder, a.Index, a.Generator, logger.New("rag"),
		service.WithSystemPrompt(cfg.Generator.SystemPrompt),
		service.WithTimeouts(service.Timeouts{Embedding: t.Embedding(), Search: t.Search(), Generation: t.Generation()}),
		service.WithValidator(validator),
	)
	a.Health = service.NewHealthChecker(a.Embedder, a.Index, t.Search())

	logger.New("app").WithFields(logrus.Fields{
		"embedder":     a.Embedder.Name(),
		"dimension":    a.Embedder.Dimension(),
		"vector_store": cfg.VectorStore.Type,
		"generator":    cfg.Generator.Type,
		"collection":   cfg.VectorStore.Collection,
	}).Info("pipeline ready")
	return a, nil
}

// Router returns the HTTP surface over the pipeline.
func (a *App) Router() *gin.Engine {
	s := a.Config.Server
	q := a.Config.Query
	h := httpapi.NewHandler(a.Indexer, a.RAG, a.Health, httpapi.QueryDefaults{
		TopK:        q.DefaultTopK,
		Temperature: q.DefaultTemperature,
		MaxTokens:   q.DefaultMaxTokens,
	}, s.MaxUploadBytes, logger.New("http"))
	return httpapi.NewRouter(h, httpapi.RouterConfig{
		AllowedOrigins: s.AllowedOrigins,
		RateRequests:   s.RateLimit.Requests,
		RateWindow:     s.RateLimit.Window(),
	}, logger.New("http"))
}

// NewQuery returns a query carrying the configured defaults.
func (a *App) NewQuery(text string) domain.Query {
	q := a.Config.Query
	return domain.Query{
		Text:        text,
		TopK:        q.DefaultTopK,
		Temperature: q.DefaultTemperature,
		MaxTokens:   q.DefaultMaxTokens,
	}
}

// Close releases backend connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	e := cfg.Embedder
	switch e.Type {
	case "local":
		return local.NewEmbedder(e.Dimension)
	case "openai":
		return embedopenai.NewClient(embedopenai.Config{
			BaseURL:   e.BaseURL,
			APIKeyEnv: e.APIKeyEnv,
			Model:     e.Model,
			Dimension: e.Dimension,
			Timeout:   cfg.Timeouts.Embedding(),
		})
	default:
		return nil, fmt.Errorf("%w: unknown embedder %q", domain.ErrInvalidConfig, e.Type)
	}
}

func (a *App) newGenerator(cfg *config.AppConfig) (domain.Generator, error) {
	g := cfg.Generator
	switch g.Type {
	case "extractive":
		return extractive.New(a.Summarizer, g.MaxSentences), nil
	case "openai":
		return genopenai.NewClient(genopenai.Config{
			BaseURL:   g.BaseURL,
			APIKeyEnv: g.APIKeyEnv,
			Model:     g.Model,
			Timeout:   cfg.Timeouts.Generation(),
		})
	default:
		return nil, fmt.Errorf("%w: unknown generator %q", domain.ErrInvalidConfig, g.Type)
	}
}

func (a *App) newIndex(ctx context.Context, cfg *config.AppConfig) (domain.VectorIndex, error) {
	vs := cfg.VectorStore
	dim := a.Embedder.Dimension()
	switch vs.Type {
	case "memory":
		return memory.NewStorage(dim)
	case "qdrant":
		return qdrant.NewStorage(qdrant.Config{
			URL:        vs.Qdrant.URL,
			APIKey:     vs.Qdrant.APIKey,
			Collection: vs.Collection,
			Dimension:  dim,
			Timeout:    time.Duration(vs.Qdrant.TimeoutSecs) * time.Second,
		}, logger.New("qdrant"))
	case "milvus":
		st, err := milvus.Connect(ctx, milvus.Config{
			Address:    vs.Milvus.Address,
			APIKey:     vs.Milvus.APIKey,
			Collection: vs.Collection,
			Dimension:  dim,
		}, logger.New("milvus"))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		return st, nil
	default:
		return nil, fmt.Errorf("%w: unknown vector store %q", domain.ErrInvalidConfig, vs.Type)
	}
}
