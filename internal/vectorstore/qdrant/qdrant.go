// Package qdrant is a minimal REST client to Qdrant that owns one collection.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/vectorstore"
)

const scrollPageSize = 256

// Config holds connection details and the collection layout.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	Timeout    time.Duration
}

// Storage stores chunk vectors in a cosine collection.
type Storage struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
	log        *logrus.Entry
}

type payload struct {
	DocumentID string               `json:"document_id"`
	Content    string               `json:"content"`
	ChunkIndex int                  `json:"chunk_index"`
	Metadata   domain.ChunkMetadata `json:"metadata"`
}

type point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload payload   `json:"payload"`
}

type condition struct {
	Key   string         `json:"key"`
	Match map[string]any `json:"match"`
}

type filter struct {
	Must []condition `json:"must"`
}

type statusError struct {
	method string
	path   string
	code   int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %d %s", e.method, e.path, e.code, e.body)
}

// NewStorage creates a client. Call EnsureCollection before use.
func NewStorage(cfg Config, log *logrus.Entry) (*Storage, error) {
	if cfg.URL == "" || cfg.Collection == "" {
		return nil, fmt.Errorf("%w: qdrant url and collection are required", domain.ErrInvalidConfig)
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: qdrant vector size must be positive", domain.ErrInvalidConfig)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		client:     &http.Client{Timeout: timeout},
		log:        log.WithField("collection", cfg.Collection),
	}, nil
}

// EnsureCollection creates the collection if it is missing and checks the
// vector size of an existing one.
func (s *Storage) EnsureCollection(ctx context.Context) error {
	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodGet, s.collectionPath(""), nil, &info)
	var se *statusError
	switch {
	case err == nil:
		size := info.Result.Config.Params.Vectors.Size
		if size != s.dimension {
			return fmt.Errorf("%w: collection %s has vector size %d, embedder produces %d",
				domain.ErrDimensionMismatch, s.collection, size, s.dimension)
		}
		return nil
	case errors.As(err, &se) && se.code == http.StatusNotFound:
		// missing, created below
	default:
		return fmt.Errorf("%w: %w", domain.ErrStoreFailed, err)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimension,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionPath(""), body, nil); err != nil {
		return fmt.Errorf("%w: create collection: %w", domain.ErrStoreFailed, err)
	}
	s.log.WithField("size", s.dimension).Info("created collection")
	return nil
}

// Upsert writes one point per chunk, replacing points with the same id.
func (s *Storage) Upsert(ctx context.Context, chunks []domain.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := vectorstore.CheckVectors(chunks, s.dimension); err != nil {
		return err
	}
	points := make([]point, len(chunks))
	for i, c := range chunks {
		points[i] = point{
			ID:     c.ID,
			Vector: c.Embedding,
			Payload: payload{
				DocumentID: c.DocumentID,
				Content:    c.Content,
				ChunkIndex: c.Position,
				Metadata:   c.Metadata,
			},
		}
	}
	body := map[string]any{"points": points}
	if err := s.do(ctx, http.MethodPut, s.collectionPath("/points?wait=true"), body, nil); err != nil {
		s.log.WithError(err).WithField("points", len(points)).Error("upsert failed")
		return fmt.Errorf("%w: %w", domain.ErrStoreFailed, err)
	}
	return nil
}

// Search returns up to k nearest points matching every set filter.
func (s *Storage) Search(ctx context.Context, vector []float32, k int, filters domain.SearchFilters) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = domain.DefaultTopK
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if f := buildFilter(filters); f != nil {
		req["filter"] = f
	}
	var resp struct {
		Result []struct {
			ID      any     `json:"id"`
			Score   float64 `json:"score"`
			Payload payload `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath("/points/search"), req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchFailed, err)
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{
			Chunk: domain.DocumentChunk{
				ID:         fmt.Sprint(r.ID),
				DocumentID: r.Payload.DocumentID,
				Content:    r.Payload.Content,
				Position:   r.Payload.ChunkIndex,
				Metadata:   r.Payload.Metadata,
			},
			Score: r.Score,
		})
	}
	return results, nil
}

// DeleteByDocument resolves the point ids of a document by scrolling a
// document_id filter, then deletes those ids.
func (s *Storage) DeleteByDocument(ctx context.Context, documentID string) error {
	ids, err := s.pointIDs(ctx, documentID)
	if err != nil {
		return fmt.Errorf("%w: resolve points of %s: %w", domain.ErrStoreFailed, documentID, err)
	}
	if len(ids) == 0 {
		return nil
	}
	body := map[string]any{"points": ids}
	if err := s.do(ctx, http.MethodPost, s.collectionPath("/points/delete?wait=true"), body, nil); err != nil {
		return fmt.Errorf("%w: delete points of %s: %w", domain.ErrStoreFailed, documentID, err)
	}
	s.log.WithFields(logrus.Fields{"document_id": documentID, "points": len(ids)}).Debug("deleted document points")
	return nil
}

func (s *Storage) pointIDs(ctx context.Context, documentID string) ([]any, error) {
	var ids []any
	var offset any
	for {
		req := map[string]any{
			"filter": filter{Must: []condition{{
				Key:   vectorstore.FieldDocumentID,
				Match: map[string]any{"value": documentID},
			}}},
			"limit":        scrollPageSize,
			"with_payload": false,
			"with_vector":  false,
		}
		if offset != nil {
			req["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points []struct {
					ID any `json:"id"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := s.do(ctx, http.MethodPost, s.collectionPath("/points/scroll"), req, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Result.Points {
			ids = append(ids, p.ID)
		}
		if resp.Result.NextPageOffset == nil {
			return ids, nil
		}
		offset = resp.Result.NextPageOffset
	}
}

// buildFilter returns nil when no filter is set.
func buildFilter(f domain.SearchFilters) *filter {
	var must []condition
	if f.Module != "" {
		must = append(must, condition{
			Key:   vectorstore.FieldMetadata + "." + vectorstore.FieldModule,
			Match: map[string]any{"value": f.Module},
		})
	}
	if f.Week != 0 {
		must = append(must, condition{
			Key:   vectorstore.FieldMetadata + "." + vectorstore.FieldWeek,
			Match: map[string]any{"value": f.Week},
		})
	}
	if len(must) == 0 {
		return nil
	}
	return &filter{Must: must}
}

func (s *Storage) collectionPath(suffix string) string {
	return "/collections/" + url.PathEscape(s.collection) + suffix
}

func (s *Storage) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{method: method, path: path, code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
