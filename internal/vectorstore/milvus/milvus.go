// Package milvus stores chunk vectors in a Milvus collection.
package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/sirupsen/logrus"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/vectorstore"
)

const (
	FieldID        = "id"
	FieldEmbedding = "embedding"

	maxContentLength  = 65535
	maxMetadataLength = 8192
)

var outputFields = []string{
	vectorstore.FieldDocumentID,
	vectorstore.FieldContent,
	vectorstore.FieldChunkIndex,
	vectorstore.FieldMetadata,
}

// Config holds connection details and the collection layout.
type Config struct {
	Address    string
	APIKey     string
	Collection string
	Dimension  int
}

// Storage is an adapter over the milvus-sdk-go client.
type Storage struct {
	client     client.Client
	collection string
	dimension  int
	log        *logrus.Entry
}

// Connect dials Milvus and wraps the client.
func Connect(ctx context.Context, cfg Config, log *logrus.Entry) (*Storage, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("%w: milvus address is required", domain.ErrInvalidConfig)
	}
	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address, APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("%w: connect to milvus: %w", domain.ErrStoreFailed, err)
	}
	return NewStorage(c, cfg, log)
}

// NewStorage wraps an existing client.
func NewStorage(c client.Client, cfg Config, log *logrus.Entry) (*Storage, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: milvus client is not initialized", domain.ErrInvalidConfig)
	}
	if cfg.Collection == "" || cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: milvus collection and vector size are required", domain.ErrInvalidConfig)
	}
	return &Storage{
		client:     c,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		log:        log.WithField("collection", cfg.Collection),
	}, nil
}

// Close releases the underlying connection.
func (s *Storage) Close() error { return s.client.Close() }

// EnsureCollection creates and indexes the collection when missing, checks
// the vector size of an existing one, and loads it for search.
func (s *Storage) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("%w: check collection: %w", domain.ErrStoreFailed, err)
	}
	if exists {
		if err := s.checkDimension(ctx); err != nil {
			return err
		}
	} else {
		if err := s.client.CreateCollection(ctx, collectionSchema(s.collection, s.dimension), entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("%w: create collection: %w", domain.ErrStoreFailed, err)
		}
		idx, err := entity.NewIndexAUTOINDEX(entity.COSINE)
		if err != nil {
			return fmt.Errorf("%w: build index: %w", domain.ErrStoreFailed, err)
		}
		if err := s.client.CreateIndex(ctx, s.collection, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("%w: create index on %s: %w", domain.ErrStoreFailed, FieldEmbedding, err)
		}
		s.log.WithField("size", s.dimension).Info("created collection")
	}
	if err := s.client.LoadCollection(ctx, s.collection, false); err != nil {
		return fmt.Errorf("%w: load collection: %w", domain.ErrStoreFailed, err)
	}
	return nil
}

func (s *Storage) checkDimension(ctx context.Context) error {
	coll, err := s.client.DescribeCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("%w: describe collection: %w", domain.ErrStoreFailed, err)
	}
	for _, f := range coll.Schema.Fields {
		if f.Name != FieldEmbedding {
			continue
		}
		dim, _ := strconv.Atoi(f.TypeParams[entity.TypeParamDim])
		if dim != s.dimension {
			return fmt.Errorf("%w: collection %s has vector size %d, embedder produces %d",
				domain.ErrDimensionMismatch, s.collection, dim, s.dimension)
		}
		return nil
	}
	return fmt.Errorf("%w: collection %s has no %s field", domain.ErrStoreFailed, s.collection, FieldEmbedding)
}

// Upsert writes one row per chunk, replacing rows with the same id.
func (s *Storage) Upsert(ctx context.Context, chunks []domain.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := vectorstore.CheckVectors(chunks, s.dimension); err != nil {
		return err
	}
	cols, err := columns(chunks, s.dimension)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreFailed, err)
	}
	if _, err := s.client.Upsert(ctx, s.collection, "", cols...); err != nil {
		s.log.WithError(err).WithField("rows", len(chunks)).Error("upsert failed")
		return fmt.Errorf("%w: %w", domain.ErrStoreFailed, err)
	}
	return nil
}

// Search returns up to k nearest rows matching every set filter.
func (s *Storage) Search(ctx context.Context, vector []float32, k int, filters domain.SearchFilters) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = domain.DefaultTopK
	}
	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchFailed, err)
	}
	expr := filterExpr(filters)
	s.log.WithField("filter", expr).Debug("searching")
	res, err := s.client.Search(ctx, s.collection, nil, expr, outputFields,
		[]entity.Vector{entity.FloatVector(vector)}, FieldEmbedding, entity.COSINE, k, sp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchFailed, err)
	}

	var results []domain.SearchResult
	for _, r := range res {
		hits, err := decodeHits(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrSearchFailed, err)
		}
		results = append(results, hits...)
	}
	return results, nil
}

// DeleteByDocument removes every row of the document.
func (s *Storage) DeleteByDocument(ctx context.Context, documentID string) error {
	expr := fmt.Sprintf("%s == %s", vectorstore.FieldDocumentID, quote(documentID))
	if err := s.client.Delete(ctx, s.collection, "", expr); err != nil {
		return fmt.Errorf("%w: delete rows of %s: %w", domain.ErrStoreFailed, documentID, err)
	}
	return nil
}

func collectionSchema(name string, dim int) *entity.Schema {
	return entity.NewSchema().
		WithName(name).
		WithDescription("course content chunks").
		WithField(entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true)).
		WithField(entity.NewField().WithName(vectorstore.FieldDocumentID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(domain.MaxDocumentIDLength)).
		WithField(entity.NewField().WithName(vectorstore.FieldContent).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxContentLength)).
		WithField(entity.NewField().WithName(vectorstore.FieldChunkIndex).WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName(vectorstore.FieldModule).WithDataType(entity.FieldTypeVarChar).WithMaxLength(256)).
		WithField(entity.NewField().WithName(vectorstore.FieldWeek).WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName(vectorstore.FieldMetadata).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxMetadataLength)).
		WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim)))
}

// columns lays chunks out column-wise. Module and week are duplicated out
// of the metadata JSON so filter expressions can reach them.
func columns(chunks []domain.DocumentChunk, dim int) ([]entity.Column, error) {
	n := len(chunks)
	ids := make([]string, n)
	docIDs := make([]string, n)
	contents := make([]string, n)
	positions := make([]int64, n)
	modules := make([]string, n)
	weeks := make([]int64, n)
	metas := make([]string, n)
	vectors := make([][]float32, n)
	for i, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata of %s: %w", c.ID, err)
		}
		ids[i] = c.ID
		docIDs[i] = c.DocumentID
		contents[i] = c.Content
		positions[i] = int64(c.Position)
		modules[i] = c.Metadata.Module
		weeks[i] = int64(c.Metadata.Week)
		metas[i] = string(meta)
		vectors[i] = c.Embedding
	}
	return []entity.Column{
		entity.NewColumnVarChar(FieldID, ids),
		entity.NewColumnVarChar(vectorstore.FieldDocumentID, docIDs),
		entity.NewColumnVarChar(vectorstore.FieldContent, contents),
		entity.NewColumnInt64(vectorstore.FieldChunkIndex, positions),
		entity.NewColumnVarChar(vectorstore.FieldModule, modules),
		entity.NewColumnInt64(vectorstore.FieldWeek, weeks),
		entity.NewColumnVarChar(vectorstore.FieldMetadata, metas),
		entity.NewColumnFloatVector(FieldEmbedding, dim, vectors),
	}, nil
}

func decodeHits(r client.SearchResult) ([]domain.SearchResult, error) {
	if r.ResultCount == 0 {
		return nil, nil
	}
	findColumn := func(name string) entity.Column {
		for _, field := range r.Fields {
			if field.Name() == name {
				return field
			}
		}
		return nil
	}
	ids, ok := r.IDs.(*entity.ColumnVarChar)
	if !ok {
		return nil, fmt.Errorf("unexpected id column %T", r.IDs)
	}
	docIDs, ok1 := findColumn(vectorstore.FieldDocumentID).(*entity.ColumnVarChar)
	contents, ok2 := findColumn(vectorstore.FieldContent).(*entity.ColumnVarChar)
	positions, ok3 := findColumn(vectorstore.FieldChunkIndex).(*entity.ColumnInt64)
	metas, ok4 := findColumn(vectorstore.FieldMetadata).(*entity.ColumnVarChar)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, fmt.Errorf("search result is missing output fields")
	}

	hits := make([]domain.SearchResult, 0, r.ResultCount)
	for i := 0; i < r.ResultCount; i++ {
		var meta domain.ChunkMetadata
		if err := json.Unmarshal([]byte(metas.Data()[i]), &meta); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", ids.Data()[i], err)
		}
		hits = append(hits, domain.SearchResult{
			Chunk: domain.DocumentChunk{
				ID:         ids.Data()[i],
				DocumentID: docIDs.Data()[i],
				Content:    contents.Data()[i],
				Position:   int(positions.Data()[i]),
				Metadata:   meta,
			},
			Score: float64(r.Scores[i]),
		})
	}
	return hits, nil
}

// filterExpr builds a boolean expression over the module and week fields.
func filterExpr(f domain.SearchFilters) string {
	var conds []string
	if f.Module != "" {
		conds = append(conds, fmt.Sprintf("%s == %s", vectorstore.FieldModule, quote(f.Module)))
	}
	if f.Week != 0 {
		conds = append(conds, fmt.Sprintf("%s == %d", vectorstore.FieldWeek, f.Week))
	}
	return strings.Join(conds, " && ")
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(s string) string {
	return `"` + quoteReplacer.Replace(s) + `"`
}
