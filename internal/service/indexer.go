package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/embedding"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/loader"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/vectorstore"
)

// Stage names the indexing step that failed.
type Stage string

const (
	StageLoad   Stage = "load"
	StageChunk  Stage = "chunk"
	StageEmbed  Stage = "embed"
	StageStore  Stage = "store"
	StageDelete Stage = "delete"
)

// IndexError reports which document failed and where.
type IndexError struct {
	DocumentID string
	Title      string
	Stage      Stage
	Err        error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index document %s (%q) failed at %s: %v", e.DocumentID, e.Title, e.Stage, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

// Indexer turns documents into stored, searchable chunks.
type Indexer struct {
	splitter     domain.Splitter
	embedder     domain.Embedder
	index        domain.VectorIndex
	log          *logrus.Entry
	concurrency  int
	embedTimeout time.Duration
	storeTimeout time.Duration
}

// IndexerOption customizes an Indexer.
type IndexerOption func(*Indexer)

// WithConcurrency bounds how many documents IndexDocuments processes at once.
func WithConcurrency(n int) IndexerOption {
	return func(ix *Indexer) {
		if n > 0 {
			ix.concurrency = n
		}
	}
}

// WithIndexTimeouts bounds the embedding and store calls of one document.
func WithIndexTimeouts(embed, store time.Duration) IndexerOption {
	return func(ix *Indexer) {
		ix.embedTimeout = embed
		ix.storeTimeout = store
	}
}

// NewIndexer wires the indexing pipeline.
func NewIndexer(splitter domain.Splitter, embedder domain.Embedder, index domain.VectorIndex, log *logrus.Entry, opts ...IndexerOption) *Indexer {
	ix := &Indexer{
		splitter:    splitter,
		embedder:    embedder,
		index:       index,
		log:         log,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// NewDocument creates a document with a fresh identifier.
func NewDocument(title, content, source, module string, week int, tags []string) domain.Document {
	now := time.Now().UTC()
	return domain.Document{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		Source:    source,
		Module:    module,
		Week:      week,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Chunks splits the document and copies its metadata onto every chunk.
// Positions run from 0 in emission order.
func (ix *Indexer) Chunks(doc domain.Document) []domain.DocumentChunk {
	segments := ix.splitter.Split(doc.Content)
	meta := domain.MetadataOf(doc)
	chunks := make([]domain.DocumentChunk, len(segments))
	for i, seg := range segments {
		chunks[i] = domain.DocumentChunk{
			ID:         vectorstore.PointID(doc.ID, i),
			DocumentID: doc.ID,
			Content:    seg,
			Position:   i,
			Metadata:   meta,
		}
	}
	return chunks
}

// IndexDocument chunks, embeds and stores one document. A nil error means
// every chunk was stored; failures are logged and returned as *IndexError.
func (ix *Indexer) IndexDocument(ctx context.Context, doc domain.Document) error {
	n, err := ix.indexChunks(ctx, doc)
	if err != nil {
		ix.logFailure(err)
		return err
	}
	ix.log.WithFields(logrus.Fields{"document_id": doc.ID, "title": doc.Title, "chunks": n}).Info("indexed document")
	return nil
}

// IndexDocuments indexes every document independently and returns how many
// succeeded. One failure does not stop the others.
func (ix *Indexer) IndexDocuments(ctx context.Context, docs []domain.Document) int {
	var ok atomic.Int64
	var g errgroup.Group
	g.SetLimit(ix.concurrency)
	for _, doc := range docs {
		g.Go(func() error {
			if ix.IndexDocument(ctx, doc) == nil {
				ok.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(ok.Load())
}

// UpdateDocument removes every stored chunk of the document, then indexes
// its current content.
func (ix *Indexer) UpdateDocument(ctx context.Context, doc domain.Document) error {
	if err := domain.ValidateDocumentID(doc.ID); err != nil {
		err = &IndexError{DocumentID: doc.ID, Title: doc.Title, Stage: StageDelete, Err: err}
		ix.logFailure(err)
		return err
	}
	if err := ix.deleteChunks(ctx, doc.ID); err != nil {
		err = &IndexError{DocumentID: doc.ID, Title: doc.Title, Stage: StageDelete, Err: err}
		ix.logFailure(err)
		return err
	}
	doc.UpdatedAt = time.Now().UTC()
	return ix.IndexDocument(ctx, doc)
}

// DeleteDocument removes every stored chunk of the document.
func (ix *Indexer) DeleteDocument(ctx context.Context, documentID string) error {
	if err := domain.ValidateDocumentID(documentID); err != nil {
		return &IndexError{DocumentID: documentID, Stage: StageDelete, Err: err}
	}
	if err := ix.deleteChunks(ctx, documentID); err != nil {
		err = &IndexError{DocumentID: documentID, Stage: StageDelete, Err: err}
		ix.logFailure(err)
		return err
	}
	ix.log.WithField("document_id", documentID).Info("deleted document")
	return nil
}

// IndexFromSource loads a file, titles it by its base name and indexes it.
// The returned document carries the loaded content whenever loading worked.
func (ix *Indexer) IndexFromSource(ctx context.Context, path, module string, week int, tags []string) (domain.Document, error) {
	title := filepath.Base(path)
	content, err := loader.LoadFile(path)
	if err != nil {
		err = &IndexError{Title: title, Stage: StageLoad, Err: err}
		ix.logFailure(err)
		return domain.Document{}, err
	}
	doc := NewDocument(title, content, path, module, week, tags)
	return doc, ix.IndexDocument(ctx, doc)
}

func (ix *Indexer) indexChunks(ctx context.Context, doc domain.Document) (int, error) {
	fail := func(stage Stage, err error) (int, error) {
		return 0, &IndexError{DocumentID: doc.ID, Title: doc.Title, Stage: stage, Err: err}
	}
	if err := domain.ValidateDocumentID(doc.ID); err != nil {
		return fail(StageChunk, err)
	}
	chunks := ix.Chunks(doc)
	if len(chunks) == 0 {
		return fail(StageChunk, domain.ErrEmptyDocument)
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	ectx, cancel := withTimeout(ctx, ix.embedTimeout)
	vectors, err := ix.embedder.EmbedBatch(ectx, texts)
	cancel()
	if err != nil {
		return fail(StageEmbed, err)
	}
	if err := embedding.CheckBatch(len(texts), vectors, ix.embedder.Dimension()); err != nil {
		return fail(StageEmbed, err)
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	sctx, cancel := withTimeout(ctx, ix.storeTimeout)
	defer cancel()
	if err := ix.index.Upsert(sctx, chunks); err != nil {
		return fail(StageStore, err)
	}
	return len(chunks), nil
}

func (ix *Indexer) deleteChunks(ctx context.Context, documentID string) error {
	dctx, cancel := withTimeout(ctx, ix.storeTimeout)
	defer cancel()
	return ix.index.DeleteByDocument(dctx, documentID)
}

func (ix *Indexer) logFailure(err error) {
	entry := ix.log.WithError(err)
	if ie, ok := err.(*IndexError); ok {
		entry = ix.log.WithError(ie.Err).WithFields(logrus.Fields{
			"document_id": ie.DocumentID,
			"title":       ie.Title,
			"stage":       ie.Stage,
		})
	}
	entry.Error("indexing failed")
}

// withTimeout leaves ctx unchanged when d is zero.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
