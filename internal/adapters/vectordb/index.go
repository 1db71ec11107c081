package vectordb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
	"github.com/0xcro3dile/askdocs/internal/domain/ports"
)

// Index implements ports.VectorIndex on top of a VectorStore and an embedder.
// A storage fault during Add wipes the store and retries the write once.
type Index struct {
	mu       sync.Mutex
	store    ports.VectorStore
	embedder ports.EmbeddingService
	log      *zap.Logger
	gen      atomic.Uint64
}

// NewIndex creates an index. A nil logger discards output.
func NewIndex(store ports.VectorStore, embedder ports.EmbeddingService, log *zap.Logger) *Index {
	if log == nil {
		log = zap.NewNop()
	}
	return &Index{
		store:    store,
		embedder: embedder,
		log:      log.Named("index"),
	}
}

// Add embeds passages and upserts them. Passages already present are replaced
// by id, so repeating an add is harmless.
func (ix *Index) Add(ctx context.Context, passages []entities.Passage) error {
	return ix.add(ctx, passages, nil)
}

// AddFile adds passages and records src as processed in the same write.
func (ix *Index) AddFile(ctx context.Context, src entities.SourceFile, passages []entities.Passage) error {
	return ix.add(ctx, passages, []entities.SourceFile{src})
}

func (ix *Index) add(ctx context.Context, passages []entities.Passage, files []entities.SourceFile) error {
	if len(passages) == 0 && len(files) == 0 {
		return nil
	}

	records := make([]entities.Record, len(passages))
	if len(passages) > 0 {
		texts := make([]string, len(passages))
		for i, p := range passages {
			texts[i] = p.Text
		}
		vectors, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding passages: %w", err)
		}
		if len(vectors) != len(passages) {
			return fmt.Errorf("embedding passages: got %d vectors for %d texts", len(vectors), len(passages))
		}
		for i, p := range passages {
			records[i] = entities.Record{Passage: p, Embedding: vectors[i]}
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	err := ix.store.Upsert(ctx, records, files...)
	if err == nil {
		return nil
	}
	if !entities.IsIndexFault(err) {
		return fmt.Errorf("storing passages: %w", err)
	}

	ix.log.Warn("index fault, wiping store and retrying",
		zap.Error(err),
		zap.Int("passages", len(records)),
	)
	if rerr := ix.resetLocked(ctx); rerr != nil {
		return fmt.Errorf("%w: reset after %v: %w", entities.ErrIndexFatal, err, rerr)
	}
	if err := ix.store.Upsert(ctx, records, files...); err != nil {
		ix.log.Error("retry after reset failed", zap.Error(err))
		return fmt.Errorf("%w: retry after reset: %w", entities.ErrIndexFatal, err)
	}
	ix.log.Info("index recovered", zap.Uint64("generation", ix.gen.Load()))
	return nil
}

// Search embeds query and returns the k nearest passages. Any failure is
// reported as entities.ErrRetrievalUnavailable.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]entities.ScoredPassage, error) {
	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %w", entities.ErrRetrievalUnavailable, err)
	}

	hits, err := ix.store.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: searching store: %w", entities.ErrRetrievalUnavailable, err)
	}
	return hits, nil
}

// Reset deletes all persisted data and bumps the generation.
func (ix *Index) Reset(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.resetLocked(ctx)
}

func (ix *Index) resetLocked(ctx context.Context) error {
	if err := ix.store.Wipe(ctx); err != nil {
		return fmt.Errorf("wiping store: %w", err)
	}
	gen := ix.gen.Add(1)
	ix.log.Info("index reset", zap.Uint64("generation", gen))
	return nil
}

// Count returns the number of stored passages.
func (ix *Index) Count(ctx context.Context) (int, error) {
	return ix.store.Count(ctx)
}

// SourceFiles returns the files recorded as processed. A store that cannot be
// read yet is reported as a fault; the next Add recovers it.
func (ix *Index) SourceFiles(ctx context.Context) ([]entities.SourceFile, error) {
	files, err := ix.store.SourceFiles(ctx)
	if err != nil && entities.IsIndexFault(err) {
		ix.log.Warn("processed files unavailable", zap.Error(err))
	}
	return files, err
}

// Generation returns how many times the index has been reset.
func (ix *Index) Generation() uint64 {
	return ix.gen.Load()
}

// Close releases the underlying store.
func (ix *Index) Close() error {
	return ix.store.Close()
}
