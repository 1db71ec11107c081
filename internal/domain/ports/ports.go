// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions; adapters implement them.
package ports

import (
	"context"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
)

// EmbeddingService generates vector embeddings for text.
// Embeddings must be deterministic for identical input.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// AnswerGenerator turns the trailing conversation and retrieved context into a reply.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, messages []entities.ChatTurn, context string) (string, error)
}

// TextExtractor extracts text from raw file bytes.
// A file that yields no text returns an empty string, not an error.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, filename string) (string, error)

	// SupportedExtensions returns file extensions this extractor handles (e.g. ".pdf").
	SupportedExtensions() []string
}

// VectorStore is a storage backend for embedded passages.
// Upsert is all-or-nothing per call. Faults are reported wrapping
// entities.ErrIndexCorruption or entities.ErrIndexConnectivity.
type VectorStore interface {
	// Upsert inserts or replaces records keyed by passage id, and records
	// files as processed, in the same write.
	Upsert(ctx context.Context, records []entities.Record, files ...entities.SourceFile) error

	// Search returns the topK records nearest to embedding, by descending score.
	Search(ctx context.Context, embedding []float32, topK int) ([]entities.ScoredPassage, error)

	// SourceFiles returns the files recorded as processed, sorted by hash.
	SourceFiles(ctx context.Context) ([]entities.SourceFile, error)

	// Count returns the number of stored passages.
	Count(ctx context.Context) (int, error)

	// Wipe discards all persisted data and reinitializes empty storage.
	Wipe(ctx context.Context) error

	Close() error
}

// VectorIndex is the persistent embedding index: it embeds passages, stores them
// and answers k-nearest queries.
type VectorIndex interface {
	// Add embeds and upserts passages. Durable on return.
	Add(ctx context.Context, passages []entities.Passage) error

	// AddFile is Add that also records src as processed. src is stored even
	// when passages is empty.
	AddFile(ctx context.Context, src entities.SourceFile, passages []entities.Passage) error

	// Search embeds query and returns the k nearest passages, descending score.
	Search(ctx context.Context, query string, k int) ([]entities.ScoredPassage, error)

	// Reset irrecoverably deletes all persisted data.
	Reset(ctx context.Context) error

	Count(ctx context.Context) (int, error)
	SourceFiles(ctx context.Context) ([]entities.SourceFile, error)

	// Generation increases by one on every reset.
	Generation() uint64
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
