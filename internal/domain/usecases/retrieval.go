package usecases

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/0xcro3dile/askdocs/internal/domain/ports"
)

// Defaults for RetrievalService options.
const (
	DefaultTopK          = 20
	DefaultThreshold     = 0.8
	DefaultHistoryWindow = 5
)

// Options tunes ingestion and retrieval.
type Options struct {
	ChunkSize     int
	TopK          int
	Threshold     float64 // passages scoring below are dropped; 0 keeps everything
	HistoryWindow int     // trailing turns forwarded to answer generation
}

// DefaultOptions returns the standard operating parameters.
func DefaultOptions() Options {
	return Options{
		ChunkSize:     DefaultChunkSize,
		TopK:          DefaultTopK,
		Threshold:     DefaultThreshold,
		HistoryWindow: DefaultHistoryWindow,
	}
}

// RetrievalService orchestrates chunking, deduplication and the vector index.
// It owns no state: the index and file registry live on the Session passed in.
type RetrievalService struct {
	extractor ports.TextExtractor
	answerer  ports.AnswerGenerator
	opts      Options
	log       *zap.Logger
}

// NewRetrievalService creates a RetrievalService with injected dependencies.
// answerer may be nil when only ingestion and retrieval are needed.
func NewRetrievalService(extractor ports.TextExtractor, answerer ports.AnswerGenerator, opts Options) *RetrievalService {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Threshold < 0 {
		opts.Threshold = 0
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = DefaultHistoryWindow
	}
	return &RetrievalService{
		extractor: extractor,
		answerer:  answerer,
		opts:      opts,
		log:       zap.NewNop(),
	}
}

// WithLogger sets the logger used for ingest and query events.
func (s *RetrievalService) WithLogger(l *zap.Logger) *RetrievalService {
	if l != nil {
		s.log = l.Named("retrieval")
	}
	return s
}

// Reset wipes the session's index and forgets every processed file.
func (s *RetrievalService) Reset(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.index.Reset(ctx); err != nil {
		return fmt.Errorf("resetting index: %w", err)
	}
	sess.files.Replace(nil)
	sess.generation = sess.index.Generation()
	sess.relevant = nil
	s.log.Info("index reset", zap.String("session", sess.ID))
	return nil
}
