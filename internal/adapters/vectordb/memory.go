package vectordb

import (
	"context"
	"sort"
	"sync"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
)

// MemoryStore is an in-process ports.VectorStore. Nothing survives a restart;
// it backs tests and throwaway sessions.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]entities.Record
	files   map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]entities.Record),
		files:   make(map[string]string),
	}
}

// Upsert saves records and files. An existing passage keeps its original
// source; a known file keeps its first name.
func (s *MemoryStore) Upsert(ctx context.Context, records []entities.Record, files ...entities.SourceFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if prev, ok := s.records[r.Passage.ID]; ok {
			r.Passage.SourceFile = prev.Passage.SourceFile
			r.Passage.SourceHash = prev.Passage.SourceHash
		}
		s.records[r.Passage.ID] = r
	}
	for _, f := range files {
		if _, ok := s.files[f.ContentHash]; !ok {
			s.files[f.ContentHash] = f.Name
		}
	}
	return nil
}

// Search finds the most similar passages to a query embedding.
func (s *MemoryStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.ScoredPassage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 {
		return nil, nil
	}

	hits := make([]entities.ScoredPassage, 0, len(s.records))
	for _, r := range s.records {
		hits = append(hits, entities.ScoredPassage{
			Passage: r.Passage,
			Score:   relevance(cosineSimilarity(embedding, r.Embedding)),
		})
	}
	return rank(hits, topK), nil
}

// SourceFiles returns the recorded files, sorted by hash.
func (s *MemoryStore) SourceFiles(ctx context.Context) ([]entities.SourceFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := make([]entities.SourceFile, 0, len(s.files))
	for h, name := range s.files {
		files = append(files, entities.SourceFile{ContentHash: h, Name: name})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ContentHash < files[j].ContentHash })
	return files, nil
}

// Count returns the number of stored passages.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Wipe removes all data from the store.
func (s *MemoryStore) Wipe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]entities.Record)
	s.files = make(map[string]string)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
