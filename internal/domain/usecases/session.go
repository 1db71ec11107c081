package usecases

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
	"github.com/0xcro3dile/askdocs/internal/domain/ports"
)

// Session holds the state of one user's interaction: the vector index handle,
// the processed-file registry, the chat history and the last relevant passages.
// Operations on a session are serialized.
type Session struct {
	ID string

	mu         sync.Mutex
	index      ports.VectorIndex
	files      *FileRegistry
	history    []entities.ChatTurn
	relevant   []entities.Passage
	generation uint64
}

// NewSession opens a session over an existing index. The processed-file
// registry is seeded from the files recorded in the index. An index that is
// faulted starts the session with an empty registry; the first Add recovers it.
func NewSession(ctx context.Context, index ports.VectorIndex) (*Session, error) {
	files, err := index.SourceFiles(ctx)
	if err != nil {
		if !entities.IsIndexFault(err) {
			return nil, fmt.Errorf("loading processed files: %w", err)
		}
		files = nil
	}
	return &Session{
		ID:         uuid.NewString(),
		index:      index,
		files:      NewFileRegistry(files...),
		generation: index.Generation(),
	}, nil
}

// History returns a copy of the chat history.
func (s *Session) History() []entities.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entities.ChatTurn(nil), s.history...)
}

// RelevantPassages returns the passages retrieved for the last question.
func (s *Session) RelevantPassages() []entities.Passage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entities.Passage(nil), s.relevant...)
}

// ProcessedFiles returns the files known to be ingested.
func (s *Session) ProcessedFiles() []entities.SourceFile {
	return s.files.Files()
}

// syncLocked re-seeds the registry when the index was reset since the last sync,
// so that wiped files can be ingested again. Reports whether a re-seed happened.
func (s *Session) syncLocked(ctx context.Context) (bool, error) {
	gen := s.index.Generation()
	if gen == s.generation {
		return false, nil
	}
	files, err := s.index.SourceFiles(ctx)
	if err != nil {
		return false, fmt.Errorf("reloading processed files: %w", err)
	}
	s.files.Replace(files)
	s.generation = gen
	return true, nil
}

// window returns a copy of the trailing n turns.
func (s *Session) window(n int) []entities.ChatTurn {
	start := len(s.history) - n
	if start < 0 {
		start = 0
	}
	return append([]entities.ChatTurn(nil), s.history[start:]...)
}
