// Package entities contains core business entities.
// These are pure domain objects with no knowledge of storage, embedding or transport.
package entities

import "time"

// Passage is a bounded segment of source text stored and retrieved as a unit.
// ID is the content hash of Text, so identical text always maps to the same passage.
type Passage struct {
	ID         string
	Text       string
	SourceFile string
	SourceHash string // content hash of the file the passage was first read from
}

// Record is a passage together with its embedding, as handed to a storage backend.
type Record struct {
	Passage   Passage
	Embedding []float32
}

// ScoredPassage is a search hit. Score is a similarity in [0,1], higher is more relevant.
type ScoredPassage struct {
	Passage Passage
	Score   float64
}

// SourceFile identifies an uploaded file by the hash of its raw bytes.
type SourceFile struct {
	ContentHash string
	Name        string
}

// RawFile is an uploaded file before extraction.
type RawFile struct {
	Name string
	Data []byte
}

// Role of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn represents a conversation turn.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// FileStatus is the outcome of ingesting a single file.
type FileStatus string

const (
	FileIndexed   FileStatus = "indexed"
	FileDuplicate FileStatus = "duplicate"
	FileEmpty     FileStatus = "empty"
)

// FileOutcome records what happened to one file of an ingest batch.
type FileOutcome struct {
	Name   string     `json:"name"`
	Hash   string     `json:"hash"`
	Status FileStatus `json:"status"`
	Chunks int        `json:"chunks"`
}

// IngestReport summarises an ingest batch.
type IngestReport struct {
	NewFiles       int           `json:"new_files"`
	DuplicateFiles int           `json:"duplicate_files"`
	EmptyFiles     int           `json:"empty_files"`
	NewChunks      int           `json:"new_chunks"`
	IndexReset     bool          `json:"index_reset"` // a recovery cycle wiped earlier content
	Files          []FileOutcome `json:"files"`
	Elapsed        time.Duration `json:"elapsed"`
}

// ChatResponse is the answer to a question with the passages it was grounded on.
// Passages are kept even when AnswerErr is set.
type ChatResponse struct {
	Answer    string
	Passages  []Passage
	AnswerErr error
}
