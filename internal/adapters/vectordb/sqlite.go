// Package vectordb provides the vector index and its storage backends.
package vectordb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
)

// DefaultPersistDir is where the SQLite store keeps its data.
const DefaultPersistDir = "./askdocs_db"

const sqliteFile = "vectors.db"

// sqliteSidecars are the files SQLite may keep next to the database.
var sqliteSidecars = []string{"-journal", "-wal", "-shm"}

// SQLiteStore implements ports.VectorStore with a SQLite database inside a
// persist directory. Search is a brute-force cosine scan.
// One process per directory; there is no file locking across processes.
type SQLiteStore struct {
	mu      sync.RWMutex
	db      *sql.DB
	dir     string
	openErr error
}

// NewSQLiteStore opens or creates the store in dir. A database that exists but
// cannot be opened does not fail construction: the store reports the fault on
// every call until Wipe replaces the database.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if dir == "" {
		dir = DefaultPersistDir
	}
	s := &SQLiteStore{dir: dir}
	if err := s.open(); err != nil {
		if !entities.IsIndexFault(err) {
			return nil, err
		}
		s.openErr = err
	}
	return s, nil
}

// dbPath returns the database file path.
func (s *SQLiteStore) dbPath() string {
	return filepath.Join(s.dir, sqliteFile)
}

func (s *SQLiteStore) open() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating persist directory: %w: %w", entities.ErrIndexConnectivity, err)
	}

	db, err := sql.Open("sqlite3", s.dbPath()+"?_busy_timeout=5000")
	if err != nil {
		return classify("opening database", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return classify("initializing schema", err)
	}
	s.db = db
	s.openErr = nil
	return nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS passages (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		source_file TEXT NOT NULL DEFAULT '',
		source_hash TEXT NOT NULL DEFAULT '',
		embedding BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_passages_source_hash ON passages(source_hash);
	CREATE TABLE IF NOT EXISTS source_files (
		hash TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Upsert inserts or replaces records and records files in one transaction.
// An existing passage keeps its original source; a known file keeps its first name.
func (s *SQLiteStore) Upsert(ctx context.Context, records []entities.Record, files ...entities.SourceFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.handle()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return classify("starting transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO passages (id, content, source_file, source_hash, embedding)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET content = excluded.content, embedding = excluded.embedding
	`)
	if err != nil {
		return classify("preparing statement", err)
	}
	defer stmt.Close()

	for _, r := range records {
		embeddingJSON, err := json.Marshal(r.Embedding)
		if err != nil {
			return fmt.Errorf("encoding embedding of %s: %w", r.Passage.ID, err)
		}

		_, err = stmt.ExecContext(ctx,
			r.Passage.ID,
			r.Passage.Text,
			r.Passage.SourceFile,
			r.Passage.SourceHash,
			embeddingJSON,
		)
		if err != nil {
			return classify("upserting passage "+r.Passage.ID, err)
		}
	}

	for _, f := range files {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO source_files (hash, name) VALUES (?, ?) ON CONFLICT(hash) DO NOTHING`,
			f.ContentHash, f.Name,
		)
		if err != nil {
			return classify("recording file "+f.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return classify("committing", err)
	}
	return nil
}

// Search finds the topK passages most similar to embedding.
func (s *SQLiteStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.ScoredPassage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 {
		return nil, nil
	}
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, content, source_file, source_hash, embedding
		FROM passages
	`)
	if err != nil {
		return nil, classify("querying passages", err)
	}
	defer rows.Close()

	var hits []entities.ScoredPassage
	for rows.Next() {
		var p entities.Passage
		var embeddingJSON []byte
		if err := rows.Scan(&p.ID, &p.Text, &p.SourceFile, &p.SourceHash, &embeddingJSON); err != nil {
			return nil, classify("scanning row", err)
		}

		var vec []float32
		if err := json.Unmarshal(embeddingJSON, &vec); err != nil {
			return nil, fmt.Errorf("decoding embedding of %s: %w: %w", p.ID, entities.ErrIndexCorruption, err)
		}

		hits = append(hits, entities.ScoredPassage{
			Passage: p,
			Score:   relevance(cosineSimilarity(embedding, vec)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, classify("reading rows", err)
	}

	return rank(hits, topK), nil
}

// SourceFiles returns the files recorded as processed, sorted by hash.
func (s *SQLiteStore) SourceFiles(ctx context.Context) ([]entities.SourceFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT hash, name FROM source_files ORDER BY hash`)
	if err != nil {
		return nil, classify("querying source files", err)
	}
	defer rows.Close()

	var files []entities.SourceFile
	for rows.Next() {
		var f entities.SourceFile
		if err := rows.Scan(&f.ContentHash, &f.Name); err != nil {
			return nil, classify("scanning source file", err)
		}
		files = append(files, f)
	}
	return files, classify("reading source files", rows.Err())
}

// Count returns the number of stored passages.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM passages").Scan(&count)
	return count, classify("counting passages", err)
}

// handle returns the open database. A store that failed to open reports that
// fault; a closed store reports a connectivity fault.
func (s *SQLiteStore) handle() (*sql.DB, error) {
	if s.openErr != nil {
		return nil, fmt.Errorf("database %s: %w", s.dir, s.openErr)
	}
	if s.db == nil {
		return nil, fmt.Errorf("database %s: %w: not open", s.dir, entities.ErrIndexConnectivity)
	}
	return s.db, nil
}

// Wipe closes the database, deletes the database files and recreates an
// empty store. Other files in the persist directory are left alone.
func (s *SQLiteStore) Wipe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	path := s.dbPath()
	for _, name := range append([]string{path}, sidecarPaths(path)...) {
		if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing %s: %w: %w", name, entities.ErrIndexConnectivity, err)
		}
	}
	return s.open()
}

func sidecarPaths(path string) []string {
	out := make([]string, len(sqliteSidecars))
	for i, suffix := range sqliteSidecars {
		out[i] = path + suffix
	}
	return out
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// classify wraps SQLite errors into the index fault taxonomy. nil stays nil.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrCorrupt, sqlite3.ErrNotADB, sqlite3.ErrFormat, sqlite3.ErrSchema:
			return fmt.Errorf("%s: %w: %w", op, entities.ErrIndexCorruption, err)
		case sqlite3.ErrCantOpen, sqlite3.ErrIoErr, sqlite3.ErrBusy, sqlite3.ErrLocked,
			sqlite3.ErrReadonly, sqlite3.ErrFull, sqlite3.ErrPerm:
			return fmt.Errorf("%s: %w: %w", op, entities.ErrIndexConnectivity, err)
		}
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %w: %w", op, entities.ErrIndexConnectivity, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
