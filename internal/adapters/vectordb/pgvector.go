package vectordb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
)

// PgvectorStore implements ports.VectorStore on PostgreSQL with the pgvector
// extension. Ranking happens in the database with the cosine distance operator.
type PgvectorStore struct {
	db *pgxpool.Pool
}

// NewPgvectorStore connects to dsn, creates the extension and table if needed.
func NewPgvectorStore(ctx context.Context, dsn string) (*PgvectorStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, classifyPg("create connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, classifyPg("ping database", err)
	}

	s := &PgvectorStore{db: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PgvectorStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS askdocs_passages (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			source_file TEXT NOT NULL DEFAULT '',
			source_hash TEXT NOT NULL DEFAULT '',
			embedding vector NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_askdocs_passages_source_hash ON askdocs_passages (source_hash)`,
		`CREATE TABLE IF NOT EXISTS askdocs_source_files (
			hash TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return classifyPg("migrate", err)
		}
	}
	return nil
}

// Upsert inserts or replaces records and records files in one transaction.
// An existing passage keeps its original source.
func (s *PgvectorStore) Upsert(ctx context.Context, records []entities.Record, files ...entities.SourceFile) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return classifyPg("begin tx", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		_, err := tx.Exec(ctx,
			`INSERT INTO askdocs_passages (id, content, source_file, source_hash, embedding)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE SET content = $2, embedding = $5`,
			r.Passage.ID, r.Passage.Text, r.Passage.SourceFile, r.Passage.SourceHash,
			pgvector.NewVector(r.Embedding),
		)
		if err != nil {
			return classifyPg("upsert passage "+r.Passage.ID, err)
		}
	}

	for _, f := range files {
		_, err := tx.Exec(ctx,
			`INSERT INTO askdocs_source_files (hash, name) VALUES ($1, $2) ON CONFLICT (hash) DO NOTHING`,
			f.ContentHash, f.Name,
		)
		if err != nil {
			return classifyPg("record file "+f.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyPg("commit", err)
	}
	return nil
}

// Search returns the topK passages by cosine similarity.
func (s *PgvectorStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.ScoredPassage, error) {
	if topK <= 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, content, source_file, source_hash,
		        1 - (embedding <=> $1) AS score
		 FROM askdocs_passages
		 ORDER BY embedding <=> $1, id
		 LIMIT $2`,
		pgvector.NewVector(embedding), topK,
	)
	if err != nil {
		return nil, classifyPg("similarity search", err)
	}
	defer rows.Close()

	var hits []entities.ScoredPassage
	for rows.Next() {
		var h entities.ScoredPassage
		if err := rows.Scan(&h.Passage.ID, &h.Passage.Text, &h.Passage.SourceFile, &h.Passage.SourceHash, &h.Score); err != nil {
			return nil, classifyPg("scan result", err)
		}
		h.Score = relevance(h.Score)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPg("read results", err)
	}

	// Clamping can create new ties; restore the id tiebreak.
	return rank(hits, topK), nil
}

// SourceFiles returns the files recorded as processed, sorted by hash.
func (s *PgvectorStore) SourceFiles(ctx context.Context) ([]entities.SourceFile, error) {
	rows, err := s.db.Query(ctx, `SELECT hash, name FROM askdocs_source_files ORDER BY hash`)
	if err != nil {
		return nil, classifyPg("query source files", err)
	}
	defer rows.Close()

	var files []entities.SourceFile
	for rows.Next() {
		var f entities.SourceFile
		if err := rows.Scan(&f.ContentHash, &f.Name); err != nil {
			return nil, classifyPg("scan source file", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPg("read source files", err)
	}
	return files, nil
}

// Count returns the number of stored passages.
func (s *PgvectorStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM askdocs_passages`).Scan(&count); err != nil {
		return 0, classifyPg("count passages", err)
	}
	return count, nil
}

// Wipe truncates the passage and file tables.
func (s *PgvectorStore) Wipe(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `TRUNCATE askdocs_passages, askdocs_source_files`); err != nil {
		return classifyPg("truncate", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PgvectorStore) Close() error {
	s.db.Close()
	return nil
}

// classifyPg maps PostgreSQL and network errors into the index fault taxonomy.
func classifyPg(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "XX001" || pgErr.Code == "XX002":
			return fmt.Errorf("%s: %w: %w", op, entities.ErrIndexCorruption, err)
		case strings.HasPrefix(pgErr.Code, "08"), pgErr.Code == "57P01", pgErr.Code == "53300":
			return fmt.Errorf("%s: %w: %w", op, entities.ErrIndexConnectivity, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%s: %w: %w", op, entities.ErrIndexConnectivity, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
