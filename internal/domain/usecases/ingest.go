package usecases

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
)

// Ingest processes a batch of uploaded files: skips files whose bytes were seen
// before, extracts and chunks the rest, drops chunks repeated within the batch
// and adds the remaining passages to the index, one file at a time.
//
// On error the batch stops. Files indexed before the failing one stay indexed
// and are reported; files after it are not processed.
func (s *RetrievalService) Ingest(ctx context.Context, sess *Session, files []entities.RawFile) (*entities.IngestReport, error) {
	start := time.Now()
	sess.mu.Lock()
	defer sess.mu.Unlock()

	report := &entities.IngestReport{}
	if _, err := sess.syncLocked(ctx); err != nil {
		return report, err
	}

	err := s.ingestLocked(ctx, sess, files, report)

	// A recovery cycle inside Add wipes earlier content; the registry must follow.
	if reseeded, syncErr := sess.syncLocked(ctx); syncErr != nil && err == nil {
		err = syncErr
	} else if reseeded {
		report.IndexReset = true
		s.log.Warn("index was reset during ingest, processed files reloaded", zap.String("session", sess.ID))
	}
	report.Elapsed = time.Since(start)
	s.log.Info("ingest finished",
		zap.String("session", sess.ID),
		zap.Int("new_files", report.NewFiles),
		zap.Int("duplicate_files", report.DuplicateFiles),
		zap.Int("new_chunks", report.NewChunks),
		zap.Duration("elapsed", report.Elapsed),
		zap.Error(err),
	)
	return report, err
}

func (s *RetrievalService) ingestLocked(ctx context.Context, sess *Session, files []entities.RawFile, report *entities.IngestReport) error {
	dedup := NewDeduplicator(sess.files)

	for _, f := range files {
		src, dup := dedup.CheckFile(f)
		if dup {
			report.DuplicateFiles++
			report.Files = append(report.Files, entities.FileOutcome{
				Name: f.Name, Hash: src.ContentHash, Status: entities.FileDuplicate,
			})
			continue
		}

		text, err := s.extractor.ExtractText(ctx, f.Data, f.Name)
		if err != nil {
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}

		chunks := Chunk(text, s.opts.ChunkSize)
		passages := dedup.Passages(chunks, src)
		if err := sess.index.AddFile(ctx, src, passages); err != nil {
			return fmt.Errorf("indexing %s: %w", f.Name, err)
		}
		sess.files.Add(src)

		outcome := entities.FileOutcome{
			Name: f.Name, Hash: src.ContentHash, Status: entities.FileIndexed, Chunks: len(passages),
		}
		if len(chunks) == 0 {
			outcome.Status = entities.FileEmpty
			report.EmptyFiles++
			s.log.Warn("no text extracted", zap.String("file", f.Name))
		}
		report.NewFiles++
		report.NewChunks += len(passages)
		report.Files = append(report.Files, outcome)
	}
	return nil
}
