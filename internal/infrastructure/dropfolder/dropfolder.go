// Package dropfolder ingests documents copied into a watched directory.
package dropfolder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
	"github.com/0xcro3dile/askdocs/internal/domain/ports"
	"github.com/0xcro3dile/askdocs/internal/domain/usecases"
	"github.com/0xcro3dile/askdocs/internal/infrastructure/logger"
)

// DefaultQuietPeriod is how long a file must go without events before it is ingested.
const DefaultQuietPeriod = 500 * time.Millisecond

// FileLoader reads files from disk.
type FileLoader interface {
	Load(ctx context.Context, path string) (entities.RawFile, error)
	LoadDir(ctx context.Context, dir string) ([]entities.RawFile, error)
}

// Folder watches a directory and ingests created or modified files into a session.
type Folder struct {
	dir      string
	watcher  ports.FileWatcher
	loader   FileLoader
	svc      *usecases.RetrievalService
	sess     *usecases.Session
	quiet    time.Duration
	log      *zap.Logger
	onReport func(*entities.IngestReport)
}

// Option configures a Folder.
type Option func(*Folder)

// WithQuietPeriod overrides DefaultQuietPeriod.
func WithQuietPeriod(d time.Duration) Option {
	return func(f *Folder) { f.quiet = d }
}

// WithReportHandler is called after every ingest, successful or not.
func WithReportHandler(fn func(*entities.IngestReport)) Option {
	return func(f *Folder) { f.onReport = fn }
}

// WithLogger sets the logger for watch and ingest events. nil discards them.
func WithLogger(l *zap.Logger) Option {
	return func(f *Folder) { f.log = logger.OrNop(l) }
}

// New creates a drop folder over dir.
func New(dir string, watcher ports.FileWatcher, loader FileLoader, svc *usecases.RetrievalService, sess *usecases.Session, opts ...Option) *Folder {
	f := &Folder{
		dir:     dir,
		watcher: watcher,
		loader:  loader,
		svc:     svc,
		sess:    sess,
		quiet:   DefaultQuietPeriod,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.Named("dropfolder")
	return f
}

type settled struct {
	path string
	seq  uint64
}

// Run ingests the files already in the folder, then every file that settles
// after a create or write event, until ctx is done. Ingest failures are
// logged and do not stop the loop.
func (f *Folder) Run(ctx context.Context) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("creating drop folder: %w", err)
	}

	existing, err := f.loader.LoadDir(ctx, f.dir)
	if err != nil {
		return fmt.Errorf("scanning drop folder: %w", err)
	}
	if len(existing) > 0 {
		f.ingest(ctx, existing)
	}

	events, err := f.watcher.Watch(ctx, f.dir)
	if err != nil {
		return fmt.Errorf("watching drop folder: %w", err)
	}
	defer f.watcher.Stop()

	// Each path keeps one timer; seq discards fires from timers already replaced.
	timers := make(map[string]*time.Timer)
	seqs := make(map[string]uint64)
	ready := make(chan settled, 16)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if t, found := timers[ev.Path]; found {
				t.Stop()
				delete(timers, ev.Path)
			}
			if ev.Operation == ports.FileDeleted {
				f.log.Info("file removed from drop folder; its passages stay indexed", zap.String("path", ev.Path))
				continue
			}
			seqs[ev.Path]++
			s := settled{path: ev.Path, seq: seqs[ev.Path]}
			timers[ev.Path] = time.AfterFunc(f.quiet, func() {
				select {
				case ready <- s:
				case <-ctx.Done():
				}
			})

		case s := <-ready:
			if s.seq != seqs[s.path] {
				continue
			}
			delete(timers, s.path)
			file, err := f.loader.Load(ctx, s.path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					continue
				}
				f.log.Warn("loading dropped file", zap.String("path", s.path), zap.Error(err))
				continue
			}
			f.ingest(ctx, []entities.RawFile{file})
		}
	}
}

func (f *Folder) ingest(ctx context.Context, files []entities.RawFile) {
	report, err := f.svc.Ingest(ctx, f.sess, files)
	if err != nil {
		f.log.Error("ingesting dropped files", zap.Int("files", len(files)), zap.Error(err))
	}
	if f.onReport != nil && report != nil {
		f.onReport(report)
	}
}
