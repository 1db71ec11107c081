package dropfolder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/askdocs/internal/adapters/loader"
	"github.com/0xcro3dile/askdocs/internal/adapters/parser"
	"github.com/0xcro3dile/askdocs/internal/adapters/vectordb"
	"github.com/0xcro3dile/askdocs/internal/domain/entities"
	"github.com/0xcro3dile/askdocs/internal/domain/ports"
	"github.com/0xcro3dile/askdocs/internal/domain/usecases"
)

// chanWatcher emits the events pushed into it.
type chanWatcher struct {
	events   chan ports.FileEvent
	watching chan struct{}
	stopped  chan struct{}
}

func newChanWatcher() *chanWatcher {
	return &chanWatcher{
		events:   make(chan ports.FileEvent, 10),
		watching: make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (w *chanWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	close(w.watching)
	return w.events, nil
}

func (w *chanWatcher) Stop() error {
	close(w.stopped)
	return nil
}

type constEmbedder struct{}

func (constEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, float32(len(text))}, nil
}

func (e constEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

type harness struct {
	dir     string
	watcher *chanWatcher
	reports chan *entities.IngestReport
	index   *vectordb.Index
	cancel  context.CancelFunc
	done    chan error
}

func start(t *testing.T, seed map[string]string) *harness {
	t.Helper()
	dir := t.TempDir()
	for name, content := range seed {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	index := vectordb.NewIndex(vectordb.NewMemoryStore(), constEmbedder{}, nil)
	sess, err := usecases.NewSession(context.Background(), index)
	require.NoError(t, err)
	extractor := parser.NewDefaultParser(parser.NewPDFParser(nil))
	svc := usecases.NewRetrievalService(extractor, nil, usecases.DefaultOptions())

	h := &harness{
		dir:     dir,
		watcher: newChanWatcher(),
		reports: make(chan *entities.IngestReport, 10),
		index:   index,
		done:    make(chan error, 1),
	}
	folder := New(dir, h.watcher, loader.NewFileLoader(extractor.SupportedExtensions()), svc, sess,
		WithQuietPeriod(20*time.Millisecond),
		WithReportHandler(func(r *entities.IngestReport) { h.reports <- r }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- folder.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

// drop writes a file once the initial scan is over, so only events can pick it up.
func (h *harness) drop(t *testing.T, name, content string) string {
	t.Helper()
	select {
	case <-h.watcher.watching:
	case <-time.After(2 * time.Second):
		t.Fatal("drop folder never started watching")
	}
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (h *harness) nextReport(t *testing.T) *entities.IngestReport {
	t.Helper()
	select {
	case r := <-h.reports:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ingest")
		return nil
	}
}

func TestFolder_IngestsExistingFiles(t *testing.T) {
	h := start(t, map[string]string{"a.txt": "Already here.", "ignored.bin": "x"})

	report := h.nextReport(t)

	assert.Equal(t, 1, report.NewFiles)
	require.Len(t, report.Files, 1)
	assert.Equal(t, "a.txt", report.Files[0].Name)
}

func TestFolder_DebouncesEvents(t *testing.T) {
	h := start(t, nil)
	path := h.drop(t, "new.txt", "Dropped later.")

	h.watcher.events <- ports.FileEvent{Path: path, Operation: ports.FileCreated}
	h.watcher.events <- ports.FileEvent{Path: path, Operation: ports.FileModified}
	h.watcher.events <- ports.FileEvent{Path: path, Operation: ports.FileModified}

	report := h.nextReport(t)
	assert.Equal(t, 1, report.NewFiles)
	assert.Equal(t, 1, report.NewChunks)

	select {
	case r := <-h.reports:
		t.Fatalf("unexpected second ingest: %+v", r)
	case <-time.After(100 * time.Millisecond):
	}

	count, err := h.index.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFolder_DeletedBeforeSettling(t *testing.T) {
	h := start(t, nil)
	path := h.drop(t, "gone.txt", "Short lived.")

	h.watcher.events <- ports.FileEvent{Path: path, Operation: ports.FileCreated}
	h.watcher.events <- ports.FileEvent{Path: path, Operation: ports.FileDeleted}

	select {
	case r := <-h.reports:
		t.Fatalf("deleted file was ingested: %+v", r)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFolder_StopsWatcherOnCancel(t *testing.T) {
	h := start(t, nil)

	h.cancel()

	select {
	case <-h.watcher.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher not stopped")
	}
}
