package usecases

import (
	"sort"
	"sync"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
)

// FileRegistry is the set of raw-file content hashes already ingested.
// It is independent of file names: the same bytes under another name are known.
type FileRegistry struct {
	mu     sync.RWMutex
	hashes map[string]string // content hash -> first file name seen
}

// NewFileRegistry creates a registry seeded with the given files.
func NewFileRegistry(files ...entities.SourceFile) *FileRegistry {
	r := &FileRegistry{}
	r.Replace(files)
	return r
}

// Contains reports whether a file with this content hash was ingested.
func (r *FileRegistry) Contains(hash string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.hashes[hash]
	return ok
}

// Add marks a file as ingested.
func (r *FileRegistry) Add(f entities.SourceFile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name, ok := r.hashes[f.ContentHash]; ok && name != "" {
		return
	}
	r.hashes[f.ContentHash] = f.Name
}

// Replace drops all entries and seeds the registry with files.
func (r *FileRegistry) Replace(files []entities.SourceFile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hashes = make(map[string]string, len(files))
	for _, f := range files {
		if _, ok := r.hashes[f.ContentHash]; !ok {
			r.hashes[f.ContentHash] = f.Name
		}
	}
}

// Len returns the number of known files.
func (r *FileRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hashes)
}

// Files returns the known files sorted by hash.
func (r *FileRegistry) Files() []entities.SourceFile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	files := make([]entities.SourceFile, 0, len(r.hashes))
	for h, name := range r.hashes {
		files = append(files, entities.SourceFile{ContentHash: h, Name: name})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ContentHash < files[j].ContentHash })
	return files
}

// Deduplicator filters one ingest batch at file and chunk granularity.
// Create one per batch.
type Deduplicator struct {
	files      *FileRegistry
	batchFiles map[string]struct{}
	seen       map[string]struct{}
}

// NewDeduplicator creates a batch deduplicator over the session's file registry.
func NewDeduplicator(files *FileRegistry) *Deduplicator {
	return &Deduplicator{
		files:      files,
		batchFiles: make(map[string]struct{}),
		seen:       make(map[string]struct{}),
	}
}

// CheckFile hashes the raw bytes and reports whether the file was already
// ingested, either earlier in the session or earlier in this batch.
func (d *Deduplicator) CheckFile(f entities.RawFile) (entities.SourceFile, bool) {
	src := entities.SourceFile{ContentHash: entities.ContentHash(f.Data), Name: f.Name}
	if d.files.Contains(src.ContentHash) {
		return src, true
	}
	if _, ok := d.batchFiles[src.ContentHash]; ok {
		return src, true
	}
	d.batchFiles[src.ContentHash] = struct{}{}
	return src, false
}

// Passages turns chunks into passages, dropping chunks whose hash was already
// produced in this batch. First occurrence wins.
func (d *Deduplicator) Passages(chunks []string, src entities.SourceFile) []entities.Passage {
	passages := make([]entities.Passage, 0, len(chunks))
	for _, c := range chunks {
		p := entities.NewPassage(c, src)
		if _, ok := d.seen[p.ID]; ok {
			continue
		}
		d.seen[p.ID] = struct{}{}
		passages = append(passages, p)
	}
	return passages
}
