// Package loader reads documents from disk into raw files for ingestion.
package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
)

// DefaultMaxFileSize bounds a single upload.
const DefaultMaxFileSize = 64 << 20

// FileLoader loads files whose extension it accepts.
type FileLoader struct {
	extensions map[string]bool
	maxSize    int64
}

// NewFileLoader creates a loader for the given extensions (e.g. ".pdf").
func NewFileLoader(extensions []string) *FileLoader {
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = true
	}
	return &FileLoader{extensions: exts, maxSize: DefaultMaxFileSize}
}

// Accepts reports whether path has a supported extension.
func (l *FileLoader) Accepts(path string) bool {
	return l.extensions[strings.ToLower(filepath.Ext(path))]
}

// Load reads a single file. The RawFile name is the base name of path.
func (l *FileLoader) Load(ctx context.Context, path string) (entities.RawFile, error) {
	if err := ctx.Err(); err != nil {
		return entities.RawFile{}, err
	}
	if !l.Accepts(path) {
		return entities.RawFile{}, fmt.Errorf("%s: %w", path, entities.ErrUnsupportedFormat)
	}

	file, err := os.Open(path)
	if err != nil {
		return entities.RawFile{}, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return entities.RawFile{}, err
	}
	if info.IsDir() {
		return entities.RawFile{}, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > l.maxSize {
		return entities.RawFile{}, fmt.Errorf("%s: file is %d bytes, limit is %d", path, info.Size(), l.maxSize)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return entities.RawFile{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return entities.RawFile{Name: filepath.Base(path), Data: data}, nil
}

// LoadPaths loads every path in order. Directories contribute their supported
// files, sorted by name and not recursed into.
func (l *FileLoader) LoadPaths(ctx context.Context, paths []string) ([]entities.RawFile, error) {
	var files []entities.RawFile
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			f, err := l.Load(ctx, path)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
			continue
		}

		dirFiles, err := l.LoadDir(ctx, path)
		if err != nil {
			return nil, err
		}
		files = append(files, dirFiles...)
	}
	return files, nil
}

// LoadDir loads the supported files directly inside dir, sorted by name.
func (l *FileLoader) LoadDir(ctx context.Context, dir string) ([]entities.RawFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var files []entities.RawFile
	for _, e := range entries {
		if e.IsDir() || !l.Accepts(e.Name()) {
			continue
		}
		f, err := l.Load(ctx, filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}
