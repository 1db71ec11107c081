package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
	"github.com/0xcro3dile/askdocs/internal/domain/ports"
)

// TextParser treats the bytes as UTF-8 text (.txt, .md).
type TextParser struct{}

// NewTextParser creates a plain text extractor.
func NewTextParser() *TextParser {
	return &TextParser{}
}

// ExtractText returns the file contents with invalid UTF-8 and control
// characters removed.
func (p *TextParser) ExtractText(ctx context.Context, data []byte, filename string) (string, error) {
	return cleanText(string(data)), nil
}

// SupportedExtensions returns file extensions this parser handles.
func (p *TextParser) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// MultiParser dispatches to an extractor by file extension.
type MultiParser struct {
	parsers map[string]ports.TextExtractor
}

// NewMultiParser registers each extractor under the extensions it supports.
// Later extractors win on overlap.
func NewMultiParser(extractors ...ports.TextExtractor) *MultiParser {
	m := &MultiParser{parsers: make(map[string]ports.TextExtractor)}
	for _, e := range extractors {
		for _, ext := range e.SupportedExtensions() {
			m.parsers[strings.ToLower(ext)] = e
		}
	}
	return m
}

// NewDefaultParser handles PDF and plain text.
func NewDefaultParser(pdfParser *PDFParser) *MultiParser {
	return NewMultiParser(pdfParser, NewTextParser())
}

// ExtractText dispatches on the extension of filename.
func (m *MultiParser) ExtractText(ctx context.Context, data []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	parser, ok := m.parsers[ext]
	if !ok {
		return "", fmt.Errorf("%s: %w %q", filename, entities.ErrUnsupportedFormat, ext)
	}
	return parser.ExtractText(ctx, data, filename)
}

// SupportedExtensions returns all supported extensions, sorted.
func (m *MultiParser) SupportedExtensions() []string {
	exts := make([]string, 0, len(m.parsers))
	for ext := range m.parsers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether filename has a registered extension.
func (m *MultiParser) Supports(filename string) bool {
	_, ok := m.parsers[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// cleanText drops invalid UTF-8 and control characters other than newline and tab.
func cleanText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r == '\r' {
			return -1
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
