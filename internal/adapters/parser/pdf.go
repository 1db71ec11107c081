// Package parser provides TextExtractor adapters for PDF and plain text files.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// PDFParser extracts text from PDF bytes with a pure Go reader.
type PDFParser struct {
	log *zap.Logger
}

// NewPDFParser creates a PDF text extractor.
func NewPDFParser(log *zap.Logger) *PDFParser {
	if log == nil {
		log = zap.NewNop()
	}
	return &PDFParser{log: log.Named("pdf")}
}

// ExtractText concatenates the plain text of every page in order. Pages that
// fail to decode are skipped; a PDF with no text layer yields "".
func (p *PDFParser) ExtractText(ctx context.Context, data []byte, filename string) (text string, err error) {
	// The reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("reading PDF %s: %v", filename, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open PDF %s: %w", filename, err)
	}

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			p.log.Warn("skipping unreadable page", zap.String("file", filename), zap.Int("page", i), zap.Error(err))
			continue
		}
		buf.WriteString(pageText)
	}

	p.log.Debug("extracted PDF", zap.String("file", filename), zap.Int("pages", numPages), zap.Int("chars", buf.Len()))
	return cleanText(buf.String()), nil
}

// SupportedExtensions returns file extensions this parser handles.
func (p *PDFParser) SupportedExtensions() []string {
	return []string{".pdf"}
}
