package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
)

// Printer writes timed, colored progress lines for the command line.
type Printer struct {
	w io.Writer

	step    *color.Color
	info    *color.Color
	success *color.Color
	alert   *color.Color
	elapsed *color.Color
}

// NewPrinter returns a Printer writing to w, or stdout when w is nil.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		w:       w,
		step:    color.New(color.FgYellow),
		info:    color.New(color.FgCyan),
		success: color.New(color.FgGreen, color.Bold),
		alert:   color.New(color.FgRed),
		elapsed: color.New(color.FgCyan, color.Bold),
	}
}

// Step announces the start of a unit of work.
func (p *Printer) Step(format string, args ...any) {
	p.line(p.step, format, args...)
}

// Info prints a neutral status line.
func (p *Printer) Info(format string, args ...any) {
	p.line(p.info, format, args...)
}

// Success reports a finished unit of work.
func (p *Printer) Success(format string, args ...any) {
	p.line(p.success, format, args...)
}

// Alert reports failures and recovery cycles.
func (p *Printer) Alert(format string, args ...any) {
	p.line(p.alert, format, args...)
}

// Elapsed prints how long label took since start.
func (p *Printer) Elapsed(label string, start time.Time) {
	p.line(p.elapsed, "%s in %.2f seconds", label, time.Since(start).Seconds())
}

// Report prints the outcome of an ingest batch, one line per file.
func (p *Printer) Report(r *entities.IngestReport) {
	for _, f := range r.Files {
		switch f.Status {
		case entities.FileDuplicate:
			p.Info("%s: already indexed, skipped", f.Name)
		case entities.FileEmpty:
			p.Alert("%s: no text could be extracted", f.Name)
		default:
			p.Info("%s: %d new chunks", f.Name, f.Chunks)
		}
	}
	if r.IndexReset {
		p.Alert("Index was corrupted and has been rebuilt; earlier documents must be uploaded again")
	}
	p.Success("Indexed %d new files (%d duplicates, %d empty), %d new chunks",
		r.NewFiles, r.DuplicateFiles, r.EmptyFiles, r.NewChunks)
	p.line(p.elapsed, "Total ingest time: %.2f seconds", r.Elapsed.Seconds())
}

func (p *Printer) line(c *color.Color, format string, args ...any) {
	c.Fprintln(p.w, fmt.Sprintf(format, args...))
}
